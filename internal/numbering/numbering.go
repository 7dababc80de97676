// Package numbering assigns sequential ordinals to an ordered batch of
// elements and reports progress as it goes.
package numbering

import (
	"fmt"

	"gridmark/internal/domain"
)

// ProgressFunc receives the completed percentage after each element.
// Values strictly increase and the last one is exactly 100.
type ProgressFunc func(percent float64)

// Ordinal pairs an element with its 1-based position in the batch
type Ordinal struct {
	Number  int
	Element *domain.Element
}

// Walk visits elements in input order, calling fn with each ordinal and
// reporting progress after fn returns. It stops at the first error; no
// progress is reported for the failed element. An empty batch reports
// nothing.
func Walk(elements []*domain.Element, fn func(Ordinal) error, progress ProgressFunc) error {
	total := len(elements)
	for i, e := range elements {
		if fn != nil {
			if err := fn(Ordinal{Number: i + 1, Element: e}); err != nil {
				return err
			}
		}
		if progress != nil {
			progress(Percent(i, total))
		}
	}
	return nil
}

// Number returns the ordinals for elements in input order
func Number(elements []*domain.Element, progress ProgressFunc) []Ordinal {
	out := make([]Ordinal, len(elements))
	for i, e := range elements {
		out[i] = Ordinal{Number: i + 1, Element: e}
		if progress != nil {
			progress(Percent(i, len(elements)))
		}
	}
	return out
}

// Percent returns the progress after the element at index has completed.
// total must be positive.
func Percent(index, total int) float64 {
	return float64(index+1) / float64(total) * 100
}

// PercentText formats a progress value the way the progress bar shows it
func PercentText(percent float64) string {
	return fmt.Sprintf("%d%%", int(percent))
}

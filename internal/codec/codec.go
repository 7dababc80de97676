// Package codec writes command results (numbering runs, category and field
// listings) in machine-readable formats.
package codec

import (
	"fmt"
	"io"
	"strings"
)

// Exporter writes a value in one format
type Exporter interface {
	Export(v any, w io.Writer) error
	Format() string
}

// Formats lists the supported export formats
func Formats() []string {
	return []string{"json", "yaml"}
}

// ForFormat returns the exporter for a format name (case-insensitive)
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unknown format %q, must be one of %s", format, strings.Join(Formats(), ", "))
	}
}

package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Export writes v as YAML with two-space indentation
func (c *YAMLCodec) Export(v any, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

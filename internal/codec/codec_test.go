package codec

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"gridmark/internal/domain"
)

func sampleResult() *domain.NumberingResult {
	return &domain.NumberingResult{
		StartElementID: "col-1",
		Entries: []domain.NumberingEntry{
			{Ordinal: 1, ElementID: "col-1", Category: "Columns", Label: "2-B", Fields: []string{"Number", "Grid Square"}},
			{Ordinal: 2, ElementID: "col-2", Category: "Columns", Fields: []string{"Number"}},
		},
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", "json"},
		{"JSON", "json"},
		{"yaml", "yaml"},
		{"yml", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e, err := ForFormat(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Format())
		})
	}

	_, err := ForFormat("xml")
	assert.Error(t, err)
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(sampleResult(), &buf))

	var decoded domain.NumberingResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *sampleResult(), decoded)
	assert.Contains(t, buf.String(), `"label": "2-B"`)
	assert.NotContains(t, buf.String(), `"label": ""`)
}

func TestYAMLExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLCodec().Export(sampleResult(), &buf))

	assert.Contains(t, buf.String(), "start_element_id: col-1")
	assert.Contains(t, buf.String(), "label: 2-B")

	var decoded domain.NumberingResult
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *sampleResult(), decoded)
}

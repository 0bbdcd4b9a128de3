package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-extractor/internal/testutil"
)

func TestValidatePDF(t *testing.T) {
	n, err := ValidatePDF(testutil.NewPDF(t, "one", "two", "three"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestValidatePDF_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"plain text", []byte("hello world")},
		{"truncated", []byte("%PDF-1.4\n1 0 obj\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePDF(tt.data)
			assert.ErrorIs(t, err, ErrNotPDF)
		})
	}
}

func TestExtractPageText(t *testing.T) {
	pages, err := ExtractPageText(testutil.NewPDF(t, "Invoice 1042", "Total 99"))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Invoice")
	assert.Contains(t, pages[1], "Total")
}

func TestExtractText(t *testing.T) {
	text, err := ExtractText(testutil.NewPDF(t, "alpha", "beta"))
	require.NoError(t, err)
	assert.Contains(t, text, "## Page 1")
	assert.Contains(t, text, "## Page 2")
	assert.Less(t, strings.Index(text, "alpha"), strings.Index(text, "beta"))
}

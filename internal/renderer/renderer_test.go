package renderer

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-extractor/internal/testutil"
)

func TestRender_OneImagePerPageInOrder(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		texts := make([]string, n)
		for i := range texts {
			texts[i] = "page"
		}

		pages, err := New(36).Render(context.Background(), testutil.NewPDF(t, texts...))
		require.NoError(t, err)
		require.Len(t, pages, n)

		for i, p := range pages {
			assert.Equal(t, i+1, p.Number)
			img, err := png.Decode(bytes.NewReader(p.PNG))
			require.NoError(t, err)
			assert.Positive(t, img.Bounds().Dx())
		}
	}
}

func TestRender_AttachesPageText(t *testing.T) {
	pages, err := New(36).Render(context.Background(), testutil.NewInvoicePDF(t))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0].Text, "Invoice")
	assert.Contains(t, pages[1].Text, "Total")
}

func TestRender_HigherDPIGivesLargerImage(t *testing.T) {
	data := testutil.NewPDF(t, "x")

	low, err := New(36).Render(context.Background(), data)
	require.NoError(t, err)
	high, err := New(144).Render(context.Background(), data)
	require.NoError(t, err)

	lowImg, err := png.Decode(bytes.NewReader(low[0].PNG))
	require.NoError(t, err)
	highImg, err := png.Decode(bytes.NewReader(high[0].PNG))
	require.NoError(t, err)
	assert.Greater(t, highImg.Bounds().Dx(), lowImg.Bounds().Dx())
}

func TestRender_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("this is not a pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := New(72).Render(context.Background(), tt.data)
			assert.Nil(t, pages)

			var rerr *RenderError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, 0, rerr.Page)
		})
	}
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(72).Render(ctx, testutil.NewPDF(t, "a"))
	assert.ErrorIs(t, err, context.Canceled)
}

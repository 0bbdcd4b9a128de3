package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"pdf-extractor/internal/models"
	"pdf-extractor/internal/parser"
)

var ErrNoPages = errors.New("PDF has no pages")

// RenderError names the page that failed. Page is 0 when the document
// itself could not be opened.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("open PDF: %v", e.Err)
	}
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// PageRenderer rasterizes PDF pages to PNG with MuPDF.
type PageRenderer struct {
	dpi float64
}

func New(dpi float64) *PageRenderer {
	if dpi <= 0 {
		dpi = 72
	}
	return &PageRenderer{dpi: dpi}
}

// Render returns one PNG per page in page order.
func (r *PageRenderer) Render(ctx context.Context, data []byte) ([]models.PageImage, error) {
	if !parser.HasPDFHeader(data) {
		return nil, &RenderError{Err: parser.ErrNotPDF}
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, &RenderError{Err: ErrNoPages}
	}

	texts, err := parser.ExtractPageText(data)
	if err != nil {
		log.Debug().Err(err).Msg("Page text unavailable")
		texts = nil
	}

	images := make([]models.PageImage, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		png, err := doc.ImagePNG(pageNum, r.dpi)
		if err != nil {
			return nil, &RenderError{Page: pageNum + 1, Err: err}
		}

		page := models.PageImage{Number: pageNum + 1, PNG: png}
		if pageNum < len(texts) {
			page.Text = texts[pageNum]
		}
		images = append(images, page)
	}

	log.Debug().Int("pages", len(images)).Float64("dpi", r.dpi).Msg("Rendered PDF preview")
	return images, nil
}

package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNotPDF = errors.New("not a PDF document")

const pdfMagic = "%PDF-"

// ValidatePDF checks the header and that the cross-reference table can be
// read. It returns the page count.
func ValidatePDF(data []byte) (int, error) {
	if !HasPDFHeader(data) {
		return 0, ErrNotPDF
	}
	reader, err := openPDF(data)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

// HasPDFHeader reports whether data starts with the %PDF- signature,
// ignoring leading whitespace.
func HasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte(pdfMagic))
}

// ExtractPageText returns the plain text of every page, in page order.
func ExtractPageText(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("extract text: %v", r)
		}
	}()

	reader, err := openPDF(data)
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(pageText))
	}
	return pages, nil
}

// ExtractText joins the text of all pages, each under a page marker.
func ExtractText(data []byte) (string, error) {
	pages, err := ExtractPageText(data)
	if err != nil {
		return "", err
	}
	var text strings.Builder
	for i, p := range pages {
		fmt.Fprintf(&text, "## Page %d\n%s\n\n", i+1, p)
	}
	return strings.TrimSpace(text.String()), nil
}

// ledongthuc/pdf panics on some malformed input instead of returning an
// error.
func openPDF(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader, err = nil, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return reader, nil
}

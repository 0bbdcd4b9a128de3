// Package testutil builds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/go-pdf/fpdf"
)

// NewPDF returns an A4 PDF with one page per entry in pages, each page
// carrying its text.
func NewPDF(t testing.TB, pages ...string) []byte {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 14)
	for _, text := range pages {
		doc.AddPage()
		doc.Cell(40, 10, text)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	return buf.Bytes()
}

// NewInvoicePDF returns a two page invoice-like document.
func NewInvoicePDF(t testing.TB) []byte {
	t.Helper()
	return NewPDF(t,
		fmt.Sprintf("Invoice %d - ACME Ltda", 1042),
		"Total: R$ 1.250,00",
	)
}

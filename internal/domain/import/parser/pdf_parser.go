package parser

import (
	"errors"
	"io"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// ErrPDFNotSupported is returned for PDF statements. Unlocking and table
// extraction happen before ingestion; upload the converted CSV instead.
var ErrPDFNotSupported = errors.New("PDF statements are not supported; upload the CSV export")

// PDFParser reserves the PDF entry point of Read.
type PDFParser struct{}

// NewPDFParser creates a PDF parser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// ReadPDF always fails with ErrPDFNotSupported.
func (p *PDFParser) ReadPDF(io.Reader) (statement.Table, error) {
	return statement.Table{}, ErrPDFNotSupported
}

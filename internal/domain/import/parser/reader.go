// Package parser reads statement files into tables and writes
// categorized exports.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FACorreiaa/finova/internal/domain/import/sniffer"
	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// Format is a supported statement file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat is returned for file extensions no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DetectFormat maps a file name to a Format.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm", ".xls":
		return FormatXLSX, nil
	case ".pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
}

// Read dispatches on the file extension.
func Read(filename string, r io.Reader) (statement.Table, Format, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return statement.Table{}, "", err
	}

	var table statement.Table
	switch format {
	case FormatCSV:
		table, err = ReadCSV(r)
	case FormatXLSX:
		table, err = ReadXLSX(r)
	case FormatPDF:
		table, err = NewPDFParser().ReadPDF(r)
	}
	return table, format, err
}

// ReadCSV reads a delimited export. The delimiter and header row are
// sniffed, so bank preamble lines above the header are skipped.
func ReadCSV(r io.Reader) (statement.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return statement.Table{}, fmt.Errorf("failed to read file: %w", err)
	}

	cfg, err := sniffer.Detect(data)
	if err != nil {
		return statement.Table{}, err
	}

	body := skipLines(bytes.TrimPrefix(data, []byte("\uFEFF")), cfg.SkipLines)
	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = cfg.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return statement.Table{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return statement.Table{}, sniffer.ErrNoHeadersFound
	}
	return NewTable(records[0], records[1:]), nil
}

// NewTable builds a table from a header record and data records. Headers
// are trimmed and made unique case-insensitively: a repeated header gets a
// ".1", ".2" suffix. Short records are padded, extra cells dropped and
// blank records skipped.
func NewTable(header []string, records [][]string) statement.Table {
	headers := DedupeHeaders(header)
	table := statement.Table{Headers: headers, Rows: make([]statement.RawRow, 0, len(records))}

	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		row := make(statement.RawRow, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// DedupeHeaders trims headers and suffixes case-insensitive repeats.
func DedupeHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		name := h
		for n := 1; seen[statement.NormalizeHeader(name)]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		seen[statement.NormalizeHeader(name)] = true
		out[i] = name
	}
	return out
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func skipLines(data []byte, n int) []byte {
	for i := 0; i < n; i++ {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return nil
		}
		data = data[idx+1:]
	}
	return data
}

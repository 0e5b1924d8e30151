package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/finova/internal/domain/import/sniffer"
	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// ReadXLSX reads the statement sheet of a workbook. The sheet with the most
// header-like row wins; within it rows above that header are preamble.
func ReadXLSX(r io.Reader) (statement.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return statement.Table{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	dates := newDateCells(f)

	var (
		bestRows   [][]string
		bestHeader = -1
		bestScore  = -1
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil || len(rows) == 0 {
			continue
		}
		dates.convert(sheet, rows)
		idx, score := findHeader(rows)
		if idx >= 0 && score > bestScore {
			bestRows, bestHeader, bestScore = rows, idx, score
		}
	}

	if bestHeader < 0 {
		return statement.Table{}, sniffer.ErrNoHeadersFound
	}
	return NewTable(bestRows[bestHeader], bestRows[bestHeader+1:]), nil
}

// findHeader returns the first row with the highest header score among the
// leading rows, or the first non-blank row when nothing scores.
func findHeader(rows [][]string) (int, int) {
	bestIdx, bestScore, firstNonBlank := -1, 0, -1
	for i, row := range rows {
		if i >= 20 {
			break
		}
		if isBlank(row) {
			continue
		}
		if firstNonBlank < 0 {
			firstNonBlank = i
		}
		if score := sniffer.ScoreHeader(row); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 {
		return firstNonBlank, 0
	}
	return bestIdx, bestScore
}

// dateCells rewrites date-styled serial numbers as ISO dates. With raw cell
// values a date is its Excel serial, and the displayed text ("Apr-15",
// "04-02-15") would not survive the date cascade.
type dateCells struct {
	f        *excelize.File
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File) *dateCells {
	d := &dateCells{f: f, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *dateCells) convert(sheet string, rows [][]string) {
	for i, row := range rows {
		for j, value := range row {
			serial, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil || !d.isDate(sheet, cell) {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, d.date1904)
			if err != nil {
				continue
			}
			row[j] = t.Format(statement.ISODate)
		}
	}
}

func (d *dateCells) isDate(sheet, cell string) bool {
	styleID, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := d.styles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := d.f.GetStyle(styleID); err == nil {
		isDate = isDateNumFmt(style.NumFmt)
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	d.styles[styleID] = isDate
	return isDate
}

// isDateNumFmt reports whether a built-in number format id shows a date.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom format code carries a day or
// year token once quoted literals and bracketed sections are removed.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	plain := b.String()
	return strings.ContainsAny(plain, "dy")
}

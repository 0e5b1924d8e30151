// Package sniffer detects the layout of delimited statement exports: the
// delimiter, the header row below any bank preamble, and a header
// fingerprint that identifies a bank's export format.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"
)

// maxHeaderSearch bounds how many leading lines may be bank preamble.
const maxHeaderSearch = 20

// headerKeywords are header words that statement exports use.
var headerKeywords = []string{
	"date", "description", "narration", "details", "particulars", "payee",
	"debit", "withdrawal", "credit", "deposit", "balance", "amount", "dr", "cr",
}

var delimiters = []rune{',', ';', '\t', '|'}

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoHeadersFound = errors.New("could not find data headers")
)

// FileConfig is the detected layout of a delimited file.
type FileConfig struct {
	Delimiter   rune
	SkipLines   int // lines before the header row
	Headers     []string
	Fingerprint string
}

// Detect analyzes the leading lines of data.
func Detect(data []byte) (*FileConfig, error) {
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")
	delimiter, skip, err := findHeaderRow(lines)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(cleanLine(lines[skip])))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	headers, err := reader.Read()
	if err != nil {
		return nil, ErrNoHeadersFound
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skip,
		Headers:     headers,
		Fingerprint: Fingerprint(headers),
	}, nil
}

// findHeaderRow picks the line with the most header keywords, breaking ties
// by column count. Without any keyword line it takes the widest line, and a
// file with no delimiter at all is treated as one comma-separated column.
func findHeaderRow(lines []string) (rune, int, error) {
	bestIndex, bestScore, bestDelimiter := -1, 0, rune(0)
	wideIndex, wideCount, wideDelimiter := -1, 0, rune(0)
	firstNonEmpty := -1

	for i, raw := range lines {
		if i >= maxHeaderSearch {
			break
		}
		line := cleanLine(raw)
		if line == "" {
			continue
		}
		if firstNonEmpty == -1 {
			firstNonEmpty = i
		}

		delimiter, count := detectDelimiter(line)
		matches := keywordMatches(line, delimiter)
		if matches > 0 {
			score := matches*100 + count
			if score > bestScore {
				bestIndex, bestScore, bestDelimiter = i, score, delimiter
			}
			continue
		}
		if count > wideCount {
			wideIndex, wideCount, wideDelimiter = i, count, delimiter
		}
	}

	switch {
	case bestIndex >= 0:
		if bestDelimiter == 0 {
			bestDelimiter = ','
		}
		return bestDelimiter, bestIndex, nil
	case wideIndex >= 0:
		return wideDelimiter, wideIndex, nil
	case firstNonEmpty >= 0:
		return ',', firstNonEmpty, nil
	}
	return 0, 0, ErrNoHeadersFound
}

// keywordMatches counts header-like cells in a delimited line.
func keywordMatches(line string, delimiter rune) int {
	cells := []string{line}
	if delimiter != 0 {
		cells = strings.Split(line, string(delimiter))
	}
	return ScoreHeader(cells)
}

// ScoreHeader counts cells that equal or contain a header keyword. Short
// keywords such as "dr" must match a whole cell.
func ScoreHeader(cells []string) int {
	n := 0
	for _, cell := range cells {
		cell = strings.ToLower(strings.Trim(strings.TrimSpace(cell), `"`))
		for _, kw := range headerKeywords {
			if cell == kw || (len(kw) > 3 && strings.Contains(cell, kw)) {
				n++
				break
			}
		}
	}
	return n
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, "\r")
	line = strings.TrimPrefix(line, "\uFEFF")
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	best, bestCount := rune(0), 0
	for _, d := range delimiters {
		if count := strings.Count(line, string(d)); count > bestCount {
			best, bestCount = d, count
		}
	}
	return best, bestCount
}

// Fingerprint hashes the normalized header names. Two exports from the same
// bank layout share a fingerprint regardless of case or punctuation.
func Fingerprint(headers []string) string {
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}
	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

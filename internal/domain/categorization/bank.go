package categorization

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// BankMatch is a bank name recognized in free text.
type BankMatch struct {
	BankName string
	Score    int // 0-100, higher is closer
}

// BankMatcher recognizes known bank names in email subjects, sender
// addresses and file names. Banks are matched on their full name and on a
// short code derived from it ("HDFC Bank" -> "hdfc").
type BankMatcher struct {
	banks []bankPattern
}

type bankPattern struct {
	name  string
	full  string
	short string
}

// NewBankMatcher creates a matcher for the given bank names.
func NewBankMatcher(banks []string) *BankMatcher {
	bm := &BankMatcher{banks: make([]bankPattern, 0, len(banks))}
	for _, b := range banks {
		full := normalizeText(b)
		if full == "" {
			continue
		}
		bm.banks = append(bm.banks, bankPattern{name: strings.TrimSpace(b), full: full, short: shortCode(full)})
	}
	return bm
}

// Match returns the best bank at or above threshold, or nil.
func (bm *BankMatcher) Match(text string, threshold int) *BankMatch {
	ranked := bm.Rank(text)
	if len(ranked) == 0 || ranked[0].Score < threshold {
		return nil
	}
	return &ranked[0]
}

// Rank scores every known bank against text, best first. Ties keep the
// configured order.
func (bm *BankMatcher) Rank(text string) []BankMatch {
	normalized := normalizeText(text)
	if normalized == "" || len(bm.banks) == 0 {
		return nil
	}

	results := make([]BankMatch, 0, len(bm.banks))
	for _, b := range bm.banks {
		results = append(results, BankMatch{BankName: b.name, Score: bankScore(normalized, b)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// Len returns the number of known banks.
func (bm *BankMatcher) Len() int {
	return len(bm.banks)
}

func bankScore(text string, b bankPattern) int {
	words := strings.Fields(text)

	if strings.Contains(text, b.full) {
		return 100
	}
	if b.short != "" && containsWord(words, b.short) {
		return 90
	}

	best := 0
	for _, w := range words {
		if b.short == "" || len(w) < 3 {
			continue
		}
		if s := similarity(w, b.short); s > best {
			best = s
		}
	}

	// Subsequence match of the full name, e.g. "stbankofindia" for "state bank of india".
	compact := strings.ReplaceAll(text, " ", "")
	if rank := fuzzy.RankMatchFold(strings.ReplaceAll(b.full, " ", ""), compact); rank >= 0 && best < 70 {
		best = 70
	}
	return best
}

// similarity converts edit distance into a 0-100 score.
func similarity(a, b string) int {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 0
	}
	d := fuzzy.LevenshteinDistance(a, b)
	return 100 * (maxLen - d) / maxLen
}

func containsWord(words []string, w string) bool {
	for _, candidate := range words {
		if candidate == w {
			return true
		}
	}
	return false
}

// shortCode takes the first word that is not a generic banking term.
func shortCode(full string) string {
	for _, w := range strings.Fields(full) {
		switch w {
		case "bank", "of", "the", "ltd", "limited":
			continue
		}
		return w
	}
	return ""
}

// normalizeText lowercases and turns every non-alphanumeric rune into a space.
func normalizeText(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

package categorization

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// Classifier assigns one category per description with a single
// Aho-Corasick pass over all keywords. When several rules match, the one
// listed first wins. It holds no mutable state after construction.
type Classifier struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	ruleOf   []int // pattern index -> rule index
	labels   []string
}

// NewClassifier builds a classifier from rules in priority order. A keyword
// repeated across rules belongs to the first rule that lists it.
func NewClassifier(rules []Rule) *Classifier {
	c := &Classifier{labels: make([]string, len(rules))}
	seen := make(map[string]bool)

	for i, rule := range rules {
		c.labels[i] = rule.Category
		for _, kw := range rule.Keywords {
			pattern := strings.ToLower(strings.TrimSpace(kw))
			if pattern == "" || seen[pattern] {
				continue
			}
			seen[pattern] = true
			c.patterns = append(c.patterns, pattern)
			c.ruleOf = append(c.ruleOf, i)
		}
	}

	if len(c.patterns) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.patterns)
	}
	return c
}

// NewDefaultClassifier uses DefaultRules.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultRules())
}

// Classify returns the category of a description, or Other.
func (c *Classifier) Classify(description string) string {
	if c.matcher == nil || description == "" {
		return Other
	}

	hits := c.matcher.MatchThreadSafe([]byte(strings.ToLower(description)))
	best := -1
	for _, idx := range hits {
		if idx < 0 || idx >= len(c.ruleOf) {
			continue
		}
		if r := c.ruleOf[idx]; best == -1 || r < best {
			best = r
		}
	}
	if best == -1 {
		return Other
	}
	return c.labels[best]
}

// Categorize returns copies of txs tagged with their category. The input
// slice is left untouched.
func (c *Classifier) Categorize(txs []statement.Transaction) []statement.Transaction {
	out := make([]statement.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = tx.WithCategory(c.Classify(tx.Description))
	}
	return out
}

// PatternCount returns the number of distinct keywords in the matcher.
func (c *Classifier) PatternCount() int {
	return len(c.patterns)
}

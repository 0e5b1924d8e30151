package categorization

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category labels. The set is closed; Other is the fallback.
const (
	Rent      = "Rent"
	Groceries = "Groceries"
	Transport = "Transport"
	Dining    = "Dining"
	Income    = "Income"
	Utilities = "Utilities"
	Shopping  = "Shopping"
	Other     = "Other"
)

// Rule assigns Category when any keyword occurs in a description.
type Rule struct {
	Category string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules returns the built-in rules in priority order. Brand names
// are defaults that a rules file may replace.
func DefaultRules() []Rule {
	return []Rule{
		{Category: Rent, Keywords: []string{"rent"}},
		{Category: Groceries, Keywords: []string{"grocery", "supermarket", "big bazaar"}},
		{Category: Transport, Keywords: []string{"uber", "ola", "transport", "fuel"}},
		{Category: Dining, Keywords: []string{"restaurant", "dining", "cafe"}},
		{Category: Income, Keywords: []string{"salary", "credit", "interest"}},
		{Category: Utilities, Keywords: []string{"electricity", "water", "gas", "bill"}},
		{Category: Shopping, Keywords: []string{"shopping", "amazon", "flipkart"}},
	}
}

// Categories returns every label a classifier can emit, in priority order.
func Categories() []string {
	rules := DefaultRules()
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.Category)
	}
	return append(out, Other)
}

type rulesFile struct {
	Categories []Rule `yaml:"categories"`
}

// ParseRules replaces keyword lists of the built-in rules with the ones in
// data. Priority order and the label set are fixed, so unknown category
// names are rejected.
func ParseRules(data []byte) ([]Rule, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse category rules: %w", err)
	}

	rules := DefaultRules()
	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[strings.ToLower(r.Category)] = i
	}

	for _, override := range file.Categories {
		i, ok := index[strings.ToLower(strings.TrimSpace(override.Category))]
		if !ok {
			return nil, fmt.Errorf("unknown category %q in rules", override.Category)
		}
		keywords := make([]string, 0, len(override.Keywords))
		for _, kw := range override.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		rules[i].Keywords = keywords
	}

	return rules, nil
}

// LoadRules reads a YAML rules file. An empty path yields the defaults.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category rules: %w", err)
	}
	return ParseRules(data)
}

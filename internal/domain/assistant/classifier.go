package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/finova/internal/domain/categorization"
)

// Unknown is reported when a statement cannot be attributed to a bank.
const Unknown = "Unknown"

// bankMatchThreshold is the lowest fuzzy score accepted without asking
// the model.
const bankMatchThreshold = 70

// EmailMeta describes how a statement arrived.
type EmailMeta struct {
	Subject     string `json:"subject"`
	FromAddress string `json:"from_address"`
	BodySnippet string `json:"body_snippet"`
	Filename    string `json:"filename"`
}

func (m EmailMeta) text() string {
	return strings.Join([]string{m.Subject, m.FromAddress, m.BodySnippet, m.Filename}, " ")
}

// StatementInfo is the classifier verdict.
type StatementInfo struct {
	BankName      string  `json:"bank_name"`
	StatementType string  `json:"statement_type"`
	Confidence    float64 `json:"confidence"`
}

// StatementClassifier attributes statements to banks. Known bank names are
// matched fuzzily first; the model is only asked when that fails.
type StatementClassifier struct {
	banks     *categorization.BankMatcher
	generator Generator
	logger    *slog.Logger
}

// NewStatementClassifier creates a classifier over the known banks.
// generator may be nil.
func NewStatementClassifier(banks *categorization.BankMatcher, generator Generator, logger *slog.Logger) *StatementClassifier {
	return &StatementClassifier{banks: banks, generator: generator, logger: logger}
}

// Classify identifies the bank and statement type of an incoming file.
func (c *StatementClassifier) Classify(ctx context.Context, meta EmailMeta) StatementInfo {
	text := meta.text()
	if m := c.banks.Match(text, bankMatchThreshold); m != nil {
		return StatementInfo{BankName: m.BankName, StatementType: statementType(text), Confidence: 0.9}
	}

	if c.generator == nil {
		return StatementInfo{BankName: Unknown, StatementType: statementType(text)}
	}

	info, err := c.ask(ctx, meta)
	if err != nil {
		c.logger.Warn("statement classification failed", slog.Any("error", err))
		return StatementInfo{BankName: Unknown, StatementType: statementType(text)}
	}
	return info
}

func (c *StatementClassifier) ask(ctx context.Context, meta EmailMeta) (StatementInfo, error) {
	prompt := fmt.Sprintf(`Identify the bank and statement type of a bank statement email.

subject: %s
from_address: %s
body_snippet: %s
filename: %s

Return ONLY raw JSON, no code fences:
{"bank_name": "...", "statement_type": "...", "confidence": 0.0}`,
		meta.Subject, meta.FromAddress, meta.BodySnippet, meta.Filename)

	raw, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return StatementInfo{}, err
	}

	var info StatementInfo
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &info); err != nil {
		return StatementInfo{}, fmt.Errorf("failed to decode classifier reply: %w", err)
	}
	if strings.TrimSpace(info.BankName) == "" {
		info.BankName = Unknown
	}
	if info.StatementType == "" {
		info.StatementType = statementType(meta.text())
	}
	return info, nil
}

func statementType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "credit card"):
		return "credit_card"
	case strings.Contains(lower, "loan"):
		return "loan"
	}
	return "savings"
}

package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/finova/internal/domain/categorization"
	"github.com/FACorreiaa/finova/internal/domain/import/repository"
	"github.com/FACorreiaa/finova/internal/domain/insights"
	"github.com/FACorreiaa/finova/internal/domain/statement"
	"github.com/FACorreiaa/finova/pkg/money"
)

const (
	maxMatches = 10
	maxRecent  = 20
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is required")

var chartKeywords = []string{"chart", "graph", "plot", "visual", "trend", "monthly"}

// TransactionSource supplies categorized transactions.
type TransactionSource interface {
	Transactions(ctx context.Context, filter repository.ListFilter) ([]statement.Transaction, error)
}

// ChartReply is a chart answer: a monthly debit series.
type ChartReply struct {
	Title    string                   `json:"title"`
	Category string                   `json:"category,omitempty"`
	Series   []insights.MonthlyAmount `json:"series"`
}

// ChatReply is the answer to one question. Chart is set when the question
// asked for a visual.
type ChatReply struct {
	Answer string      `json:"answer"`
	Chart  *ChartReply `json:"chart,omitempty"`
}

// Chat answers questions about the user's transactions.
type Chat struct {
	source    TransactionSource
	index     *Index
	generator Generator
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewChat creates a chat. index and generator may be nil; without a
// generator only chart questions can be answered.
func NewChat(source TransactionSource, index *Index, generator Generator, logger *slog.Logger) *Chat {
	return &Chat{
		source:    source,
		index:     index,
		generator: generator,
		logger:    logger,
		tracer:    otel.Tracer("finova/assistant"),
	}
}

// Answer routes chart questions to a deterministic monthly spend series and
// everything else to the model.
func (c *Chat) Answer(ctx context.Context, question string, filter repository.ListFilter) (*ChatReply, error) {
	ctx, span := c.tracer.Start(ctx, "Chat.Answer")
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	filter.Limit = 0
	txs, err := c.source.Transactions(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	span.SetAttributes(attribute.Int("transactions", len(txs)))

	lower := strings.ToLower(question)
	if wantsChart(lower) {
		span.SetAttributes(attribute.String("route", "chart"))
		return chartReply(lower, txs), nil
	}

	if c.generator == nil {
		return nil, ErrAssistantUnavailable
	}
	span.SetAttributes(attribute.String("route", "model"))

	answer, err := c.generator.Generate(ctx, c.prompt(question, filter, txs))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("chat generation failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}
	return &ChatReply{Answer: answer}, nil
}

func wantsChart(lower string) bool {
	for _, kw := range chartKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func chartReply(lower string, txs []statement.Transaction) *ChatReply {
	if strings.Contains(lower, "grocer") {
		return &ChatReply{
			Answer: "Here is your monthly grocery expense chart.",
			Chart: &ChartReply{
				Title:    "Monthly Grocery Expenses",
				Category: categorization.Groceries,
				Series:   insights.MonthlySpend(txs, categorization.Groceries),
			},
		}
	}
	return &ChatReply{
		Answer: "Here is your monthly spending chart.",
		Chart: &ChartReply{
			Title:  "Monthly Spending",
			Series: insights.MonthlySpend(txs, ""),
		},
	}
}

func (c *Chat) prompt(question string, filter repository.ListFilter, txs []statement.Transaction) string {
	report := insights.Summarize(txs)

	var b strings.Builder
	b.WriteString("You are Finova, a personal finance assistant. Answer the user's question ")
	b.WriteString("clearly and concisely using only the data below. Amounts are in INR.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)

	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- transactions: %d\n", report.TransactionCount)
	fmt.Fprintf(&b, "- total credits: %s\n", money.Display(report.TotalCredits, money.INR))
	fmt.Fprintf(&b, "- total debits: %s\n", money.Display(report.TotalDebits, money.INR))
	fmt.Fprintf(&b, "- net cashflow: %s\n", money.Display(report.NetCashflow, money.INR))
	for _, cat := range report.TopCategories {
		fmt.Fprintf(&b, "- spend on %s: %s\n", cat.Category, money.Display(cat.Amount, money.INR))
	}
	for _, m := range report.MonthlyCashflow {
		fmt.Fprintf(&b, "- %s: in %s, out %s\n", m.YearMonth,
			money.Display(m.TotalCredit, money.INR), money.Display(m.TotalDebit, money.INR))
	}

	if matches := c.related(question, filter); len(matches) > 0 {
		b.WriteString("\nTransactions related to the question:\n")
		writeTransactions(&b, matches)
	}

	recent := txs
	if len(recent) > maxRecent {
		recent = recent[len(recent)-maxRecent:]
	}
	if len(recent) > 0 {
		b.WriteString("\nMost recent transactions:\n")
		writeTransactions(&b, recent)
	}
	return b.String()
}

// related finds indexed transactions matching the question within the
// filter's bank and account.
func (c *Chat) related(question string, filter repository.ListFilter) []statement.Transaction {
	if c.index == nil {
		return nil
	}
	hits, err := c.index.Search(question, maxMatches*3)
	if err != nil {
		c.logger.Warn("chat search failed", slog.Any("error", err))
		return nil
	}
	out := make([]statement.Transaction, 0, maxMatches)
	for _, h := range hits {
		tx := h.Transaction
		if filter.BankName != "" && tx.BankName != filter.BankName {
			continue
		}
		if filter.AccountID != "" && tx.AccountID != filter.AccountID {
			continue
		}
		out = append(out, tx)
		if len(out) == maxMatches {
			break
		}
	}
	return out
}

func writeTransactions(b *strings.Builder, txs []statement.Transaction) {
	for _, tx := range txs {
		amount := "-" + money.Display(tx.Debit, money.INR)
		if tx.IsCredit() {
			amount = "+" + money.Display(tx.Credit, money.INR)
		}
		category := tx.Category
		if category == "" {
			category = categorization.Other
		}
		fmt.Fprintf(b, "- %s | %s | %s | %s\n", tx.Date, tx.Description, amount, category)
	}
}

// Package notify sends ingest summaries by email through Resend.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/finova/pkg/money"
)

// IngestSummary describes one ingested statement.
type IngestSummary struct {
	Filename         string
	BankName         string
	AccountID        string
	TransactionCount int
	TotalDebits      decimal.Decimal
	TotalCredits     decimal.Decimal
	Warnings         []string
}

// Notifier is told about completed ingestions.
type Notifier interface {
	NotifyIngest(ctx context.Context, summary IngestSummary) error
}

// Sender is the part of the Resend client used here.
type Sender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailNotifier mails ingest summaries to a fixed recipient list.
type EmailNotifier struct {
	sender Sender
	from   string
	to     []string
	logger *slog.Logger
}

// NewEmailNotifier creates a notifier backed by a Resend client.
func NewEmailNotifier(apiKey, from string, to []string, logger *slog.Logger) *EmailNotifier {
	return NewEmailNotifierWithSender(resend.NewClient(apiKey).Emails, from, to, logger)
}

// NewEmailNotifierWithSender creates a notifier with an explicit sender.
func NewEmailNotifierWithSender(sender Sender, from string, to []string, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, from: from, to: to, logger: logger}
}

var summaryTemplate = template.Must(template.New("ingest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Statement imported</h2>
  <p><strong>{{.Filename}}</strong> from {{.BankName}}{{if .AccountID}} ({{.AccountID}}){{end}}</p>
  <table cellpadding="4">
    <tr><td>Transactions</td><td>{{.TransactionCount}}</td></tr>
    <tr><td>Money in</td><td>{{.Credits}}</td></tr>
    <tr><td>Money out</td><td>{{.Debits}}</td></tr>
  </table>
  {{if .Warnings}}<p>Warnings:</p><ul>{{range .Warnings}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>`))

// Render builds the subject and HTML body for a summary.
func Render(summary IngestSummary) (string, string, error) {
	bank := summary.BankName
	if bank == "" {
		bank = "unknown bank"
	}
	data := struct {
		IngestSummary
		Credits string
		Debits  string
	}{
		IngestSummary: summary,
		Credits:       money.Display(summary.TotalCredits, money.INR),
		Debits:        money.Display(summary.TotalDebits, money.INR),
	}
	data.BankName = bank

	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render summary email: %w", err)
	}
	subject := fmt.Sprintf("Finova: %d transactions imported from %s", summary.TransactionCount, bank)
	return subject, buf.String(), nil
}

// NotifyIngest sends the summary email.
func (n *EmailNotifier) NotifyIngest(ctx context.Context, summary IngestSummary) error {
	subject, html, err := Render(summary)
	if err != nil {
		return err
	}

	resp, err := n.sender.Send(&resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send ingest email: %w", err)
	}
	n.logger.Info("ingest email sent",
		slog.String("email_id", resp.Id),
		slog.String("filename", summary.Filename),
	)
	return nil
}

// Nop discards notifications.
type Nop struct{}

// NotifyIngest does nothing.
func (Nop) NotifyIngest(context.Context, IngestSummary) error { return nil }

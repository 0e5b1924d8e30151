package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/FACorreiaa/finova/internal/domain/assistant"
	"github.com/FACorreiaa/finova/internal/domain/categorization"
	"github.com/FACorreiaa/finova/internal/domain/import/repository"
	"github.com/FACorreiaa/finova/internal/domain/insights"
	"github.com/FACorreiaa/finova/internal/domain/statement"
)

type stubStore struct {
	txs    []statement.Transaction
	filter repository.ListFilter
}

func (s *stubStore) List(_ context.Context, filter repository.ListFilter) ([]statement.Transaction, error) {
	s.filter = filter
	return s.txs, nil
}

type stubChat struct {
	reply *assistant.ChatReply
	err   error
}

func (s *stubChat) Answer(_ context.Context, question string, _ repository.ListFilter) (*assistant.ChatReply, error) {
	if strings.TrimSpace(question) == "" {
		return nil, assistant.ErrEmptyQuestion
	}
	return s.reply, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(store *stubStore, chat Answerer) *InsightsHandler {
	svc := insights.NewService(store, categorization.NewDefaultClassifier(), 0, discardLogger())
	return NewInsightsHandler(svc, chat, discardLogger())
}

func sampleStore() *stubStore {
	return &stubStore{txs: []statement.Transaction{
		{Date: "2024-01-01", Description: "Rent", Debit: decimal.NewFromInt(15000), Credit: decimal.Zero},
		{Date: "2024-01-02", Description: "Salary", Debit: decimal.Zero, Credit: decimal.NewFromInt(50000)},
	}}
}

func TestGetSummary(t *testing.T) {
	store := sampleStore()
	h := newHandler(store, nil)

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summary?bank_name=HDFC&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repository.ListFilter{BankName: "HDFC", Limit: 10}, store.filter)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 50000.0, body["total_credits"])
	assert.Equal(t, 15000.0, body["total_debits"])
	assert.Equal(t, 35000.0, body["net_cashflow"])
	assert.Equal(t, 2.0, body["transaction_count"])

	t.Run("bad limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summary?limit=ten", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetCharts(t *testing.T) {
	h := newHandler(sampleStore(), nil)

	rec := httptest.NewRecorder()
	h.GetCharts(rec, httptest.NewRequest(http.MethodGet, "/api/v1/charts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body insights.ChartData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.CategorySpend, 1)
	assert.Equal(t, categorization.Rent, body.CategorySpend[0].Category)
	assert.Len(t, body.MonthlyCashflow, 1)
}

func TestChat(t *testing.T) {
	tests := []struct {
		name   string
		chat   Answerer
		body   string
		status int
	}{
		{"answer", &stubChat{reply: &assistant.ChatReply{Answer: "Fine."}}, `{"question":"How am I doing?"}`, http.StatusOK},
		{"bad json", &stubChat{}, `{`, http.StatusBadRequest},
		{"empty question", &stubChat{}, `{"question":" "}`, http.StatusBadRequest},
		{"no model", &stubChat{err: assistant.ErrAssistantUnavailable}, `{"question":"hi"}`, http.StatusServiceUnavailable},
		{"model error", &stubChat{err: errors.New("quota")}, `{"question":"hi"}`, http.StatusInternalServerError},
		{"chat disabled", nil, `{"question":"hi"}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(sampleStore(), tt.chat)
			rec := httptest.NewRecorder()
			h.Chat(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestConnectGetSummary(t *testing.T) {
	store := sampleStore()
	h := newHandler(store, nil)

	mux := http.NewServeMux()
	mux.Handle(h.ConnectHandler())
	server := httptest.NewServer(mux)
	defer server.Close()

	client := connect.NewClient[structpb.Struct, structpb.Struct](server.Client(), server.URL+GetSummaryProcedure)

	req, err := structpb.NewStruct(map[string]any{"account_id": "A1"})
	require.NoError(t, err)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(req))
	require.NoError(t, err)

	fields := resp.Msg.GetFields()
	assert.Equal(t, 35000.0, fields["net_cashflow"].GetNumberValue())
	assert.Equal(t, "A1", store.filter.AccountID)

	t.Run("invalid limit", func(t *testing.T) {
		req, err := structpb.NewStruct(map[string]any{"limit": -1})
		require.NoError(t, err)
		_, err = client.CallUnary(context.Background(), connect.NewRequest(req))
		require.Error(t, err)
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}

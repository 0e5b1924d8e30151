// Package handler serves summaries, charts and chat over HTTP, and the
// InsightsService summary over Connect.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/FACorreiaa/finova/internal/domain/assistant"
	"github.com/FACorreiaa/finova/internal/domain/import/repository"
	"github.com/FACorreiaa/finova/internal/domain/insights"
	"github.com/FACorreiaa/finova/pkg/middleware"
)

// GetSummaryProcedure is the Connect procedure for the summary RPC.
const GetSummaryProcedure = "/finova.v1.InsightsService/GetSummary"

// Summarizer is the insights service surface used here.
type Summarizer interface {
	Summary(ctx context.Context, filter repository.ListFilter) (insights.SummaryReport, error)
	Charts(ctx context.Context, filter repository.ListFilter) (insights.ChartData, error)
}

// Answerer answers chat questions.
type Answerer interface {
	Answer(ctx context.Context, question string, filter repository.ListFilter) (*assistant.ChatReply, error)
}

// InsightsHandler serves the read side of the dashboard.
type InsightsHandler struct {
	svc    Summarizer
	chat   Answerer
	logger *slog.Logger
}

// NewInsightsHandler constructs a new handler. chat may be nil.
func NewInsightsHandler(svc Summarizer, chat Answerer, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{svc: svc, chat: chat, logger: logger}
}

// GetSummary handles GET /api/v1/summary.
func (h *InsightsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := repository.ParseListFilter(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.svc.Summary(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to build summary", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// GetCharts handles GET /api/v1/charts.
func (h *InsightsHandler) GetCharts(w http.ResponseWriter, r *http.Request) {
	filter, err := repository.ParseListFilter(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	charts, err := h.svc.Charts(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to build charts", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to build charts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, charts)
}

type chatRequest struct {
	Question  string `json:"question"`
	BankName  string `json:"bank_name"`
	AccountID string `json:"account_id"`
}

// Chat handles POST /api/v1/chat.
func (h *InsightsHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, assistant.ErrAssistantUnavailable.Error())
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chat.Answer(r.Context(), req.Question, repository.ListFilter{BankName: req.BankName, AccountID: req.AccountID})
	switch {
	case errors.Is(err, assistant.ErrEmptyQuestion):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, assistant.ErrAssistantUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to answer question", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, reply)
}

// ConnectHandler returns the path and handler for the Connect summary RPC.
// Messages are google.protobuf.Struct so clients need no generated code.
func (h *InsightsHandler) ConnectHandler(opts ...connect.HandlerOption) (string, http.Handler) {
	return GetSummaryProcedure, connect.NewUnaryHandler(GetSummaryProcedure, h.getSummaryRPC, opts...)
}

func (h *InsightsHandler) getSummaryRPC(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	filter, err := filterFromStruct(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	report, err := h.svc.Summary(ctx, filter)
	if err != nil {
		h.logger.Error("failed to build summary", slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to build summary"))
	}

	msg, err := toStruct(report)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func filterFromStruct(msg *structpb.Struct) (repository.ListFilter, error) {
	var filter repository.ListFilter
	if msg == nil {
		return filter, nil
	}
	fields := msg.GetFields()
	filter.BankName = fields["bank_name"].GetStringValue()
	filter.AccountID = fields["account_id"].GetStringValue()
	if v, ok := fields["limit"]; ok {
		limit := v.GetNumberValue()
		if limit < 0 || limit != float64(int(limit)) {
			return filter, fmt.Errorf("invalid limit %v", limit)
		}
		filter.Limit = int(limit)
	}
	return filter, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	msg, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return msg, nil
}

package insights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/finova/internal/domain/categorization"
	"github.com/FACorreiaa/finova/internal/domain/import/repository"
	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// TransactionLister is the read side of the transaction store.
type TransactionLister interface {
	List(ctx context.Context, filter repository.ListFilter) ([]statement.Transaction, error)
}

// Service loads stored transactions, categorizes them and aggregates.
// Categorized sets are cached per filter until Invalidate.
type Service struct {
	store      TransactionLister
	classifier *categorization.Classifier
	cache      *cache.Cache
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewService creates an insights service. A ttl of zero disables caching.
func NewService(store TransactionLister, classifier *categorization.Classifier, ttl time.Duration, logger *slog.Logger) *Service {
	var c *cache.Cache
	if ttl > 0 {
		c = cache.New(ttl, 2*ttl)
	}
	return &Service{
		store:      store,
		classifier: classifier,
		cache:      c,
		logger:     logger,
		tracer:     otel.Tracer("finova/insights"),
	}
}

func cacheKey(filter repository.ListFilter) string {
	return fmt.Sprintf("tx|%s|%s|%d", filter.BankName, filter.AccountID, filter.Limit)
}

// Transactions returns categorized transactions matching filter.
func (s *Service) Transactions(ctx context.Context, filter repository.ListFilter) ([]statement.Transaction, error) {
	key := cacheKey(filter)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached.([]statement.Transaction), nil
		}
	}

	txs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	categorized := s.classifier.Categorize(txs)

	if s.cache != nil {
		s.cache.SetDefault(key, categorized)
	}
	return categorized, nil
}

// Summary aggregates the transactions matching filter.
func (s *Service) Summary(ctx context.Context, filter repository.ListFilter) (SummaryReport, error) {
	ctx, span := s.tracer.Start(ctx, "Insights.Summary")
	defer span.End()

	txs, err := s.Transactions(ctx, filter)
	if err != nil {
		return SummaryReport{}, err
	}
	span.SetAttributes(attribute.Int("transactions", len(txs)))
	return Summarize(txs), nil
}

// Charts builds dashboard series for the transactions matching filter.
func (s *Service) Charts(ctx context.Context, filter repository.ListFilter) (ChartData, error) {
	ctx, span := s.tracer.Start(ctx, "Insights.Charts")
	defer span.End()

	txs, err := s.Transactions(ctx, filter)
	if err != nil {
		return ChartData{}, err
	}
	return Charts(txs), nil
}

// Invalidate drops cached results after new transactions are stored.
func (s *Service) Invalidate() {
	if s.cache == nil {
		return
	}
	n := s.cache.ItemCount()
	s.cache.Flush()
	s.logger.Debug("insights cache invalidated", slog.Int("entries", n))
}

package assistant

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

type indexDocument struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	BankName    string `json:"bank_name"`
	AccountID   string `json:"account_id"`
	Date        string `json:"date"`
}

// SearchHit is a transaction matched by a full-text query.
type SearchHit struct {
	Transaction statement.Transaction `json:"transaction"`
	Score       float64               `json:"score"`
}

// Index is an in-memory full-text index over transaction descriptions.
// Queries tolerate one typo per term.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	docs  map[string]statement.Transaction
	next  int
}

// NewIndex creates an empty index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Index{index: idx, docs: make(map[string]statement.Transaction)}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = simple.Name

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("description", text)
	doc.AddFieldMappingsAt("category", text)
	doc.AddFieldMappingsAt("bank_name", exact)
	doc.AddFieldMappingsAt("account_id", exact)
	doc.AddFieldMappingsAt("date", exact)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = simple.Name
	return m
}

// Add indexes transactions in one batch.
func (i *Index) Add(txs []statement.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.index.NewBatch()
	added := make(map[string]statement.Transaction, len(txs))
	for n, tx := range txs {
		id := strconv.Itoa(i.next + n)
		doc := indexDocument{
			Description: tx.Description,
			Category:    tx.Category,
			BankName:    tx.BankName,
			AccountID:   tx.AccountID,
			Date:        tx.Date,
		}
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("failed to index transaction %q: %w", tx.Description, err)
		}
		added[id] = tx
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply index batch: %w", err)
	}
	for id, tx := range added {
		i.docs[id] = tx
	}
	i.next += len(txs)
	return nil
}

// Search returns up to limit transactions matching query, best first.
func (i *Index) Search(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	match := bleve.NewMatchQuery(query)
	match.SetFuzziness(1)
	req := bleve.NewSearchRequestOptions(match, limit, 0, false)

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search transactions: %w", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		tx, ok := i.docs[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, SearchHit{Transaction: tx, Score: h.Score})
	}
	return hits, nil
}

// Len returns the number of indexed transactions.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}

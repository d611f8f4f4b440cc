// Package meili adapts a Meilisearch server to search.Backend. Every write
// waits for its task to finish, so a nil error means the change is visible
// to searches.
package meili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/common"
	"github.com/dmitrijs2005/fastsearch/internal/server/search"
	"github.com/meilisearch/meilisearch-go"
)

const defaultTaskInterval = 50 * time.Millisecond

type Backend struct {
	client       meilisearch.ServiceManager
	taskInterval time.Duration
}

var _ search.Backend = (*Backend)(nil)

type Option func(*Backend)

// WithTaskInterval sets how often pending tasks are polled.
func WithTaskInterval(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.taskInterval = d
		}
	}
}

// New connects to the Meilisearch server at host. apiKey may be empty.
func New(host, apiKey string, opts ...Option) *Backend {
	var clientOpts []meilisearch.Option
	if apiKey != "" {
		clientOpts = append(clientOpts, meilisearch.WithAPIKey(apiKey))
	}
	return NewWithClient(meilisearch.New(host, clientOpts...), opts...)
}

func NewWithClient(client meilisearch.ServiceManager, opts ...Option) *Backend {
	b := &Backend{client: client, taskInterval: defaultTaskInterval}
	for _, o := range opts {
		o(b)
	}
	return b
}

func isNotFound(err error) bool {
	var me *meilisearch.Error
	return errors.As(err, &me) && me.StatusCode == http.StatusNotFound
}

func (b *Backend) wait(ctx context.Context, op string, info *meilisearch.TaskInfo, err error) error {
	if err != nil {
		return search.Unavailable(op, err)
	}
	task, err := b.client.WaitForTaskWithContext(ctx, info.TaskUID, b.taskInterval)
	if err != nil {
		return search.Unavailable(op, err)
	}
	if task.Status != meilisearch.TaskStatusSucceeded {
		return search.Unavailable(op, fmt.Errorf("task %d %s: %s", info.TaskUID, task.Status, task.Error.Message))
	}
	return nil
}

func (b *Backend) EnsureIndex(ctx context.Context, index, primaryKey string) error {
	_, err := b.client.GetIndexWithContext(ctx, index)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return search.Unavailable("get index", err)
	}

	info, err := b.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{Uid: index, PrimaryKey: primaryKey})
	return b.wait(ctx, "create index", info, err)
}

func (b *Backend) GetSettings(ctx context.Context, index string) (search.Settings, error) {
	s, err := b.client.Index(index).GetSettingsWithContext(ctx)
	if err != nil {
		return search.Settings{}, search.Unavailable("get settings", err)
	}

	out := search.Settings{
		Searchable: s.SearchableAttributes,
		Filterable: s.FilterableAttributes,
		Sortable:   s.SortableAttributes,
	}
	if s.Pagination != nil {
		out.PaginationCeiling = s.Pagination.MaxTotalHits
	}
	return out, nil
}

func (b *Backend) UpdateSettings(ctx context.Context, index string, s search.Settings) error {
	info, err := b.client.Index(index).UpdateSettingsWithContext(ctx, &meilisearch.Settings{
		SearchableAttributes: s.Searchable,
		FilterableAttributes: s.Filterable,
		SortableAttributes:   s.Sortable,
		Pagination:           &meilisearch.Pagination{MaxTotalHits: s.PaginationCeiling},
	})
	return b.wait(ctx, "update settings", info, err)
}

func (b *Backend) AddDocuments(ctx context.Context, index string, docs []search.Document) error {
	if len(docs) == 0 {
		return nil
	}
	info, err := b.client.Index(index).AddDocumentsWithContext(ctx, docs, search.PrimaryKey)
	return b.wait(ctx, "add documents", info, err)
}

func (b *Backend) GetDocument(ctx context.Context, index, id string) (*search.Document, error) {
	var d search.Document
	err := b.client.Index(index).GetDocumentWithContext(ctx, id, &meilisearch.DocumentQuery{}, &d)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("document %q: %w", id, common.ErrNotFound)
		}
		return nil, search.Unavailable("get document", err)
	}
	return &d, nil
}

func (b *Backend) Search(ctx context.Context, index string, q search.Query) (*search.Result, error) {
	q = q.Normalized()

	resp, err := b.client.Index(index).SearchWithContext(ctx, q.Term, &meilisearch.SearchRequest{
		Page:                  int64(q.Page),
		HitsPerPage:           int64(q.Limit),
		AttributesToHighlight: []string{"*"},
		HighlightPreTag:       search.HighlightPreTag,
		HighlightPostTag:      search.HighlightPostTag,
		Filter:                FilterExpression(q.Filter),
		Sort:                  q.Sort,
	})
	if err != nil {
		return nil, search.Unavailable("search", err)
	}

	hits, err := decodeHits(resp.Hits)
	if err != nil {
		return nil, search.Unavailable("search", err)
	}

	return &search.Result{
		Hits:           hits,
		Total:          resp.TotalHits,
		Page:           q.Page,
		Limit:          q.Limit,
		ProcessingTime: time.Duration(resp.ProcessingTimeMs) * time.Millisecond,
	}, nil
}

// decodeHits converts the client's generic hit values into documents.
func decodeHits(raw any) ([]search.Document, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var hits []search.Document
	if err := json.Unmarshal(b, &hits); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	return hits, nil
}

// FilterExpression renders the live-only constraint plus equality filters in
// Meilisearch filter syntax, with attributes in a stable order.
func FilterExpression(filter map[string]string) string {
	parts := []string{"deleted_at = " + strconv.FormatInt(search.ZeroTimestamp, 10)}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = %s", k, strconv.Quote(filter[k])))
	}
	return strings.Join(parts, " AND ")
}

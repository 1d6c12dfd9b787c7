package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/observability/telemetry"
	"github.com/seu-repo/ai-waiter/internal/ports"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

// Index is the menu retrieval index. The published snapshot is swapped
// atomically on rebuild, so concurrent searches never observe a partially
// written index.
type Index struct {
	repo      ports.MenuRepository
	embedder  ports.Embedder
	topK      int
	threshold float64
	snapshot  atomic.Pointer[snapshot]
	log       *zap.Logger
}

type snapshot struct {
	version int64
	items   []indexedItem
}

type indexedItem struct {
	item   domain.MenuItem
	vector []float32 // L2-normalized
}

func NewIndex(repo ports.MenuRepository, embedder ports.Embedder, cfg config.RetrievalConfig, log *zap.Logger) *Index {
	return &Index{
		repo:      repo,
		embedder:  embedder,
		topK:      cfg.TopK,
		threshold: cfg.Threshold,
		log:       log,
	}
}

// Rebuild embeds every menu item that has no stored vector, persists the
// new vectors, then publishes a fresh snapshot. Readers keep the previous
// snapshot until the single pointer swap at the end.
func (idx *Index) Rebuild(ctx context.Context) error {
	items, err := idx.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("retrieval: load menu: %w", err)
	}

	var missing []int
	var docs []string
	for i := range items {
		if len(items[i].Embedding) == 0 {
			missing = append(missing, i)
			docs = append(docs, items[i].Document())
		}
	}

	if len(docs) > 0 {
		vectors, err := idx.embedder.Embed(ctx, docs)
		if err != nil {
			return fmt.Errorf("retrieval: embed menu: %w", err)
		}
		for j, i := range missing {
			items[i].Embedding = vectors[j]
		}
		if err := idx.repo.SaveAll(ctx, items); err != nil {
			return fmt.Errorf("retrieval: persist embeddings: %w", err)
		}
	}

	indexed := make([]indexedItem, 0, len(items))
	for i := range items {
		indexed = append(indexed, indexedItem{
			item:   items[i],
			vector: normalize(items[i].Embedding),
		})
	}
	// Stable base order keeps tie-breaking reproducible.
	sort.Slice(indexed, func(a, b int) bool { return indexed[a].item.ID < indexed[b].item.ID })

	prev := idx.snapshot.Load()
	var version int64 = 1
	if prev != nil {
		version = prev.version + 1
	}
	idx.snapshot.Store(&snapshot{version: version, items: indexed})

	idx.log.Info("Menu index rebuilt",
		zap.Int64("version", version),
		zap.Int("items", len(indexed)),
		zap.Int("embedded", len(docs)),
	)
	return nil
}

// Search returns at most topK available items scoring at or above the
// relevance threshold, ordered by descending score, ties by ascending id.
// No match is an empty result, not an error.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]domain.ScoredItem, error) {
	snap := idx.snapshot.Load()
	if snap == nil || len(snap.items) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = idx.topK
	}

	start := time.Now()
	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	qv := normalize(vectors[0])

	var hits []domain.ScoredItem
	for i := range snap.items {
		if !snap.items[i].item.Available {
			continue
		}
		score := dot(qv, snap.items[i].vector)
		if score >= idx.threshold {
			hits = append(hits, domain.ScoredItem{Item: snap.items[i].item, Score: score})
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Item.ID < hits[b].Item.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	telemetry.RetrievalLatency.Observe(time.Since(start).Seconds())
	telemetry.RetrievalResults.Observe(float64(len(hits)))
	return hits, nil
}

// Resolve maps an item id or spoken dish name onto an available item in
// the current snapshot.
func (idx *Index) Resolve(ctx context.Context, ref string) (*domain.MenuItem, error) {
	snap := idx.snapshot.Load()
	if snap == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMenuItem, ref)
	}

	needle := strings.ToLower(strings.TrimSpace(ref))
	for i := range snap.items {
		it := &snap.items[i].item
		if it.ID == ref || strings.ToLower(it.Name) == needle {
			if !it.Available {
				return nil, fmt.Errorf("%w: %q is unavailable", domain.ErrUnknownMenuItem, ref)
			}
			cp := *it
			return &cp, nil
		}
	}

	// Spoken names rarely match exactly; fall back to the vector index.
	hits, err := idx.Search(ctx, ref, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMenuItem, ref)
	}
	cp := hits[0].Item
	return &cp, nil
}

// Version returns the published snapshot version, 0 when nothing has been
// published yet.
func (idx *Index) Version() int64 {
	snap := idx.snapshot.Load()
	if snap == nil {
		return 0
	}
	return snap.version
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

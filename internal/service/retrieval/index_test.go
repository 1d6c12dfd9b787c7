package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/mocks"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// keywordEmbedder maps texts onto fixed unit vectors so scores are
// deterministic: phở -> x axis, cà phê -> y axis, everything else -> z.
func keywordEmbedder() *mocks.MockEmbedder {
	return &mocks.MockEmbedder{
		EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i, text := range texts {
				lower := strings.ToLower(text)
				switch {
				case strings.Contains(lower, "phở"):
					out[i] = []float32{1, 0, 0}
				case strings.Contains(lower, "cà phê"):
					out[i] = []float32{0, 1, 0}
				default:
					out[i] = []float32{0, 0, 1}
				}
			}
			return out, nil
		},
	}
}

func testMenu() []domain.MenuItem {
	return []domain.MenuItem{
		{ID: "menu-001", Name: "Phở bò", Description: "Phở bò truyền thống", Price: 65000, Currency: "VND", Available: true},
		{ID: "menu-002", Name: "Cà phê sữa đá", Description: "Cà phê pha phin với sữa đặc", Price: 29000, Currency: "VND", Available: true},
		{ID: "menu-003", Name: "Phở gà", Description: "Phở gà thanh ngọt", Price: 60000, Currency: "VND", Available: false},
	}
}

func newTestIndex(t *testing.T, items []domain.MenuItem) *Index {
	t.Helper()
	repo := &mocks.MockMenuRepository{
		FindAllFunc: func(ctx context.Context) ([]domain.MenuItem, error) {
			return items, nil
		},
	}
	idx := NewIndex(repo, keywordEmbedder(), config.RetrievalConfig{TopK: 5, Threshold: 0.3}, newTestLogger())
	if err := idx.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	return idx
}

func TestRebuild_EmbedsOnlyMissingVectors(t *testing.T) {
	// Arrange
	items := testMenu()
	items[0].Embedding = []float32{1, 0, 0} // already embedded

	var embedded []string
	var saved []domain.MenuItem
	repo := &mocks.MockMenuRepository{
		FindAllFunc: func(ctx context.Context) ([]domain.MenuItem, error) {
			return items, nil
		},
		SaveAllFunc: func(ctx context.Context, toSave []domain.MenuItem) error {
			saved = toSave
			return nil
		},
	}
	embedder := &mocks.MockEmbedder{
		EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			embedded = texts
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = []float32{0, 1, 0}
			}
			return out, nil
		},
	}
	idx := NewIndex(repo, embedder, config.RetrievalConfig{TopK: 5, Threshold: 0.3}, newTestLogger())

	// Act
	if err := idx.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	// Assert
	if len(embedded) != 2 {
		t.Fatalf("expected 2 documents embedded, got %d", len(embedded))
	}
	if len(saved) != 3 {
		t.Fatalf("expected all 3 items persisted, got %d", len(saved))
	}
	for _, item := range saved {
		if len(item.Embedding) == 0 {
			t.Errorf("item %s persisted without embedding", item.ID)
		}
	}
	if idx.Version() != 1 {
		t.Errorf("expected version 1, got %d", idx.Version())
	}
}

func TestSearch_FiltersAndRanks(t *testing.T) {
	// Arrange
	idx := newTestIndex(t, testMenu())

	// Act: phở query matches both phở items, but phở gà is unavailable
	hits, err := idx.Search(context.Background(), "phở nào ngon?", 5)

	// Assert
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Item.ID != "menu-001" {
		t.Errorf("expected menu-001, got %s", hits[0].Item.ID)
	}
	if hits[0].Score < 0.99 {
		t.Errorf("expected near-perfect score, got %v", hits[0].Score)
	}
}

func TestSearch_NoMatchIsEmptyNotError(t *testing.T) {
	idx := newTestIndex(t, testMenu())

	hits, err := idx.Search(context.Background(), "món nướng đặc biệt", 5)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestSearch_TopKBounds(t *testing.T) {
	items := []domain.MenuItem{}
	for _, id := range []string{"menu-001", "menu-002", "menu-003", "menu-004"} {
		items = append(items, domain.MenuItem{
			ID: id, Name: "Phở " + id, Description: "phở", Available: true,
		})
	}
	idx := newTestIndex(t, items)

	hits, err := idx.Search(context.Background(), "phở", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected topK=2 hits, got %d", len(hits))
	}
	// Equal scores break ties by ascending id
	if hits[0].Item.ID != "menu-001" || hits[1].Item.ID != "menu-002" {
		t.Errorf("unexpected tie-break order: %s, %s", hits[0].Item.ID, hits[1].Item.ID)
	}
}

func TestResolve(t *testing.T) {
	idx := newTestIndex(t, testMenu())
	ctx := context.Background()

	// Exact id
	item, err := idx.Resolve(ctx, "menu-002")
	if err != nil {
		t.Fatalf("resolve by id failed: %v", err)
	}
	if item.Name != "Cà phê sữa đá" {
		t.Errorf("unexpected item %s", item.Name)
	}

	// Case-insensitive name
	item, err = idx.Resolve(ctx, "phở BÒ")
	if err != nil {
		t.Fatalf("resolve by name failed: %v", err)
	}
	if item.ID != "menu-001" {
		t.Errorf("unexpected item %s", item.ID)
	}

	// Unavailable exact match is not served
	if _, err := idx.Resolve(ctx, "Phở gà"); !errors.Is(err, domain.ErrUnknownMenuItem) {
		t.Errorf("expected ErrUnknownMenuItem for unavailable item, got %v", err)
	}

	// Fuzzy spoken reference falls back to the vector index
	item, err = idx.Resolve(ctx, "cho xin một ly cà phê")
	if err != nil {
		t.Fatalf("vector fallback failed: %v", err)
	}
	if item.ID != "menu-002" {
		t.Errorf("expected menu-002 from fallback, got %s", item.ID)
	}

	// Nothing matches at all
	if _, err := idx.Resolve(ctx, "bánh mì kẹp phô mai"); !errors.Is(err, domain.ErrUnknownMenuItem) {
		t.Errorf("expected ErrUnknownMenuItem, got %v", err)
	}
}

func TestRebuild_ConcurrentWithSearch(t *testing.T) {
	idx := newTestIndex(t, testMenu())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := idx.Search(ctx, "phở", 5); err != nil {
					t.Errorf("search during rebuild failed: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		if err := idx.Rebuild(ctx); err != nil {
			t.Fatalf("rebuild failed: %v", err)
		}
	}
	wg.Wait()

	// Initial build plus ten rebuilds
	if idx.Version() != 11 {
		t.Errorf("expected version 11, got %d", idx.Version())
	}
}

package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

type seedItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Ingredients string  `json:"ingredients"`
	Price       float64 `json:"price"`
	Available   *bool   `json:"available"`
}

// SeedFromFile loads menu content from a JSON file into the repository.
// Items default to available; existing rows are upserted by id.
func SeedFromFile(ctx context.Context, path, currency string, repo ports.MenuRepository) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("retrieval: read seed file: %w", err)
	}

	var seeds []seedItem
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return 0, fmt.Errorf("retrieval: parse seed file: %w", err)
	}

	now := time.Now()
	items := make([]domain.MenuItem, 0, len(seeds))
	for i, s := range seeds {
		if s.Name == "" || s.Description == "" {
			continue // name and description are required for retrieval
		}
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("menu-%03d", i+1)
		}
		available := true
		if s.Available != nil {
			available = *s.Available
		}
		items = append(items, domain.MenuItem{
			ID:          id,
			Name:        s.Name,
			Description: s.Description,
			Category:    s.Category,
			Ingredients: s.Ingredients,
			Price:       s.Price,
			Currency:    currency,
			Available:   available,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := repo.SaveAll(ctx, items); err != nil {
		return 0, fmt.Errorf("retrieval: save seed items: %w", err)
	}
	return len(items), nil
}

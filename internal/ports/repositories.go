package ports

import (
	"context"
	"time"

	"github.com/seu-repo/ai-waiter/internal/domain"
)

type SessionRepository interface {
	Save(ctx context.Context, session *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	FindIdleSince(ctx context.Context, cutoff time.Time) ([]domain.Session, error)
	Close(ctx context.Context, id string) error
}

type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindActiveBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
}

type MenuRepository interface {
	SaveAll(ctx context.Context, items []domain.MenuItem) error
	FindAll(ctx context.Context) ([]domain.MenuItem, error)
	FindByID(ctx context.Context, id string) (*domain.MenuItem, error)
}

type TurnRepository interface {
	Save(ctx context.Context, turn *domain.Turn) error
	FindBySessionID(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
}

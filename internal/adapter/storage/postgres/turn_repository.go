package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

type TurnRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTurnRepository(db *gorm.DB, log *zap.Logger) ports.TurnRepository {
	return &TurnRepository{
		db:  db,
		log: log,
	}
}

func (r *TurnRepository) Save(ctx context.Context, turn *domain.Turn) error {
	return r.db.WithContext(ctx).Save(turn).Error
}

func (r *TurnRepository) FindBySessionID(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	var turns []domain.Turn
	q := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("seq asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&turns).Error
	return turns, err
}

package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

type MenuRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewMenuRepository(db *gorm.DB, log *zap.Logger) ports.MenuRepository {
	return &MenuRepository{
		db:  db,
		log: log,
	}
}

func (r *MenuRepository) SaveAll(ctx context.Context, items []domain.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&items).Error
}

func (r *MenuRepository) FindAll(ctx context.Context) ([]domain.MenuItem, error) {
	var items []domain.MenuItem
	err := r.db.WithContext(ctx).Order("id asc").Find(&items).Error
	return items, err
}

func (r *MenuRepository) FindByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

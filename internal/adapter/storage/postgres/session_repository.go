package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

type SessionRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSessionRepository(db *gorm.DB, log *zap.Logger) ports.SessionRepository {
	return &SessionRepository{
		db:  db,
		log: log,
	}
}

func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).Preload("Turns", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq asc")
	}).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) FindIdleSince(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.SessionStatusActive, cutoff).
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) Close(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": domain.SessionStatusClosed, "updated_at": time.Now()}).Error
}

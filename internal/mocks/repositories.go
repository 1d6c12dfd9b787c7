package mocks

import (
	"context"
	"time"

	"github.com/seu-repo/ai-waiter/internal/domain"
)

// MockSessionRepository is a mock implementation of SessionRepository interface
type MockSessionRepository struct {
	SaveFunc          func(ctx context.Context, session *domain.Session) error
	FindByIDFunc      func(ctx context.Context, id string) (*domain.Session, error)
	FindIdleSinceFunc func(ctx context.Context, cutoff time.Time) ([]domain.Session, error)
	CloseFunc         func(ctx context.Context, id string) error
}

func (m *MockSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockSessionRepository) FindIdleSince(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	if m.FindIdleSinceFunc != nil {
		return m.FindIdleSinceFunc(ctx, cutoff)
	}
	return []domain.Session{}, nil
}

func (m *MockSessionRepository) Close(ctx context.Context, id string) error {
	if m.CloseFunc != nil {
		return m.CloseFunc(ctx, id)
	}
	return nil
}

// MockOrderRepository is a mock implementation of OrderRepository interface
type MockOrderRepository struct {
	SaveFunc                  func(ctx context.Context, order *domain.Order) error
	FindByIDFunc              func(ctx context.Context, id string) (*domain.Order, error)
	FindActiveBySessionIDFunc func(ctx context.Context, sessionID string) (*domain.Order, error)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, order)
	}
	return nil
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderRepository) FindActiveBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	if m.FindActiveBySessionIDFunc != nil {
		return m.FindActiveBySessionIDFunc(ctx, sessionID)
	}
	return nil, nil
}

// MockMenuRepository is a mock implementation of MenuRepository interface
type MockMenuRepository struct {
	SaveAllFunc  func(ctx context.Context, items []domain.MenuItem) error
	FindAllFunc  func(ctx context.Context) ([]domain.MenuItem, error)
	FindByIDFunc func(ctx context.Context, id string) (*domain.MenuItem, error)
}

func (m *MockMenuRepository) SaveAll(ctx context.Context, items []domain.MenuItem) error {
	if m.SaveAllFunc != nil {
		return m.SaveAllFunc(ctx, items)
	}
	return nil
}

func (m *MockMenuRepository) FindAll(ctx context.Context) ([]domain.MenuItem, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return []domain.MenuItem{}, nil
}

func (m *MockMenuRepository) FindByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

// MockTurnRepository is a mock implementation of TurnRepository interface
type MockTurnRepository struct {
	SaveFunc            func(ctx context.Context, turn *domain.Turn) error
	FindBySessionIDFunc func(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
}

func (m *MockTurnRepository) Save(ctx context.Context, turn *domain.Turn) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, turn)
	}
	return nil
}

func (m *MockTurnRepository) FindBySessionID(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if m.FindBySessionIDFunc != nil {
		return m.FindBySessionIDFunc(ctx, sessionID, limit)
	}
	return []domain.Turn{}, nil
}

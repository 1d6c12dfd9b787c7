package mocks

import "sync"

// MockQueue is a mock implementation of MessageQueue interface. Published
// messages are recorded for assertions.
type MockQueue struct {
	mu        sync.Mutex
	Published map[string][][]byte

	PublishFunc   func(subject string, data []byte) error
	SubscribeFunc func(subject string, handler func(data []byte) error) error
}

func (m *MockQueue) Publish(subject string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(subject, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Published == nil {
		m.Published = make(map[string][][]byte)
	}
	m.Published[subject] = append(m.Published[subject], data)
	return nil
}

func (m *MockQueue) Subscribe(subject string, handler func(data []byte) error) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(subject, handler)
	}
	return nil
}

func (m *MockQueue) Close() error { return nil }

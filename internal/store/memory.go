package store

import (
	"context"
	"sync"

	"github.com/Guizzs26/suya-queue/internal/models"
)

// MemoryDeviceStore is the process-local device store used when no database is configured.
// Watchers only see writes made through this same instance.
type MemoryDeviceStore struct {
	mu       sync.Mutex
	serving  DeviceServing
	watchers map[chan DeviceServing]struct{}
}

func NewMemoryDeviceStore() *MemoryDeviceStore {
	return &MemoryDeviceStore{
		serving:  initialServing(),
		watchers: make(map[chan DeviceServing]struct{}),
	}
}

func (s *MemoryDeviceStore) LoadServing(_ context.Context) (DeviceServing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serving, nil
}

func (s *MemoryDeviceStore) SaveServing(_ context.Context, v DeviceServing) (DeviceServing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !Supersedes(v, s.serving) {
		return s.serving, nil
	}
	s.serving = v
	for ch := range s.watchers {
		sendLatest(ch, v)
	}
	return s.serving, nil
}

func (s *MemoryDeviceStore) Watch(ctx context.Context) (<-chan DeviceServing, error) {
	ch := make(chan DeviceServing, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *MemoryDeviceStore) Close() {}

// sendLatest replaces any undelivered value so a slow watcher sees the newest one
func sendLatest(ch chan DeviceServing, v DeviceServing) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// MemorySessionStore holds one session in process memory
type MemorySessionStore struct {
	mu      sync.Mutex
	number  string
	pending *models.PendingRegistration
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) QueueNumber(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.number, nil
}

func (s *MemorySessionStore) BindQueueNumber(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.number = number
	return nil
}

func (s *MemorySessionStore) Pending(_ context.Context) (*models.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil, nil
	}
	p := *s.pending
	return &p, nil
}

func (s *MemorySessionStore) SavePending(_ context.Context, p models.PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &p
	return nil
}

func (s *MemorySessionStore) ClearPending(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.number = ""
	s.pending = nil
	return nil
}

package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
)

// MemoryStore keeps states and objects in memory. It is not persisted.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]domain.State
	objects map[string]domain.Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[string]domain.State),
		objects: make(map[string]domain.Object),
	}
}

func (s *MemoryStore) GetState(ctx context.Context, id string) (domain.StateValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[id]
	if !ok {
		return domain.Absent(), nil
	}
	return domain.Present(st), nil
}

func (s *MemoryStore) SetState(ctx context.Context, id string, val any, ack bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[id] = domain.State{
		Val: val,
		Ack: ack,
		Ts:  time.Now(),
	}
	return nil
}

func (s *MemoryStore) States(ctx context.Context, prefix string) (map[string]domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make(map[string]domain.State)
	for id, st := range s.states {
		if strings.HasPrefix(id, prefix) {
			res[id] = st
		}
	}
	return res, nil
}

func (s *MemoryStore) GetObject(ctx context.Context, id string) (*domain.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]
	if !ok {
		return nil, nil
	}
	return &obj, nil
}

func (s *MemoryStore) PutObject(ctx context.Context, obj domain.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[obj.ID] = obj
	return nil
}

// ExtendObject merges patch into the object, creating it when missing.
func (s *MemoryStore) ExtendObject(ctx context.Context, id string, patch domain.ObjectPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		obj = domain.Object{ID: id}
	}
	s.objects[id] = patch.Apply(obj)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

package service

import (
	"context"
	"errors"
	"sync"

	"github.com/berfenger/devstate2mqtt/internal/core/domain"
)

var errBoom = errors.New("boom")

type deviceId string

func (d deviceId) DeviceID() string {
	return string(d)
}

type setCall struct {
	id  string
	val any
	ack bool
}

// fakeStore counts calls and fails on demand.
type fakeStore struct {
	mu         sync.Mutex
	states     map[string]domain.State
	objects    map[string]domain.Object
	sets       []setCall
	extends    []string
	failGet    map[string]bool
	failSet    bool
	failExtend bool
	afterGet   func()
	names      map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:  map[string]domain.State{},
		objects: map[string]domain.Object{},
		failGet: map[string]bool{},
		names:   map[string]string{},
	}
}

func (s *fakeStore) put(id string, val any) {
	s.states[id] = domain.State{Val: val, Ack: true}
}

func (s *fakeStore) GetState(ctx context.Context, id string) (domain.StateValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.afterGet != nil {
		defer s.afterGet()
	}
	if s.failGet[id] {
		return domain.Absent(), errBoom
	}
	st, ok := s.states[id]
	if !ok {
		return domain.Absent(), nil
	}
	return domain.Present(st), nil
}

func (s *fakeStore) SetState(ctx context.Context, id string, val any, ack bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return errBoom
	}
	s.sets = append(s.sets, setCall{id: id, val: val, ack: ack})
	s.states[id] = domain.State{Val: val, Ack: ack}
	return nil
}

func (s *fakeStore) GetObject(ctx context.Context, id string) (*domain.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.afterGet != nil {
		defer s.afterGet()
	}
	if s.failGet[id] {
		return nil, errBoom
	}
	obj, ok := s.objects[id]
	if !ok {
		return nil, nil
	}
	return &obj, nil
}

func (s *fakeStore) ExtendObject(ctx context.Context, id string, patch domain.ObjectPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failExtend {
		return errBoom
	}
	s.extends = append(s.extends, id)
	s.objects[id] = patch.Apply(s.objects[id])
	return nil
}

func (s *fakeStore) SetName(id, name string) {
	s.names[id] = name
}

func (s *fakeStore) Name(id string) (string, bool) {
	n, ok := s.names[id]
	return n, ok
}

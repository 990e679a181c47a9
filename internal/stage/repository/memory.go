package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/stage"
)

// MemoryRepo is an in-memory Repository used by unit tests and the
// no-Mongo development mode.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[primitive.ObjectID]*stage.Stage
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[primitive.ObjectID]*stage.Stage)}
}

func (m *MemoryRepo) List(ctx context.Context) ([]*stage.Stage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*stage.Stage, 0, len(m.store))
	for _, s := range m.store {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id primitive.ObjectID) (*stage.Stage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepo) FindByName(ctx context.Context, name string) (*stage.Stage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) MaxOrder(ctx context.Context) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max, ok := 0, false
	for _, s := range m.store {
		if !ok || s.Order > max {
			max, ok = s.Order, true
		}
	}
	return max, ok, nil
}

func (m *MemoryRepo) nameTaken(name string, except primitive.ObjectID) bool {
	for id, s := range m.store {
		if s.Name == name && id != except {
			return true
		}
	}
	return false
}

func (m *MemoryRepo) Create(ctx context.Context, s *stage.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(s.Name, primitive.NilObjectID) {
		return ErrDuplicateName
	}
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MemoryRepo) Update(ctx context.Context, id primitive.ObjectID, p stage.Patch) (*stage.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Name != nil && m.nameTaken(*p.Name, id) {
		return nil, ErrDuplicateName
	}
	p.Apply(s)
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	return &cp, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryRepo) ApplyOrders(ctx context.Context, updates []stage.OrderUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var modified int64
	now := time.Now().UTC()
	for _, u := range updates {
		s, ok := m.store[u.ID]
		if !ok || s.Order == u.Order {
			continue
		}
		s.Order = u.Order
		s.UpdatedAt = now
		modified++
	}
	return modified, nil
}

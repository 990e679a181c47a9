package database

import (
	"bytes"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dealflow/dealflow-api/internal/models"
)

// ErrNoDocument is returned by MemoryDB lookups that match nothing.
var ErrNoDocument = errors.New("document not found")

// MemoryDB is an in-process stand-in for the Mongo collections the service
// reads. It backs unit tests and the no-MONGODB_URI development mode. Readers
// receive copies; writers go through the Update helpers.
type MemoryDB struct {
	mu         sync.RWMutex
	deals      map[primitive.ObjectID]*models.Deal
	activities map[primitive.ObjectID]*models.Activity
	contacts   map[primitive.ObjectID]*models.Contact
	quotas     map[int]models.Quota
	now        func() time.Time
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		deals:      make(map[primitive.ObjectID]*models.Deal),
		activities: make(map[primitive.ObjectID]*models.Activity),
		contacts:   make(map[primitive.ObjectID]*models.Contact),
		quotas:     make(map[int]models.Quota),
		now:        time.Now,
	}
}

func (m *MemoryDB) InsertDeal(d models.Deal) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = m.now().UTC()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	m.deals[d.ID] = &d
	return d.ID
}

func (m *MemoryDB) InsertActivity(a models.Activity) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now().UTC()
	}
	m.activities[a.ID] = &a
	return a.ID
}

func (m *MemoryDB) InsertContact(c models.Contact) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now().UTC()
	}
	m.contacts[c.ID] = &c
	return c.ID
}

// PutQuota upserts the quota for q.Year.
func (m *MemoryDB) PutQuota(q models.Quota) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID.IsZero() {
		q.ID = primitive.NewObjectID()
	}
	m.quotas[q.Year] = q
}

func (m *MemoryDB) Quota(year int) (models.Quota, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotas[year]
	return q, ok
}

// Deals returns copies of every deal, soft-deleted ones included, in _id order.
func (m *MemoryDB) Deals() []models.Deal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Deal, 0, len(m.deals))
	for _, d := range m.deals {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out
}

func (m *MemoryDB) Activities() []models.Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Activity, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out
}

func (m *MemoryDB) Contacts() []models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out
}

// Deal returns a copy of one deal, soft-deleted or not.
func (m *MemoryDB) Deal(id primitive.ObjectID) (models.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deals[id]
	if !ok {
		return models.Deal{}, ErrNoDocument
	}
	return *d, nil
}

// UpdateDeal applies fn to the stored deal under the write lock. fn's error aborts the update.
func (m *MemoryDB) UpdateDeal(id primitive.ObjectID, fn func(d *models.Deal) error) (models.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.deals[id]
	if !ok {
		return models.Deal{}, ErrNoDocument
	}
	next := *cur
	if err := fn(&next); err != nil {
		return models.Deal{}, err
	}
	m.deals[id] = &next
	return next, nil
}

// SoftDeleteDeal marks a deal deleted.
func (m *MemoryDB) SoftDeleteDeal(id primitive.ObjectID) error {
	_, err := m.UpdateDeal(id, func(d *models.Deal) error {
		now := m.now().UTC()
		d.DeletedAt = &now
		return nil
	})
	return err
}

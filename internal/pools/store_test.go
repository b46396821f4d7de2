package pools

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/highlightreel/backend/internal/models"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	pools   map[uuid.UUID]*models.Pool
	members map[uuid.UUID]map[uuid.UUID]bool
	angles  map[int64]*models.Angle
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{
		pools:   map[uuid.UUID]*models.Pool{},
		members: map[uuid.UUID]map[uuid.UUID]bool{},
		angles:  map[int64]*models.Angle{},
	}
}

func (m *memStore) Create(_ context.Context, p *models.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	m.pools[p.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[id]
	if !ok {
		return nil, ErrPoolNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListVisible(_ context.Context, viewer *uuid.UUID) ([]models.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Pool
	for _, p := range m.pools {
		if p.IsPublic || (viewer != nil && (p.OwnerID == *viewer || m.members[p.ID][*viewer])) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListAll(_ context.Context) ([]models.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Pool
	for _, p := range m.pools {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) IsMember(_ context.Context, poolID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[poolID][userID], nil
}

func (m *memStore) AddMember(_ context.Context, poolID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[poolID] == nil {
		m.members[poolID] = map[uuid.UUID]bool{}
	}
	m.members[poolID][userID] = true
	return nil
}

func (m *memStore) CreateAngle(_ context.Context, a *models.Angle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.angles[a.ID] = &cp
	return nil
}

func (m *memStore) GetAngle(_ context.Context, id int64) (*models.Angle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.angles[id]
	if !ok {
		return nil, ErrAngleNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListAngles(_ context.Context, poolID uuid.UUID) ([]models.Angle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Angle
	for id := int64(1); id <= m.nextID; id++ {
		if a, ok := m.angles[id]; ok && a.PoolID == poolID {
			out = append(out, *a)
		}
	}
	return out, nil
}

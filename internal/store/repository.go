package store

import (
	"errors"
	"sync"
)

var (
	ErrNotFound    = errors.New("store not found")
	ErrStoreExists = errors.New("owner already has a store")
)

type Repository interface {
	GetByID(id int) (Store, error)
	GetByOwner(ownerID int) (Store, error)
	Create(st Store) (Store, error)
	Update(id int, st Store) (Store, error)
}

// InMemoryRepository backs tests and local development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	stores []Store
	nextID int
}

func NewInMemoryRepository(seed []Store) *InMemoryRepository {
	r := &InMemoryRepository{
		stores: make([]Store, 0, len(seed)),
		nextID: 1,
	}

	maxID := 0
	for _, st := range seed {
		r.stores = append(r.stores, st)
		if st.ID > maxID {
			maxID = st.ID
		}
	}

	r.nextID = maxID + 1
	return r
}

func (r *InMemoryRepository) GetByID(id int) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, st := range r.stores {
		if st.ID == id {
			return st, nil
		}
	}
	return Store{}, ErrNotFound
}

func (r *InMemoryRepository) GetByOwner(ownerID int) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, st := range r.stores {
		if st.OwnerID == ownerID {
			return st, nil
		}
	}
	return Store{}, ErrNotFound
}

func (r *InMemoryRepository) Create(st Store) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.stores {
		if existing.OwnerID == st.OwnerID {
			return Store{}, ErrStoreExists
		}
	}

	if st.ID == 0 {
		st.ID = r.nextID
		r.nextID++
	}
	r.stores = append(r.stores, st)
	return st, nil
}

func (r *InMemoryRepository) Update(id int, st Store) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.stores {
		if r.stores[i].ID == id {
			st.ID = id
			st.OwnerID = r.stores[i].OwnerID
			st.CreatedAt = r.stores[i].CreatedAt
			r.stores[i] = st
			return st, nil
		}
	}
	return Store{}, ErrNotFound
}

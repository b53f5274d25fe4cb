package spaces

import (
	"context"
	"sync"
)

// InMemoryRepository keeps space metadata in a map. Used for local
// development and tests.
type InMemoryRepository struct {
	lock   sync.RWMutex
	spaces map[string]*Space
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		spaces: make(map[string]*Space),
	}
}

func (r *InMemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *InMemoryRepository) GetSpace(ctx context.Context, spaceID string) (*Space, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	space, ok := r.spaces[spaceID]
	if !ok {
		return nil, &ErrNotFound{}
	}
	copy := *space
	return &copy, nil
}

func (r *InMemoryRepository) ListSpaces(ctx context.Context) ([]*Space, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	result := make([]*Space, 0, len(r.spaces))
	for _, space := range r.spaces {
		copy := *space
		result = append(result, &copy)
	}
	return result, nil
}

func (r *InMemoryRepository) CreateSpace(ctx context.Context, space *Space) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	copy := *space
	r.spaces[space.ID] = &copy
	return nil
}

func (r *InMemoryRepository) DeleteSpace(ctx context.Context, spaceID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.spaces[spaceID]; !ok {
		return &ErrNotFound{}
	}
	delete(r.spaces, spaceID)
	return nil
}

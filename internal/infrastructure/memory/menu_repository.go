package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/menu"
)

type MenuRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewMenuRepository() *MenuRepository {
	return &MenuRepository{items: make(map[string]*domain.Item)}
}

func (r *MenuRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneMenuItem(item), nil
}

func (r *MenuRepository) List(ctx context.Context) ([]*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, cloneMenuItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MenuRepository) Save(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = cloneMenuItem(item)
	return nil
}

func cloneMenuItem(item *domain.Item) *domain.Item {
	if item == nil {
		return nil
	}
	clone := *item
	return &clone
}

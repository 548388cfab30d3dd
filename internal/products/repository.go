// Package products manages catalog items: storage and the catalog use cases
// around analysis and publishing.
package products

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonathan/catalog-agent/internal/types"
)

// ErrNotFound is returned when a product does not exist.
var ErrNotFound = errors.New("product not found")

// Repository persists products. Implementations store and return copies.
type Repository interface {
	Create(ctx context.Context, product *types.Product) (*types.Product, error)
	FindByID(ctx context.Context, id string) (*types.Product, error)
	FindAll(ctx context.Context) ([]*types.Product, error)
	FindAllPublished(ctx context.Context) ([]*types.Product, error)
	Update(ctx context.Context, product *types.Product) (*types.Product, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]*types.Product
}

// NewMemoryRepository creates a repository holding copies of seed.
func NewMemoryRepository(seed ...*types.Product) *MemoryRepository {
	r := &MemoryRepository{products: make(map[string]*types.Product, len(seed))}
	for _, p := range seed {
		r.products[p.ID] = p.Clone()
	}
	return r
}

// Create stores a new product.
func (r *MemoryRepository) Create(_ context.Context, product *types.Product) (*types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product.Clone()
	return product.Clone(), nil
}

// FindByID returns the product or ErrNotFound.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*types.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// FindAll returns every product, oldest first.
func (r *MemoryRepository) FindAll(_ context.Context) ([]*types.Product, error) {
	return r.list(func(*types.Product) bool { return true }), nil
}

// FindAllPublished returns the published products, oldest first.
func (r *MemoryRepository) FindAllPublished(_ context.Context) ([]*types.Product, error) {
	return r.list(func(p *types.Product) bool { return p.Published }), nil
}

// Update replaces a stored product and touches UpdatedAt.
func (r *MemoryRepository) Update(_ context.Context, product *types.Product) (*types.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; !ok {
		return nil, ErrNotFound
	}
	stored := product.Clone()
	stored.UpdatedAt = time.Now()
	r.products[product.ID] = stored
	return stored.Clone(), nil
}

// Delete removes a product.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryRepository) list(keep func(*types.Product) bool) []*types.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.Product, 0, len(r.products))
	for _, p := range r.products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

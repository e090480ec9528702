package cart

import (
	"context"
	"sync"

	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
)

type memoryRepo struct {
	mu       sync.RWMutex
	carts    map[string]domain.Cart
	currency currency.Unit
}

func NewMemory(cur currency.Unit) Repository {
	return &memoryRepo{carts: make(map[string]domain.Cart), currency: cur}
}

func (r *memoryRepo) Load(_ context.Context, sessionKey string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[sessionKey]
	if !ok {
		empty := domain.NewCart(r.currency)
		return &empty, nil
	}
	clone := c.Clone()
	return &clone, nil
}

func (r *memoryRepo) Save(_ context.Context, sessionKey string, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[sessionKey] = cart.Clone()
	return nil
}

package order

import (
	"context"
	"sort"
	"sync"

	"tienda-b2b/internal/domain"
)

type memoryRepo struct {
	mu     sync.RWMutex
	orders map[int64]domain.Order
}

var _ Repository = (*memoryRepo)(nil)

func NewMemory() Repository {
	return &memoryRepo{orders: make(map[int64]domain.Order)}
}

func (r *memoryRepo) Upsert(_ context.Context, o domain.Order) error {
	id, ok := o.Ref.RemoteID()
	if !ok {
		return domain.ErrInvalidOrderReference
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[id] = copyOrder(o)
	return nil
}

func (r *memoryRepo) ReplaceForCustomer(_ context.Context, customerID int64, orders []domain.Order) error {
	for _, o := range orders {
		if o.Ref.IsLocal() {
			return domain.ErrInvalidOrderReference
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			delete(r.orders, id)
		}
	}
	for _, o := range orders {
		id, _ := o.Ref.RemoteID()
		r.orders[id] = copyOrder(o)
	}
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyOrder(o)
	return &out, nil
}

func (r *memoryRepo) ListByCustomer(_ context.Context, customerID int64) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []domain.Order{}
	for _, o := range r.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			result = append(result, copyOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ref.LegacyID() > result[j].Ref.LegacyID()
	})
	return result, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id int64, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	r.orders[id] = o
	return nil
}

func copyOrder(o domain.Order) domain.Order {
	if o.Lines != nil {
		o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	}
	return o
}

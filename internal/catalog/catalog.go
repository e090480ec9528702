package catalog

import (
	"context"
	"sync"

	"tienda-b2b/internal/domain"
)

// Lookup resolves a variant id to its catalog attributes.
// Implementations return domain.ErrVariantNotFound for unknown ids.
type Lookup interface {
	Lookup(ctx context.Context, variantID int64) (domain.Variant, error)
}

// Memory is an in-process catalog.
type Memory struct {
	mu       sync.RWMutex
	variants map[int64]domain.Variant
}

var _ Lookup = (*Memory)(nil)

func NewMemory(variants ...domain.Variant) *Memory {
	m := &Memory{variants: make(map[int64]domain.Variant, len(variants))}
	for _, v := range variants {
		m.variants[v.ID] = v
	}
	return m
}

func (m *Memory) Lookup(_ context.Context, variantID int64) (domain.Variant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.variants[variantID]
	if !ok {
		return domain.Variant{}, domain.ErrVariantNotFound
	}
	return v, nil
}

func (m *Memory) Upsert(v domain.Variant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants[v.ID] = v
}

// SetStock adjusts the advisory stock of a variant. Unknown ids are ignored.
func (m *Memory) SetStock(variantID int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.variants[variantID]; ok {
		v.StockAvailable = stock
		m.variants[variantID] = v
	}
}

package order

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda-b2b/internal/domain"
)

func TestIngest(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		wantErr  error
		circular bool
		wantIDs  []int64
	}{
		{name: "html page", payload: "<!DOCTYPE html><html><body>502</body></html>", wantErr: domain.ErrBackendUnavailable},
		{name: "html without doctype", payload: "  <html><head></head></html>", wantErr: domain.ErrBackendUnavailable},
		{name: "empty", payload: ""},
		{name: "whitespace", payload: " \n\t"},
		{name: "truncated", payload: `[{"id": 1, "detalles": [{"pedido": {"id": 1, "detalles": [`, wantErr: domain.ErrMalformedResponse},
		{name: "object", payload: `{"id": 1}`, wantErr: domain.ErrMalformedResponse},
		{name: "bad token", payload: `[{"id": 1}, {"id": 2, "usuario": {"pedidos": [{"id": 2,}]}}]`, wantErr: domain.ErrMalformedResponse, circular: true},
		{name: "empty array", payload: "[]"},
		{name: "orders", payload: `[{"id": 3}, {"id": 1, "estado": "ENVIADO"}]`, wantIDs: []int64{3, 1}},
		{name: "skips entries without id", payload: `[{"id": 3}, {"estado": "BORRADOR"}, 7, null]`, wantIDs: []int64{3}},
	}

	m := NewMapper(domain.DefaultCurrency, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orders, err := m.Ingest(tc.payload)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, orders)
				var malformed *domain.MalformedResponseError
				if errors.As(err, &malformed) {
					assert.Equal(t, tc.circular, malformed.CircularReference)
				}
				return
			}
			require.NoError(t, err)
			require.NotNil(t, orders)
			ids := make([]int64, 0, len(orders))
			for _, o := range orders {
				ids = append(ids, o.Ref.LegacyID())
			}
			if tc.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tc.wantIDs, ids)
			}
		})
	}
}

func TestIngestDropsBackReferences(t *testing.T) {
	m := NewMapper(domain.DefaultCurrency, nil)
	orders, err := m.Ingest(`[{
		"id": 12,
		"montoTotal": 3000,
		"usuario": {"id": 5, "nombreRazonSocial": "Textil Sur SRL", "pedidos": [{"id": 12}]},
		"detalles": [{
			"id": 1, "cantidad": 2, "precioUnitario": 1500,
			"pedido": {"id": 12, "detalles": []},
			"variante": {"id": 1, "sku": "REM-S-B", "producto": {"id": 1, "nombre": "Remera", "variantes": [{"id": 1}]}}
		}]
	}]`)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.True(t, o.Total.Equal(*ars("3000")))
	assert.Equal(t, "Textil Sur SRL", *o.Customer.DisplayName)
	assert.Equal(t, int64(5), *o.CustomerID)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "Remera", *o.Lines[0].ProductName)
	assert.Equal(t, int64(1), *o.Lines[0].Variant.ProductID)
}

func TestFlattenOrderKeepsOnlyMappedFields(t *testing.T) {
	flat := flattenOrder(map[string]any{
		"id":      float64(1),
		"fecha":   []any{float64(2024), float64(1), float64(2)},
		"usuario": map[string]any{"id": float64(5), "pedidos": []any{map[string]any{"id": float64(1)}}},
		"extra":   "x",
		"items":   []any{map[string]any{"id": float64(1), "pedido": map[string]any{"id": float64(1)}}},
	})

	assert.Equal(t, map[string]any{
		"id":      float64(1),
		"fecha":   []any{float64(2024), float64(1), float64(2)},
		"usuario": map[string]any{"id": float64(5)},
		"items":   []any{map[string]any{"id": float64(1)}},
	}, flat)
}

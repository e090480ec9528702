package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// wireOrder accepts both generations of the backend order payload:
// total/items and montoTotal/detalles.
type wireOrder struct {
	ID         *int64           `json:"id"`
	ClienteID  *int64           `json:"clienteId"`
	Fecha      json.RawMessage  `json:"fecha"`
	Total      *decimal.Decimal `json:"total"`
	MontoTotal *decimal.Decimal `json:"montoTotal"`
	Estado     *string          `json:"estado"`
	Tipo       *string          `json:"tipo"`
	MetodoPago *string          `json:"metodoPago"`
	Usuario    *wireUsuario     `json:"usuario"`
	Items      []wireItem       `json:"items"`
	Detalles   []wireDetalle    `json:"detalles"`
}

type wireUsuario struct {
	ID                *int64  `json:"id"`
	NombreRazonSocial *string `json:"nombreRazonSocial"`
	Email             *string `json:"email"`
	TipoUsuario       *string `json:"tipoUsuario"`
}

type wireItem struct {
	ID             *int64           `json:"id"`
	VarianteID     *int64           `json:"varianteId"`
	Cantidad       *int             `json:"cantidad"`
	PrecioUnitario *decimal.Decimal `json:"precioUnitario"`
	Subtotal       *decimal.Decimal `json:"subtotal"`
	ProductoNombre *string          `json:"productoNombre"`
	SKU            *string          `json:"sku"`
	Color          *string          `json:"color"`
	Talle          *string          `json:"talle"`
}

type wireDetalle struct {
	ID             *int64           `json:"id"`
	Cantidad       *int             `json:"cantidad"`
	PrecioUnitario *decimal.Decimal `json:"precioUnitario"`
	Subtotal       *decimal.Decimal `json:"subtotal"`
	Variante       *wireVariante    `json:"variante"`
}

type wireVariante struct {
	ID              *int64           `json:"id"`
	SKU             *string          `json:"sku"`
	Color           *string          `json:"color"`
	Talle           *string          `json:"talle"`
	Precio          *decimal.Decimal `json:"precio"`
	StockDisponible *int             `json:"stockDisponible"`
	Producto        *wireProducto    `json:"producto"`
}

type wireProducto struct {
	ID     *int64  `json:"id"`
	Nombre *string `json:"nombre"`
}

var fechaLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseFecha reads a timestamp sent either as a string or as a
// [year, month, day, hour, minute, second, nanos] array. Local timestamps are
// read in loc.
func parseFecha(raw json.RawMessage, loc *time.Location) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var parts []int
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("fecha array: %w", err)
		}
		if len(parts) < 3 {
			return nil, fmt.Errorf("fecha array too short: %v", parts)
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], loc)
		return &t, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("fecha: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range fechaLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("fecha %q: unknown layout", s)
}

package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"tienda-b2b/internal/domain"
)

// Ingest maps an order list received as raw text. The checks run in order:
// markup is a backend outage, an empty body is an empty list, anything that
// is not bracketed like an array is malformed, a parse failure is malformed,
// and a parsed value that is not an array is an empty list. Each element is
// reduced to the fields the mapper reads before it is mapped; elements that
// still cannot be mapped are skipped.
func (m *Mapper) Ingest(payload string) ([]domain.Order, error) {
	trimmed := strings.TrimSpace(payload)

	if isMarkup(trimmed) {
		return nil, fmt.Errorf("order list returned markup: %w", domain.ErrBackendUnavailable)
	}
	if trimmed == "" {
		return []domain.Order{}, nil
	}
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, &domain.MalformedResponseError{Reason: "order list is not a complete array"}
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		var syntaxErr *json.SyntaxError
		return nil, &domain.MalformedResponseError{
			Reason:            "order list",
			CircularReference: errors.As(err, &syntaxErr),
			Err:               err,
		}
	}
	if dec.More() {
		return nil, &domain.MalformedResponseError{Reason: "trailing data after order list", CircularReference: true}
	}

	elements, ok := parsed.([]any)
	if !ok {
		return []domain.Order{}, nil
	}

	orders := make([]domain.Order, 0, len(elements))
	for i, el := range elements {
		obj, ok := el.(map[string]any)
		if !ok {
			m.logger.WithField("index", i).Warn("skipping non-object order list element")
			continue
		}
		flat, err := json.Marshal(flattenOrder(obj))
		if err != nil {
			m.logger.WithError(err).WithField("index", i).Warn("skipping order list element")
			continue
		}
		o, err := m.Decode(flat)
		if err != nil {
			m.logger.WithError(err).WithFields(log.Fields{"index": i}).Warn("skipping unmappable order")
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func isMarkup(s string) bool {
	head := strings.ToLower(s[:min(len(s), 16)])
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") || strings.HasPrefix(head, "<?xml")
}

var (
	orderFields    = []string{"id", "clienteId", "fecha", "total", "montoTotal", "estado", "tipo", "metodoPago"}
	usuarioFields  = []string{"id", "nombreRazonSocial", "email", "tipoUsuario"}
	itemFields     = []string{"id", "varianteId", "cantidad", "precioUnitario", "subtotal", "productoNombre", "sku", "color", "talle"}
	detalleFields  = []string{"id", "cantidad", "precioUnitario", "subtotal"}
	varianteFields = []string{"id", "sku", "color", "talle", "precio", "stockDisponible"}
	productoFields = []string{"id", "nombre"}
)

// flattenOrder keeps only the fields the mapper reads, with nested objects
// cut at a fixed depth. Back references such as detalles[].pedido are
// dropped.
func flattenOrder(in map[string]any) map[string]any {
	out := pick(in, orderFields)
	if u, ok := in["usuario"].(map[string]any); ok {
		out["usuario"] = pick(u, usuarioFields)
	}
	if items, ok := in["items"].([]any); ok {
		rows := make([]any, 0, len(items))
		for _, it := range items {
			if obj, ok := it.(map[string]any); ok {
				rows = append(rows, pick(obj, itemFields))
			}
		}
		out["items"] = rows
	}
	if detalles, ok := in["detalles"].([]any); ok {
		rows := make([]any, 0, len(detalles))
		for _, d := range detalles {
			obj, ok := d.(map[string]any)
			if !ok {
				continue
			}
			row := pick(obj, detalleFields)
			if v, ok := obj["variante"].(map[string]any); ok {
				variante := pick(v, varianteFields)
				if p, ok := v["producto"].(map[string]any); ok {
					variante["producto"] = pick(p, productoFields)
				}
				row["variante"] = variante
			}
			rows = append(rows, row)
		}
		out["detalles"] = rows
	}
	return out
}

// pick copies scalar and scalar-array values of the named keys.
func pick(in map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok := in[k]
		if !ok {
			continue
		}
		switch tv := v.(type) {
		case map[string]any:
			continue
		case []any:
			if !scalars(tv) {
				continue
			}
		}
		out[k] = v
	}
	return out
}

func scalars(values []any) bool {
	for _, v := range values {
		switch v.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

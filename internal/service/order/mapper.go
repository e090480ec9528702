package order

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/logging"
)

var statusTokens = map[string]domain.Status{
	"BORRADOR":    domain.StatusPending,
	"DOCUMENTADO": domain.StatusPending,
	"PENDIENTE":   domain.StatusPending,
	"PENDING":     domain.StatusPending,
	"CANCELADO":   domain.StatusPending,
	"CONFIRMADO":  domain.StatusDelivered,
	"ABONADO":     domain.StatusDelivered,
	"ENVIADO":     domain.StatusDelivered,
	"ENTREGADO":   domain.StatusDelivered,
	"DELIVERED":   domain.StatusDelivered,
	"CONFIRMED":   domain.StatusDelivered,
}

// NormalizeStatus maps a backend status token to a canonical status. Unknown
// tokens map to pending and report false.
func NormalizeStatus(token string) (domain.Status, bool) {
	status, ok := statusTokens[strings.ToUpper(strings.TrimSpace(token))]
	if !ok {
		return domain.StatusPending, false
	}
	return status, true
}

// Mapper turns backend order payloads into canonical orders.
type Mapper struct {
	currency currency.Unit
	location *time.Location
	logger   *log.Entry
}

func NewMapper(cur currency.Unit, logger *log.Entry) *Mapper {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Mapper{currency: cur, location: time.UTC, logger: logger}
}

// Decode maps one order payload. A payload without a positive id is malformed.
func (m *Mapper) Decode(raw []byte) (domain.Order, error) {
	var w wireOrder
	if err := json.Unmarshal(raw, &w); err != nil {
		var syntaxErr *json.SyntaxError
		return domain.Order{}, &domain.MalformedResponseError{
			Reason:            "order payload",
			CircularReference: errors.As(err, &syntaxErr),
			Err:               err,
		}
	}
	return m.fromWire(w)
}

func (m *Mapper) fromWire(w wireOrder) (domain.Order, error) {
	if w.ID == nil || *w.ID <= 0 {
		return domain.Order{}, &domain.MalformedResponseError{Reason: "order without id"}
	}

	o := domain.Order{
		Ref:           domain.PersistedRef(*w.ID),
		CustomerID:    w.ClienteID,
		Status:        m.status(w.Estado, *w.ID),
		Kind:          domain.KindOrder,
		PaymentMethod: w.MetodoPago,
		Total:         m.money(firstDecimal(w.Total, w.MontoTotal)),
	}
	if w.Tipo != nil && strings.EqualFold(strings.TrimSpace(*w.Tipo), "DEVOLUCION") {
		o.Kind = domain.KindReturn
	}

	created, err := parseFecha(w.Fecha, m.location)
	if err != nil {
		m.logger.WithError(err).WithField("order_id", *w.ID).Warn("ignoring unreadable order date")
	}
	o.CreatedAt = created

	if u := w.Usuario; u != nil {
		o.Customer = &domain.CustomerInfo{ID: u.ID, DisplayName: u.NombreRazonSocial, Email: u.Email, Kind: u.TipoUsuario}
		if o.CustomerID == nil {
			o.CustomerID = u.ID
		}
	}

	if len(w.Items) > 0 || len(w.Detalles) == 0 {
		for _, it := range w.Items {
			o.Lines = append(o.Lines, m.itemLine(it))
		}
	} else {
		for _, d := range w.Detalles {
			o.Lines = append(o.Lines, m.detalleLine(d))
		}
	}
	return o, nil
}

func (m *Mapper) status(token *string, orderID int64) domain.Status {
	if token == nil {
		return domain.StatusPending
	}
	status, ok := NormalizeStatus(*token)
	if !ok {
		m.logger.WithFields(log.Fields{"token": *token, "order_id": orderID}).Warn("unknown order status, defaulting to pending")
	}
	return status
}

func (m *Mapper) itemLine(it wireItem) domain.OrderLine {
	l := domain.OrderLine{
		ID:          it.ID,
		VariantID:   it.VarianteID,
		Quantity:    derefInt(it.Cantidad),
		UnitPrice:   m.money(it.PrecioUnitario),
		ProductName: it.ProductoNombre,
	}
	if it.VarianteID != nil || it.SKU != nil || it.Color != nil || it.Talle != nil {
		l.Variant = &domain.VariantSnapshot{ID: it.VarianteID, SKU: it.SKU, Color: it.Color, Size: it.Talle}
	}
	l.Subtotal = m.subtotal(it.Subtotal, l.UnitPrice, l.Quantity)
	l.ProductName = productName(l.ProductName, it.SKU, it.VarianteID)
	return l
}

func (m *Mapper) detalleLine(d wireDetalle) domain.OrderLine {
	l := domain.OrderLine{
		ID:        d.ID,
		Quantity:  derefInt(d.Cantidad),
		UnitPrice: m.money(d.PrecioUnitario),
	}
	var sku *string
	if v := d.Variante; v != nil {
		l.VariantID = v.ID
		sku = v.SKU
		l.Variant = &domain.VariantSnapshot{
			ID:             v.ID,
			SKU:            v.SKU,
			Color:          v.Color,
			Size:           v.Talle,
			Price:          m.money(v.Precio),
			StockAvailable: v.StockDisponible,
		}
		if p := v.Producto; p != nil {
			l.Variant.ProductID = p.ID
			l.ProductName = p.Nombre
		}
	}
	l.Subtotal = m.subtotal(d.Subtotal, l.UnitPrice, l.Quantity)
	l.ProductName = productName(l.ProductName, sku, l.VariantID)
	return l
}

func (m *Mapper) subtotal(given *decimal.Decimal, unit *domain.Money, quantity int) *domain.Money {
	if given != nil {
		return m.money(given)
	}
	if unit == nil {
		return nil
	}
	sub := unit.Mul(quantity)
	return &sub
}

func (m *Mapper) money(d *decimal.Decimal) *domain.Money {
	if d == nil {
		return nil
	}
	money := domain.NewMoney(*d, m.currency)
	return &money
}

// productName falls back to "Producto <sku>" or "Producto <variant id>".
func productName(name, sku *string, variantID *int64) *string {
	if name != nil && strings.TrimSpace(*name) != "" {
		return name
	}
	var fallback string
	switch {
	case sku != nil && strings.TrimSpace(*sku) != "":
		fallback = "Producto " + strings.TrimSpace(*sku)
	case variantID != nil:
		fallback = "Producto " + strconv.FormatInt(*variantID, 10)
	default:
		return nil
	}
	return &fallback
}

func firstDecimal(values ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

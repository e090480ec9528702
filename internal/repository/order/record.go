package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
)

type record struct {
	ID            int64           `json:"id"`
	CustomerID    *int64          `json:"customerId,omitempty"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
	Status        string          `json:"status"`
	Kind          string          `json:"kind"`
	PaymentMethod *string         `json:"paymentMethod,omitempty"`
	Total         *moneyRecord    `json:"total,omitempty"`
	Lines         []lineRecord    `json:"lines"`
	Customer      *customerRecord `json:"customer,omitempty"`
}

type moneyRecord struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type lineRecord struct {
	ID          *int64         `json:"id,omitempty"`
	VariantID   *int64         `json:"variantId,omitempty"`
	Quantity    int            `json:"quantity"`
	UnitPrice   *moneyRecord   `json:"unitPrice,omitempty"`
	Subtotal    *moneyRecord   `json:"subtotal,omitempty"`
	Variant     *variantRecord `json:"variant,omitempty"`
	ProductName *string        `json:"productName,omitempty"`
}

type variantRecord struct {
	ID             *int64       `json:"id,omitempty"`
	SKU            *string      `json:"sku,omitempty"`
	Color          *string      `json:"color,omitempty"`
	Size           *string      `json:"size,omitempty"`
	Price          *moneyRecord `json:"price,omitempty"`
	StockAvailable *int         `json:"stockAvailable,omitempty"`
	ProductID      *int64       `json:"productId,omitempty"`
}

type customerRecord struct {
	ID          *int64  `json:"id,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Kind        *string `json:"kind,omitempty"`
}

func encode(o domain.Order) (int64, []byte, error) {
	id, ok := o.Ref.RemoteID()
	if !ok {
		return 0, nil, fmt.Errorf("mirror %s: %w", o.Ref, domain.ErrInvalidOrderReference)
	}
	rec := record{
		ID:            id,
		CustomerID:    o.CustomerID,
		CreatedAt:     o.CreatedAt,
		Status:        string(o.Status),
		Kind:          string(o.Kind),
		PaymentMethod: o.PaymentMethod,
		Total:         toMoneyRecord(o.Total),
		Lines:         make([]lineRecord, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		lr := lineRecord{
			ID:          l.ID,
			VariantID:   l.VariantID,
			Quantity:    l.Quantity,
			UnitPrice:   toMoneyRecord(l.UnitPrice),
			Subtotal:    toMoneyRecord(l.Subtotal),
			ProductName: l.ProductName,
		}
		if v := l.Variant; v != nil {
			lr.Variant = &variantRecord{
				ID: v.ID, SKU: v.SKU, Color: v.Color, Size: v.Size,
				Price: toMoneyRecord(v.Price), StockAvailable: v.StockAvailable, ProductID: v.ProductID,
			}
		}
		rec.Lines = append(rec.Lines, lr)
	}
	if c := o.Customer; c != nil {
		rec.Customer = &customerRecord{ID: c.ID, DisplayName: c.DisplayName, Email: c.Email, Kind: c.Kind}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, nil, fmt.Errorf("encode order %d: %w", id, err)
	}
	return id, data, nil
}

func decode(data []byte) (*domain.Order, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	o := domain.Order{
		Ref:           domain.PersistedRef(rec.ID),
		CustomerID:    rec.CustomerID,
		CreatedAt:     rec.CreatedAt,
		Status:        domain.Status(rec.Status),
		Kind:          domain.OrderKind(rec.Kind),
		PaymentMethod: rec.PaymentMethod,
	}
	var err error
	if o.Total, err = fromMoneyRecord(rec.Total); err != nil {
		return nil, err
	}
	for _, lr := range rec.Lines {
		l := domain.OrderLine{ID: lr.ID, VariantID: lr.VariantID, Quantity: lr.Quantity, ProductName: lr.ProductName}
		if l.UnitPrice, err = fromMoneyRecord(lr.UnitPrice); err != nil {
			return nil, err
		}
		if l.Subtotal, err = fromMoneyRecord(lr.Subtotal); err != nil {
			return nil, err
		}
		if v := lr.Variant; v != nil {
			snap := &domain.VariantSnapshot{
				ID: v.ID, SKU: v.SKU, Color: v.Color, Size: v.Size,
				StockAvailable: v.StockAvailable, ProductID: v.ProductID,
			}
			if snap.Price, err = fromMoneyRecord(v.Price); err != nil {
				return nil, err
			}
			l.Variant = snap
		}
		o.Lines = append(o.Lines, l)
	}
	if c := rec.Customer; c != nil {
		o.Customer = &domain.CustomerInfo{ID: c.ID, DisplayName: c.DisplayName, Email: c.Email, Kind: c.Kind}
	}
	return &o, nil
}

func toMoneyRecord(m *domain.Money) *moneyRecord {
	if m == nil {
		return nil
	}
	return &moneyRecord{Amount: m.Amount, Currency: m.Currency.String()}
}

func fromMoneyRecord(r *moneyRecord) (*domain.Money, error) {
	if r == nil {
		return nil, nil
	}
	unit, err := currency.ParseISO(r.Currency)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", r.Currency, err)
	}
	m := domain.NewMoney(r.Amount, unit)
	return &m, nil
}

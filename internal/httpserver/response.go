package httpserver

import (
	"time"

	"tienda-b2b/internal/domain"
	ordersvc "tienda-b2b/internal/service/order"
)

type cartResponse struct {
	SessionID    string         `json:"sessionId"`
	Lines        []lineResponse `json:"lines"`
	Count        int            `json:"count"`
	Total        string         `json:"total"`
	Currency     string         `json:"currency"`
	RemoteCartID *int64         `json:"remoteCartId,omitempty"`
}

type lineResponse struct {
	ID          int    `json:"id"`
	VariantID   int64  `json:"variantId"`
	SKU         string `json:"sku"`
	Color       string `json:"color,omitempty"`
	Size        string `json:"size,omitempty"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Subtotal    string `json:"subtotal"`
}

type orderResponse struct {
	ID            int64                `json:"id"`
	Ref           string               `json:"ref"`
	Local         bool                 `json:"local"`
	CustomerID    *int64               `json:"customerId,omitempty"`
	CreatedAt     *time.Time           `json:"createdAt,omitempty"`
	Status        domain.Status        `json:"status"`
	Kind          domain.OrderKind     `json:"kind"`
	PaymentMethod *string              `json:"paymentMethod,omitempty"`
	Total         *string              `json:"total,omitempty"`
	Lines         []orderLineResponse  `json:"lines"`
	Customer      *customerInfoPayload `json:"customer,omitempty"`
}

type orderLineResponse struct {
	ID          *int64  `json:"id,omitempty"`
	VariantID   *int64  `json:"variantId,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   *string `json:"unitPrice,omitempty"`
	Subtotal    *string `json:"subtotal,omitempty"`
	ProductName *string `json:"productName,omitempty"`
	SKU         *string `json:"sku,omitempty"`
	Color       *string `json:"color,omitempty"`
	Size        *string `json:"size,omitempty"`
}

type customerInfoPayload struct {
	ID          *int64  `json:"id,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Kind        *string `json:"kind,omitempty"`
}

type failedLineResponse struct {
	LineID    int    `json:"lineId"`
	VariantID int64  `json:"variantId"`
	Quantity  int    `json:"quantity"`
	Error     string `json:"error"`
}

type submissionResponse struct {
	Order       orderResponse        `json:"order"`
	Local       bool                 `json:"local"`
	Partial     bool                 `json:"partial"`
	FailedLines []failedLineResponse `json:"failedLines"`
	Error       string               `json:"error,omitempty"`
}

func toCartResponse(sessionID string, c domain.Cart) cartResponse {
	lines := make([]lineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, lineResponse{
			ID:          l.ID,
			VariantID:   l.VariantID,
			SKU:         l.SKU,
			Color:       l.Color,
			Size:        l.Size,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   amount(l.UnitPrice),
			Subtotal:    amount(l.Subtotal()),
		})
	}
	return cartResponse{
		SessionID:    sessionID,
		Lines:        lines,
		Count:        c.Count(),
		Total:        amount(c.Total()),
		Currency:     c.Currency.String(),
		RemoteCartID: c.RemoteCartID,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	out := orderResponse{
		ID:            o.Ref.LegacyID(),
		Ref:           o.Ref.String(),
		Local:         o.IsLocal(),
		CustomerID:    o.CustomerID,
		CreatedAt:     o.CreatedAt,
		Status:        o.Status,
		Kind:          o.Kind,
		PaymentMethod: o.PaymentMethod,
		Total:         optionalAmount(o.Total),
		Lines:         make([]orderLineResponse, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		line := orderLineResponse{
			ID:          l.ID,
			VariantID:   l.VariantID,
			Quantity:    l.Quantity,
			UnitPrice:   optionalAmount(l.UnitPrice),
			Subtotal:    optionalAmount(l.Subtotal),
			ProductName: l.ProductName,
		}
		if v := l.Variant; v != nil {
			line.SKU, line.Color, line.Size = v.SKU, v.Color, v.Size
		}
		out.Lines = append(out.Lines, line)
	}
	if c := o.Customer; c != nil {
		out.Customer = &customerInfoPayload{ID: c.ID, DisplayName: c.DisplayName, Email: c.Email, Kind: c.Kind}
	}
	return out
}

func toOrderList(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func toSubmissionResponse(s *ordersvc.Submission) submissionResponse {
	out := submissionResponse{
		Order:       toOrderResponse(s.Order),
		Local:       s.Local(),
		Partial:     s.Partial(),
		FailedLines: make([]failedLineResponse, 0, len(s.FailedLines)),
	}
	for _, f := range s.FailedLines {
		out.FailedLines = append(out.FailedLines, failedLineResponse{
			LineID:    f.LineID,
			VariantID: f.VariantID,
			Quantity:  f.Quantity,
			Error:     f.Err.Error(),
		})
	}
	if s.CreationErr != nil {
		out.Error = s.CreationErr.Error()
	}
	return out
}

func amount(m domain.Money) string {
	return m.Amount.StringFixed(2)
}

func optionalAmount(m *domain.Money) *string {
	if m == nil {
		return nil
	}
	s := amount(*m)
	return &s
}

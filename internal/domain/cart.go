package domain

import "golang.org/x/text/currency"

// CartLine is one selected variant in the cart. Subtotal is always derived.
type CartLine struct {
	ID          int
	VariantID   int64
	Quantity    int
	UnitPrice   Money
	SKU         string
	Color       string
	Size        string
	ProductName string
}

func (l CartLine) Subtotal() Money {
	return l.UnitPrice.Mul(l.Quantity)
}

// Cart holds at most one line per variant.
type Cart struct {
	Lines        []CartLine
	RemoteCartID *int64
	Currency     currency.Unit
}

func NewCart(cur currency.Unit) Cart {
	return Cart{Currency: cur}
}

func (c Cart) Total() Money {
	total := ZeroMoney(c.Currency)
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// LineIndexByVariant returns the position of the line for variantID, or -1.
func (c Cart) LineIndexByVariant(variantID int64) int {
	for i, l := range c.Lines {
		if l.VariantID == variantID {
			return i
		}
	}
	return -1
}

func (c Cart) LineIndex(lineID int) int {
	for i, l := range c.Lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

// NextLineID is max existing id + 1, or 1 for an empty cart.
func (c Cart) NextLineID() int {
	next := 1
	for _, l := range c.Lines {
		if l.ID >= next {
			next = l.ID + 1
		}
	}
	return next
}

// Clone returns a copy that shares no slices or pointers with c.
func (c Cart) Clone() Cart {
	out := Cart{Currency: c.Currency}
	if c.Lines != nil {
		out.Lines = append([]CartLine(nil), c.Lines...)
	}
	if c.RemoteCartID != nil {
		id := *c.RemoteCartID
		out.RemoteCartID = &id
	}
	return out
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the canonical order status shown to customers.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
)

// OrderKind distinguishes regular orders from returns.
type OrderKind string

const (
	KindOrder  OrderKind = "order"
	KindReturn OrderKind = "return"
)

// OrderRef identifies an order either by its remote id or, for orders that
// were synthesized locally because the remote system refused to create them,
// by a local key. Only persisted references can be transitioned remotely.
type OrderRef struct {
	remoteID int64
	localKey uuid.UUID
	legacyID int64
}

func PersistedRef(id int64) OrderRef {
	return OrderRef{remoteID: id, legacyID: id}
}

// LocalRef builds the reference of a locally synthesized order. Its legacy id
// is negative and derived from the creation time.
func LocalRef(key uuid.UUID, createdAt time.Time) OrderRef {
	legacy := -createdAt.UnixMilli()
	if legacy >= 0 {
		legacy = -1
	}
	return OrderRef{localKey: key, legacyID: legacy}
}

func (r OrderRef) IsLocal() bool {
	return r.remoteID <= 0
}

// RemoteID returns the remote id and true for persisted orders.
func (r OrderRef) RemoteID() (int64, bool) {
	if r.IsLocal() {
		return 0, false
	}
	return r.remoteID, true
}

func (r OrderRef) LocalKey() (uuid.UUID, bool) {
	if !r.IsLocal() {
		return uuid.Nil, false
	}
	return r.localKey, true
}

// LegacyID is the integer id used by storefront views: the remote id for
// persisted orders and a negative number for local ones.
func (r OrderRef) LegacyID() int64 {
	return r.legacyID
}

func (r OrderRef) String() string {
	if r.IsLocal() {
		return "local:" + r.localKey.String()
	}
	return fmt.Sprintf("%d", r.remoteID)
}

type CustomerInfo struct {
	ID          *int64
	DisplayName *string
	Email       *string
	Kind        *string
}

// VariantSnapshot is the variant data the remote system attached to a line.
type VariantSnapshot struct {
	ID             *int64
	SKU            *string
	Color          *string
	Size           *string
	Price          *Money
	StockAvailable *int
	ProductID      *int64
}

type OrderLine struct {
	ID          *int64
	VariantID   *int64
	Quantity    int
	UnitPrice   *Money
	Subtotal    *Money
	Variant     *VariantSnapshot
	ProductName *string
}

// Order is the canonical order. Optional data the remote system did not send
// stays nil.
type Order struct {
	Ref           OrderRef
	CustomerID    *int64
	CreatedAt     *time.Time
	Status        Status
	Kind          OrderKind
	PaymentMethod *string
	Total         *Money
	Lines         []OrderLine
	Customer      *CustomerInfo
}

func (o Order) IsLocal() bool {
	return o.Ref.IsLocal()
}

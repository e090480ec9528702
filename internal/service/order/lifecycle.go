package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/events"
)

// Lifecycle moves remote orders between statuses and keeps the local mirror
// in step.
type Lifecycle struct {
	remote RemoteOrders
	mapper *Mapper
	opts   options
}

func NewLifecycle(remote RemoteOrders, mapper *Mapper, opts ...Option) *Lifecycle {
	return &Lifecycle{remote: remote, mapper: mapper, opts: buildOptions(opts)}
}

// Confirm moves a pending order to delivered.
func (l *Lifecycle) Confirm(ctx context.Context, orderID int64) error {
	return l.transition(ctx, "confirm", orderID, domain.StatusDelivered, l.remote.ConfirmOrder, events.EventTypeOrderConfirmed)
}

// Cancel reverts an order to pending. The backend has no terminal cancelled
// state.
func (l *Lifecycle) Cancel(ctx context.Context, orderID int64) error {
	return l.transition(ctx, "cancel", orderID, domain.StatusPending, l.remote.CancelOrder, events.EventTypeOrderCanceled)
}

// ConfirmOrder confirms by reference; local orders are rejected.
func (l *Lifecycle) ConfirmOrder(ctx context.Context, ref domain.OrderRef) error {
	id, ok := ref.RemoteID()
	if !ok {
		return fmt.Errorf("confirm %s: %w", ref, domain.ErrInvalidOrderReference)
	}
	return l.Confirm(ctx, id)
}

func (l *Lifecycle) CancelOrder(ctx context.Context, ref domain.OrderRef) error {
	id, ok := ref.RemoteID()
	if !ok {
		return fmt.Errorf("cancel %s: %w", ref, domain.ErrInvalidOrderReference)
	}
	return l.Cancel(ctx, id)
}

// Advance moves an order to the target status.
func (l *Lifecycle) Advance(ctx context.Context, orderID int64, target domain.Status) error {
	switch target {
	case domain.StatusDelivered:
		return l.Confirm(ctx, orderID)
	case domain.StatusPending:
		return l.Cancel(ctx, orderID)
	default:
		return fmt.Errorf("advance to %q: %w", target, domain.ErrUnsupportedStatus)
	}
}

func (l *Lifecycle) transition(
	ctx context.Context,
	op string,
	orderID int64,
	target domain.Status,
	call func(context.Context, int64) (json.RawMessage, error),
	eventType events.EventType,
) error {
	if orderID <= 0 {
		return fmt.Errorf("%s order %d: %w", op, orderID, domain.ErrInvalidOrderReference)
	}
	logger := l.opts.logger.WithFields(log.Fields{"op": op, "order_id": orderID})

	if _, err := call(ctx, orderID); err != nil {
		l.opts.metrics.Transition(op, false)
		logger.WithError(err).Warn("order transition failed")
		return err
	}
	l.opts.metrics.Transition(op, true)

	err := l.opts.mirror.UpdateStatus(ctx, orderID, target)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("order not mirrored, status not recorded locally")
	case err != nil:
		logger.WithError(err).Warn("order mirror status not updated")
	}

	l.opts.publish(ctx, eventType, domain.Order{Ref: domain.PersistedRef(orderID), Status: target})
	logger.WithField("status", target).Info("order transitioned")
	return nil
}

// List returns the customer's orders. Any failure yields an empty list.
func (l *Lifecycle) List(ctx context.Context, customerID int64) []domain.Order {
	logger := l.opts.logger.WithField("customer_id", customerID)

	raw, err := l.remote.ListOrders(ctx, customerID)
	if err != nil {
		l.opts.metrics.IngestionFailure("transport")
		logger.WithError(err).Error("list orders failed")
		return []domain.Order{}
	}

	orders, err := l.mapper.Ingest(raw)
	if err != nil {
		l.opts.metrics.IngestionFailure(ingestionReason(err))
		logger.WithError(err).WithField("payload_head", head(raw, 120)).Error("order list rejected")
		return []domain.Order{}
	}

	if err := l.opts.mirror.ReplaceForCustomer(ctx, customerID, orders); err != nil {
		logger.WithError(err).Warn("order mirror not refreshed")
	}
	return orders
}

// Get reads an order from the local mirror.
func (l *Lifecycle) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("get order %d: %w", orderID, domain.ErrInvalidOrderReference)
	}
	return l.opts.mirror.Get(ctx, orderID)
}

func ingestionReason(err error) string {
	var malformed *domain.MalformedResponseError
	switch {
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.As(err, &malformed) && malformed.CircularReference:
		return "circular_reference"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	default:
		return "other"
	}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package order

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/events"
	"tienda-b2b/internal/metrics"
)

type SubmitRequest struct {
	CustomerID int64
	Customer   *domain.CustomerInfo
}

// Submission is the outcome of a checkout. Order is always set. When the
// backend refused to create the order, Order has a local reference and
// CreationErr says why; the cart is then left as it was.
type Submission struct {
	Order       domain.Order
	FailedLines []domain.LineAttachmentError
	CreationErr error
	// CartErr is set when the cart could not be updated after submission.
	CartErr error
}

func (s *Submission) Local() bool {
	return s.Order.IsLocal()
}

// Partial reports a remote order that is missing some cart lines.
func (s *Submission) Partial() bool {
	return !s.Local() && len(s.FailedLines) > 0
}

// Submitter turns a cart into a remote order: it creates an empty order and
// then attaches the cart lines one request at a time.
type Submitter struct {
	remote RemoteOrders
	mapper *Mapper
	opts   options
}

func NewSubmitter(remote RemoteOrders, mapper *Mapper, opts ...Option) *Submitter {
	return &Submitter{remote: remote, mapper: mapper, opts: buildOptions(opts)}
}

// Submit sends the cart. It returns an error only when the cart cannot be
// submitted at all: domain.ErrEmptyCart, domain.ErrCheckoutInProgress while
// another submission holds the cart, or domain.ErrCartUnavailable. Every
// other failure is reported on the Submission.
//
// Once the order exists the remaining requests ignore cancellation of ctx, so
// an order is never left with only part of its lines because the caller went
// away.
func (s *Submitter) Submit(ctx context.Context, cart Cart, req SubmitRequest) (*Submission, error) {
	start := s.opts.now()
	release, err := cart.BeginCheckout(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	snapshot := cart.Snapshot()
	if len(snapshot.Lines) == 0 {
		s.opts.metrics.Submission(metrics.OutcomeEmpty, 0)
		return nil, domain.ErrEmptyCart
	}

	logger := s.opts.logger.WithFields(log.Fields{"customer_id": req.CustomerID, "lines": len(snapshot.Lines)})
	s.checkStock(ctx, logger, snapshot)

	shell, err := s.createShell(ctx, req)
	if err != nil {
		fallback := s.fallbackOrder(snapshot, req)
		logger.WithError(err).WithField("order_ref", fallback.Ref.String()).Warn("order creation failed, returning local order")
		s.opts.metrics.Submission(metrics.OutcomeFallback, s.opts.now().Sub(start))
		s.opts.publish(ctx, events.EventTypeOrderFallback, fallback)
		return &Submission{
			Order:       fallback,
			CreationErr: fmt.Errorf("%w: %w", domain.ErrOrderCreationFailed, err),
		}, nil
	}

	runCtx := context.WithoutCancel(ctx)
	orderID, _ := shell.Ref.RemoteID()
	logger = logger.WithField("order_id", orderID)

	var (
		responses []json.RawMessage
		attached  []domain.CartLine
		failed    []domain.LineAttachmentError
	)
	for _, line := range snapshot.Lines {
		raw, err := s.remote.AttachLine(runCtx, orderID, line.VariantID, line.Quantity)
		s.opts.metrics.LineAttachment(err == nil)
		if err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"line_id":    line.ID,
				"variant_id": line.VariantID,
			}).Error("line attachment failed")
			failed = append(failed, domain.LineAttachmentError{
				LineID:    line.ID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				Err:       err,
			})
			continue
		}
		responses = append(responses, raw)
		attached = append(attached, line)
	}

	result := s.latestOrder(logger, shell, responses)
	sub := &Submission{Order: result, FailedLines: failed}
	if sub.CartErr = cart.Settle(runCtx, attached); sub.CartErr != nil {
		logger.WithError(sub.CartErr).Error("cart not updated after submission")
	}

	if err := s.opts.mirror.Upsert(runCtx, result); err != nil {
		logger.WithError(err).Warn("order mirror not updated")
	}

	outcome := metrics.OutcomeSuccess
	if len(failed) > 0 {
		outcome = metrics.OutcomePartial
	}
	s.opts.metrics.Submission(outcome, s.opts.now().Sub(start))
	s.opts.publish(runCtx, events.EventTypeOrderSubmitted, result)

	logger.WithFields(log.Fields{"attached": len(attached), "failed": len(failed)}).Info("order submitted")
	return sub, nil
}

func (s *Submitter) createShell(ctx context.Context, req SubmitRequest) (domain.Order, error) {
	raw, err := s.remote.CreateOrderShell(ctx, req.CustomerID, req.Customer)
	if err != nil {
		return domain.Order{}, err
	}
	shell, err := s.mapper.Decode(raw)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order response: %w", err)
	}
	return shell, nil
}

// latestOrder maps the newest attach response that can be mapped. Without
// one, the shell stands for the order.
func (s *Submitter) latestOrder(logger *log.Entry, shell domain.Order, responses []json.RawMessage) domain.Order {
	for i := len(responses) - 1; i >= 0; i-- {
		o, err := s.mapper.Decode(responses[i])
		if err == nil {
			return o
		}
		logger.WithError(err).WithField("response", i).Warn("attach response not mappable")
	}
	return shell
}

func (s *Submitter) checkStock(ctx context.Context, logger *log.Entry, cart domain.Cart) {
	if s.opts.catalog == nil {
		return
	}
	for _, line := range cart.Lines {
		v, err := s.opts.catalog.Lookup(ctx, line.VariantID)
		if err != nil {
			logger.WithError(err).WithField("variant_id", line.VariantID).Warn("variant not re-validated")
			continue
		}
		if v.StockAvailable < line.Quantity {
			logger.WithFields(log.Fields{
				"variant_id": line.VariantID,
				"quantity":   line.Quantity,
				"stock":      v.StockAvailable,
			}).Warn("cart quantity exceeds available stock")
		}
	}
}

// fallbackOrder builds a local pending order from the cart.
func (s *Submitter) fallbackOrder(cart domain.Cart, req SubmitRequest) domain.Order {
	now := s.opts.now()
	customerID := req.CustomerID
	total := cart.Total()
	o := domain.Order{
		Ref:        domain.LocalRef(s.opts.newKey(), now),
		CustomerID: &customerID,
		CreatedAt:  &now,
		Status:     domain.StatusPending,
		Kind:       domain.KindOrder,
		Total:      &total,
		Customer:   req.Customer,
	}
	for _, line := range cart.Lines {
		lineID := int64(line.ID)
		variantID := line.VariantID
		unit := line.UnitPrice
		sub := line.Subtotal()
		name := line.ProductName
		o.Lines = append(o.Lines, domain.OrderLine{
			ID:          &lineID,
			VariantID:   &variantID,
			Quantity:    line.Quantity,
			UnitPrice:   &unit,
			Subtotal:    &sub,
			ProductName: &name,
			Variant: &domain.VariantSnapshot{
				ID:    &variantID,
				SKU:   optional(line.SKU),
				Color: optional(line.Color),
				Size:  optional(line.Size),
				Price: &unit,
			},
		})
	}
	return o
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

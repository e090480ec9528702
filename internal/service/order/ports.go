package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tienda-b2b/internal/catalog"
	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/events"
	"tienda-b2b/internal/logging"
	"tienda-b2b/internal/metrics"
	orderrepo "tienda-b2b/internal/repository/order"
)

// RemoteOrders is the order backend as seen by the services.
type RemoteOrders interface {
	CreateOrderShell(ctx context.Context, customerID int64, info *domain.CustomerInfo) (json.RawMessage, error)
	AttachLine(ctx context.Context, orderID, variantID int64, quantity int) (json.RawMessage, error)
	ConfirmOrder(ctx context.Context, orderID int64) (json.RawMessage, error)
	CancelOrder(ctx context.Context, orderID int64) (json.RawMessage, error)
	ListOrders(ctx context.Context, customerID int64) (string, error)
}

// Cart is the part of the cart store the submitter drives.
type Cart interface {
	// BeginCheckout holds the cart for one submission until release is called.
	BeginCheckout(ctx context.Context) (release func(), err error)
	Snapshot() domain.Cart
	// Settle takes the submitted lines out of the cart.
	Settle(ctx context.Context, submitted []domain.CartLine) error
}

type options struct {
	logger    *log.Entry
	catalog   catalog.Lookup
	mirror    orderrepo.Repository
	publisher events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
	newKey    func() uuid.UUID
}

func defaultOptions() options {
	return options{
		logger:    logging.Discard(),
		mirror:    orderrepo.NewMemory(),
		publisher: events.Noop{},
		now:       time.Now,
		newKey:    uuid.New,
	}
}

type Option func(*options)

func WithLogger(logger *log.Entry) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCatalog enables stock re-validation at submission.
func WithCatalog(lookup catalog.Lookup) Option {
	return func(o *options) { o.catalog = lookup }
}

func WithMirror(repo orderrepo.Repository) Option {
	return func(o *options) {
		if repo != nil {
			o.mirror = repo
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) publish(ctx context.Context, t events.EventType, order domain.Order) {
	if err := o.publisher.PublishOrderEvent(ctx, events.NewOrderEvent(t, order, o.now())); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{"event_type": t, "order_ref": order.Ref.String()}).Warn("order event not published")
	}
}

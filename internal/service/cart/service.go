package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/catalog"
	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/logging"
	"tienda-b2b/internal/metrics"
	cartrepo "tienda-b2b/internal/repository/cart"
)

// Service is the cart store of one session. It is the only writer of that
// session's cart; every mutation is persisted before it returns.
type Service struct {
	mu         sync.Mutex
	sessionKey string
	repo       cartrepo.Repository
	catalog    catalog.Lookup
	currency   currency.Unit
	cart       domain.Cart
	loaded     bool
	checkout   atomic.Bool
	logger     *log.Entry
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Open loads the persisted cart of sessionKey. A failing load is logged and
// reads see an empty cart; the load is retried before the first write, which
// fails with domain.ErrCartUnavailable while storage stays unreadable.
func Open(ctx context.Context, sessionKey string, repo cartrepo.Repository, lookup catalog.Lookup, cur currency.Unit, opts ...Option) *Service {
	s := &Service{
		sessionKey: sessionKey,
		repo:       repo,
		catalog:    lookup,
		currency:   cur,
		cart:       domain.NewCart(cur),
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("session", sessionKey)

	if err := s.load(ctx); err != nil {
		s.logger.WithError(err).Warn("load cart failed, starting empty")
	}
	return s
}

func (s *Service) load(ctx context.Context) error {
	stored, err := s.repo.Load(ctx, s.sessionKey)
	if err != nil {
		return err
	}
	s.cart = domain.NewCart(s.currency)
	if stored != nil {
		s.cart = stored.Clone()
		if s.cart.Currency == (currency.Unit{}) {
			s.cart.Currency = s.currency
		}
	}
	s.loaded = true
	return nil
}

// Loaded reports whether the stored cart was read successfully.
func (s *Service) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// ensureLoadedLocked retries a failed load so that a write never replaces
// the stored cart with one that was never read.
func (s *Service) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	if err := s.load(ctx); err != nil {
		s.logger.WithError(err).Error("reload cart failed, refusing write")
		return fmt.Errorf("%w: %w", domain.ErrCartUnavailable, err)
	}
	s.logger.Info("cart reloaded")
	return nil
}

func (s *Service) SessionKey() string {
	return s.sessionKey
}

// AddItem adds quantity units of a variant. An existing line for the variant
// is incremented; otherwise a new line is created with the next local id.
func (s *Service) AddItem(ctx context.Context, variantID int64, quantity int) (domain.CartLine, error) {
	if quantity <= 0 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}

	variant, err := s.catalog.Lookup(ctx, variantID)
	if err != nil {
		if errors.Is(err, domain.ErrVariantNotFound) {
			return domain.CartLine{}, fmt.Errorf("variant %d: %w", variantID, domain.ErrVariantNotFound)
		}
		return domain.CartLine{}, fmt.Errorf("lookup variant %d: %w", variantID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return domain.CartLine{}, err
	}

	next := s.cart.Clone()
	var line domain.CartLine
	if idx := next.LineIndexByVariant(variantID); idx >= 0 {
		next.Lines[idx].Quantity += quantity
		line = next.Lines[idx]
	} else {
		line = domain.CartLine{
			ID:          next.NextLineID(),
			VariantID:   variant.ID,
			Quantity:    quantity,
			UnitPrice:   variant.Price,
			SKU:         variant.SKU,
			Color:       variant.Color,
			Size:        variant.Size,
			ProductName: variant.ProductName,
		}
		next.Lines = append(next.Lines, line)
	}

	if err := s.commit(ctx, next, "add"); err != nil {
		return domain.CartLine{}, err
	}
	s.logger.WithFields(log.Fields{"variant_id": variantID, "line_id": line.ID, "quantity": line.Quantity}).Debug("cart item added")
	return line, nil
}

// RemoveItem deletes a line. Unknown ids are ignored.
func (s *Service) RemoveItem(ctx context.Context, lineID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}
	return s.removeLocked(ctx, lineID)
}

func (s *Service) removeLocked(ctx context.Context, lineID int) error {
	idx := s.cart.LineIndex(lineID)
	if idx < 0 {
		return nil
	}
	next := s.cart.Clone()
	next.Lines = append(next.Lines[:idx], next.Lines[idx+1:]...)
	return s.commit(ctx, next, "remove")
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
// Unknown ids are ignored.
func (s *Service) UpdateQuantity(ctx context.Context, lineID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	if quantity <= 0 {
		return s.removeLocked(ctx, lineID)
	}
	idx := s.cart.LineIndex(lineID)
	if idx < 0 {
		return nil
	}
	next := s.cart.Clone()
	next.Lines[idx].Quantity = quantity
	return s.commit(ctx, next, "update")
}

// Clear empties the cart. The remote cart id survives.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	next := s.cart.Clone()
	next.Lines = nil
	return s.commit(ctx, next, "clear")
}

// Items returns a copy of the current lines.
func (s *Service) Items() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartLine(nil), s.cart.Lines...)
}

func (s *Service) Total() domain.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Count()
}

// Snapshot returns a copy of the whole cart.
func (s *Service) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// RemoteCartID returns the cached remote cart id, if one was ever provisioned.
func (s *Service) RemoteCartID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.RemoteCartID == nil {
		return 0, false
	}
	return *s.cart.RemoteCartID, true
}

// EnsureRemoteCart returns the cached remote cart id or provisions one.
// provision is called at most once per cart.
func (s *Service) EnsureRemoteCart(ctx context.Context, provision func(context.Context) (int64, error)) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return 0, err
	}

	if s.cart.RemoteCartID != nil {
		return *s.cart.RemoteCartID, nil
	}
	id, err := provision(ctx)
	if err != nil {
		return 0, fmt.Errorf("provision remote cart: %w", err)
	}
	next := s.cart.Clone()
	next.RemoteCartID = &id
	if err := s.commit(ctx, next, "remote_cart"); err != nil {
		return 0, err
	}
	return id, nil
}

// BeginCheckout reserves the cart for one submission at a time. The returned
// release must be called when the submission is over. A second caller gets
// domain.ErrCheckoutInProgress until then.
func (s *Service) BeginCheckout(ctx context.Context) (release func(), err error) {
	if !s.checkout.CompareAndSwap(false, true) {
		return nil, domain.ErrCheckoutInProgress
	}
	s.mu.Lock()
	err = s.ensureLoadedLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		s.checkout.Store(false)
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { s.checkout.Store(false) }) }, nil
}

// CheckingOut reports whether a submission holds the cart.
func (s *Service) CheckingOut() bool {
	return s.checkout.Load()
}

// Settle removes submitted lines from the cart. Each submitted line takes
// away its quantity from the line with the same id and variant; whatever was
// added to the cart after the snapshot stays.
func (s *Service) Settle(ctx context.Context, submitted []domain.CartLine) error {
	if len(submitted) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	next := s.cart.Clone()
	for _, sl := range submitted {
		idx := next.LineIndex(sl.ID)
		if idx < 0 || next.Lines[idx].VariantID != sl.VariantID {
			continue
		}
		if next.Lines[idx].Quantity > sl.Quantity {
			next.Lines[idx].Quantity -= sl.Quantity
			continue
		}
		next.Lines = append(next.Lines[:idx], next.Lines[idx+1:]...)
	}
	if len(next.Lines) == 0 {
		next.Lines = nil
	}
	return s.commit(ctx, next, "settle")
}

// commit persists next and makes it current. On a write error the in-memory
// cart keeps its previous state.
func (s *Service) commit(ctx context.Context, next domain.Cart, op string) error {
	if err := s.repo.Save(ctx, s.sessionKey, next); err != nil {
		s.logger.WithError(err).WithField("op", op).Error("persist cart failed")
		return fmt.Errorf("persist cart: %w", err)
	}
	s.cart = next
	s.metrics.CartMutation(op)
	return nil
}

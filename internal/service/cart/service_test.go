package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tienda-b2b/internal/catalog"
	"tienda-b2b/internal/domain"
	cartrepo "tienda-b2b/internal/repository/cart"
)

type stubRepo struct {
	loaded    *domain.Cart
	loadErr   error
	saveErr   error
	saves     int
	lastSaved domain.Cart
	lastKey   string
}

func (s *stubRepo) Load(_ context.Context, _ string) (*domain.Cart, error) {
	return s.loaded, s.loadErr
}

func (s *stubRepo) Save(_ context.Context, sessionKey string, c domain.Cart) error {
	s.saves++
	s.lastKey = sessionKey
	if s.saveErr != nil {
		return s.saveErr
	}
	s.lastSaved = c.Clone()
	return nil
}

func ars(v int64) domain.Money {
	return domain.NewMoney(decimal.NewFromInt(v), domain.DefaultCurrency)
}

func testCatalog() *catalog.Memory {
	return catalog.NewMemory(
		domain.Variant{ID: 1, ProductID: 1, ProductName: "Remera", SKU: "REM-S-B", Color: "Blanco", Size: "S", Price: ars(1500), StockAvailable: 50},
		domain.Variant{ID: 7, ProductID: 2, ProductName: "Hoodie", SKU: "HOO-S-N", Color: "Negro", Size: "S", Price: ars(3500), StockAvailable: 15},
	)
}

func openStore(t *testing.T, repo cartrepo.Repository) *Service {
	t.Helper()
	return Open(context.Background(), "session-1", repo, testCatalog(), domain.DefaultCurrency)
}

func TestAddSameVariantMergesLines(t *testing.T) {
	repo := &stubRepo{}
	svc := openStore(t, repo)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, 1, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	line, err := svc.AddItem(ctx, 1, 3)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	items := svc.Items()
	if len(items) != 1 {
		t.Fatalf("expected one line, got %d", len(items))
	}
	if line.Quantity != 5 || items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", items[0].Quantity)
	}
	if !items[0].Subtotal().Equal(ars(7500)) {
		t.Fatalf("unexpected subtotal %s", items[0].Subtotal())
	}
	if repo.saves != 2 || repo.lastKey != "session-1" {
		t.Fatalf("expected 2 saves for session-1, got %d for %q", repo.saves, repo.lastKey)
	}
}

func TestAddAssignsMaxPlusOneIDs(t *testing.T) {
	existing := domain.Cart{Currency: domain.DefaultCurrency, Lines: []domain.CartLine{
		{ID: 4, VariantID: 99, Quantity: 1, UnitPrice: ars(100)},
	}}
	svc := openStore(t, &stubRepo{loaded: &existing})

	line, err := svc.AddItem(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if line.ID != 5 {
		t.Fatalf("expected line id 5, got %d", line.ID)
	}
	if line.SKU != "HOO-S-N" || line.ProductName != "Hoodie" || line.Size != "S" {
		t.Fatalf("variant attributes not copied: %+v", line)
	}

	empty := openStore(t, &stubRepo{})
	first, err := empty.AddItem(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("expected first id 1, got %d", first.ID)
	}
}

func TestAddValidation(t *testing.T) {
	repo := &stubRepo{}
	svc := openStore(t, repo)

	if _, err := svc.AddItem(context.Background(), 1, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := svc.AddItem(context.Background(), 404, 1); !errors.Is(err, domain.ErrVariantNotFound) {
		t.Fatalf("expected variant not found, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("failed adds must not persist, got %d saves", repo.saves)
	}
}

func TestAddSurfacesWriteErrorAndKeepsState(t *testing.T) {
	repo := &stubRepo{saveErr: errors.New("disk full")}
	svc := openStore(t, repo)

	_, err := svc.AddItem(context.Background(), 1, 2)
	if err == nil || !errors.Is(err, repo.saveErr) {
		t.Fatalf("expected write error, got %v", err)
	}
	if svc.Count() != 0 {
		t.Fatalf("in-memory cart must not change on failed write, count=%d", svc.Count())
	}
}

func TestOpenSwallowsLoadError(t *testing.T) {
	svc := openStore(t, &stubRepo{loadErr: errors.New("corrupt")})
	if svc.Count() != 0 || len(svc.Items()) != 0 {
		t.Fatalf("expected empty cart after load error")
	}
	if !svc.Total().Equal(ars(0)) {
		t.Fatalf("expected zero total, got %s", svc.Total())
	}
	if svc.Loaded() {
		t.Fatalf("expected service to report a failed load")
	}
}

func TestWriteAfterFailedLoadReloadsStoredCart(t *testing.T) {
	stored := domain.Cart{Currency: domain.DefaultCurrency, Lines: []domain.CartLine{
		{ID: 1, VariantID: 1, Quantity: 3, UnitPrice: ars(1500)},
	}}
	repo := &stubRepo{loaded: &stored, loadErr: errors.New("connection refused")}
	svc := openStore(t, repo)

	repo.loadErr = nil
	line, err := svc.AddItem(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if line.ID != 2 {
		t.Fatalf("expected line id 2 after reload, got %d", line.ID)
	}
	if len(repo.lastSaved.Lines) != 2 || repo.lastSaved.Lines[0].VariantID != 1 || repo.lastSaved.Lines[0].Quantity != 3 {
		t.Fatalf("stored line lost on write: %+v", repo.lastSaved.Lines)
	}
	if !svc.Loaded() || svc.Count() != 4 {
		t.Fatalf("unexpected state loaded=%v count=%d", svc.Loaded(), svc.Count())
	}
}

func TestWriteRefusedWhileStorageUnreadable(t *testing.T) {
	repo := &stubRepo{loadErr: errors.New("connection refused")}
	svc := openStore(t, repo)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, 1, 1); !errors.Is(err, domain.ErrCartUnavailable) {
		t.Fatalf("expected cart unavailable, got %v", err)
	}
	if err := svc.Clear(ctx); !errors.Is(err, domain.ErrCartUnavailable) {
		t.Fatalf("expected cart unavailable on clear, got %v", err)
	}
	if _, err := svc.BeginCheckout(ctx); !errors.Is(err, domain.ErrCartUnavailable) {
		t.Fatalf("expected cart unavailable on checkout, got %v", err)
	}
	if svc.CheckingOut() {
		t.Fatalf("failed checkout must not hold the cart")
	}
	if repo.saves != 0 {
		t.Fatalf("nothing may be written before the cart is read, got %d saves", repo.saves)
	}
}

func TestBeginCheckoutIsExclusive(t *testing.T) {
	svc := openStore(t, &stubRepo{})
	ctx := context.Background()

	release, err := svc.BeginCheckout(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := svc.BeginCheckout(ctx); !errors.Is(err, domain.ErrCheckoutInProgress) {
		t.Fatalf("expected checkout in progress, got %v", err)
	}
	if _, err := svc.AddItem(ctx, 1, 1); err != nil {
		t.Fatalf("cart edits stay allowed during checkout: %v", err)
	}

	release()
	release()
	again, err := svc.BeginCheckout(ctx)
	if err != nil {
		t.Fatalf("begin after release: %v", err)
	}
	again()
}

func TestSettleKeepsWhatWasAddedAfterSnapshot(t *testing.T) {
	repo := &stubRepo{}
	svc := openStore(t, repo)
	ctx := context.Background()
	if _, err := svc.AddItem(ctx, 1, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	submitted := svc.Snapshot().Lines

	if _, err := svc.AddItem(ctx, 1, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddItem(ctx, 7, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.Settle(ctx, submitted); err != nil {
		t.Fatalf("settle: %v", err)
	}
	items := svc.Items()
	if len(items) != 2 {
		t.Fatalf("expected two lines left, got %+v", items)
	}
	if items[0].VariantID != 1 || items[0].Quantity != 1 {
		t.Fatalf("expected one extra unit of variant 1 kept, got %+v", items[0])
	}
	if items[1].VariantID != 7 || items[1].Quantity != 1 {
		t.Fatalf("expected variant 7 kept, got %+v", items[1])
	}
	if len(repo.lastSaved.Lines) != 2 {
		t.Fatalf("settled cart not persisted: %+v", repo.lastSaved.Lines)
	}
}

func TestSettleRemovesFullySubmittedLines(t *testing.T) {
	svc := openStore(t, &stubRepo{})
	ctx := context.Background()
	_, _ = svc.AddItem(ctx, 1, 2)
	_, _ = svc.AddItem(ctx, 7, 1)

	if err := svc.Settle(ctx, svc.Snapshot().Lines); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if svc.Count() != 0 || svc.Items() != nil {
		t.Fatalf("expected empty cart, got %+v", svc.Items())
	}
}

func TestUpdateQuantityToZeroRemoves(t *testing.T) {
	svc := openStore(t, &stubRepo{})
	ctx := context.Background()
	a, _ := svc.AddItem(ctx, 1, 2)
	if _, err := svc.AddItem(ctx, 7, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.UpdateQuantity(ctx, a.ID, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(svc.Items()) != 1 {
		t.Fatalf("expected one line left, got %d", len(svc.Items()))
	}
	if svc.Count() != 1 || !svc.Total().Equal(ars(3500)) {
		t.Fatalf("unexpected aggregates count=%d total=%s", svc.Count(), svc.Total())
	}
}

func TestUpdateQuantityChangesSubtotal(t *testing.T) {
	svc := openStore(t, &stubRepo{})
	ctx := context.Background()
	line, _ := svc.AddItem(ctx, 7, 1)

	if err := svc.UpdateQuantity(ctx, line.ID, 4); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := svc.Items()[0].Subtotal(); !got.Equal(ars(14000)) {
		t.Fatalf("unexpected subtotal %s", got)
	}
}

func TestRemoveAndUpdateUnknownLineAreNoops(t *testing.T) {
	repo := &stubRepo{}
	svc := openStore(t, repo)
	ctx := context.Background()

	if err := svc.RemoveItem(ctx, 42); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}
	if err := svc.UpdateQuantity(ctx, 42, 3); err != nil {
		t.Fatalf("update unknown: %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("no-op must not persist, got %d saves", repo.saves)
	}
}

func TestClearPersistsEmptyCart(t *testing.T) {
	repo := &stubRepo{}
	svc := openStore(t, repo)
	ctx := context.Background()
	_, _ = svc.AddItem(ctx, 1, 1)

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if svc.Count() != 0 || len(repo.lastSaved.Lines) != 0 {
		t.Fatalf("expected empty cart persisted")
	}
}

func TestEnsureRemoteCartProvisionsOnce(t *testing.T) {
	repo := &stubRepo{}
	svc := openStore(t, repo)
	calls := 0
	provision := func(context.Context) (int64, error) {
		calls++
		return 77, nil
	}

	if _, ok := svc.RemoteCartID(); ok {
		t.Fatalf("expected no remote cart yet")
	}
	for i := 0; i < 3; i++ {
		id, err := svc.EnsureRemoteCart(context.Background(), provision)
		if err != nil || id != 77 {
			t.Fatalf("ensure: id=%d err=%v", id, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single provisioning call, got %d", calls)
	}
	if id, ok := svc.RemoteCartID(); !ok || id != 77 {
		t.Fatalf("unexpected remote cart id %d %v", id, ok)
	}
	if repo.lastSaved.RemoteCartID == nil || *repo.lastSaved.RemoteCartID != 77 {
		t.Fatalf("remote cart id not persisted")
	}
}

func TestCartSurvivesReopen(t *testing.T) {
	repo := cartrepo.NewMemory(domain.DefaultCurrency)
	ctx := context.Background()

	first := Open(ctx, "s", repo, testCatalog(), domain.DefaultCurrency)
	if _, err := first.AddItem(ctx, 1, 3); err != nil {
		t.Fatalf("add: %v", err)
	}

	second := Open(ctx, "s", repo, testCatalog(), domain.DefaultCurrency)
	if second.Count() != 3 || !second.Total().Equal(ars(4500)) {
		t.Fatalf("reloaded cart mismatch count=%d total=%s", second.Count(), second.Total())
	}
}

func TestSessionsReuseService(t *testing.T) {
	sessions := NewSessions(cartrepo.NewMemory(domain.DefaultCurrency), testCatalog(), domain.DefaultCurrency)
	ctx := context.Background()

	a := sessions.Get(ctx, "a")
	if a != sessions.Get(ctx, "a") {
		t.Fatalf("expected the same service for one session")
	}
	if a == sessions.Get(ctx, "b") {
		t.Fatalf("expected different services per session")
	}
	sessions.Forget("a")
	if a == sessions.Get(ctx, "a") {
		t.Fatalf("expected a fresh service after Forget")
	}
}

func TestSessionsRetryFailedLoad(t *testing.T) {
	repo := &stubRepo{loadErr: errors.New("connection refused")}
	sessions := NewSessions(repo, testCatalog(), domain.DefaultCurrency)
	ctx := context.Background()

	degraded := sessions.Get(ctx, "a")
	if degraded.Loaded() || sessions.Len() != 0 {
		t.Fatalf("a failed load must not be cached")
	}

	repo.loadErr = nil
	recovered := sessions.Get(ctx, "a")
	if recovered == degraded || !recovered.Loaded() {
		t.Fatalf("expected a freshly loaded service")
	}
	if recovered != sessions.Get(ctx, "a") {
		t.Fatalf("expected the loaded service to be cached")
	}
}

func TestSessionsEvictIdle(t *testing.T) {
	sessions := NewSessions(cartrepo.NewMemory(domain.DefaultCurrency), testCatalog(), domain.DefaultCurrency)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }
	sessions.SetIdleTimeout(time.Minute)
	ctx := context.Background()

	idle := sessions.Get(ctx, "idle")
	busy := sessions.Get(ctx, "busy")
	release, err := busy.BeginCheckout(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer release()

	now = now.Add(2 * time.Minute)
	sessions.Get(ctx, "fresh")

	if sessions.Len() != 2 {
		t.Fatalf("expected idle session evicted, %d cached", sessions.Len())
	}
	if busy != sessions.Get(ctx, "busy") {
		t.Fatalf("a session in checkout must stay cached")
	}
	if idle == sessions.Get(ctx, "idle") {
		t.Fatalf("expected a new service for the evicted session")
	}
}

package cart

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/testpg"
)

var moneyComparer = cmp.Comparer(func(a, b domain.Money) bool { return a.Equal(b) })

func randomCart() domain.Cart {
	remote := gofakeit.Int64()
	if remote < 0 {
		remote = -remote
	}
	c := domain.Cart{Currency: domain.DefaultCurrency, RemoteCartID: &remote}
	n := gofakeit.IntRange(1, 4)
	for i := 1; i <= n; i++ {
		c.Lines = append(c.Lines, domain.CartLine{
			ID:          i,
			VariantID:   int64(100 + i),
			Quantity:    gofakeit.IntRange(1, 20),
			UnitPrice:   domain.NewMoney(decimal.NewFromFloat(gofakeit.Price(100, 5000)).Round(2), domain.DefaultCurrency),
			SKU:         gofakeit.LetterN(6),
			Color:       gofakeit.Color(),
			Size:        gofakeit.RandomString([]string{"S", "M", "L"}),
			ProductName: gofakeit.ProductName(),
		})
	}
	return c
}

func assertSameCart(t *testing.T, want domain.Cart, got *domain.Cart) {
	t.Helper()
	require.NotNil(t, got)
	if diff := cmp.Diff(want, *got, moneyComparer, cmp.Comparer(func(a, b currency.Unit) bool { return a == b })); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(domain.DefaultCurrency)

	empty, err := repo.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty.Lines)
	assert.Nil(t, empty.RemoteCartID)

	want := randomCart()
	require.NoError(t, repo.Save(ctx, "s1", want))

	got, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assertSameCart(t, want, got)

	// stored snapshot must not alias the caller's slice
	want.Lines[0].Quantity = 999
	again, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEqual(t, 999, again.Lines[0].Quantity)
}

func TestFileRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo, err := NewFile(dir, domain.DefaultCurrency)
	require.NoError(t, err)

	empty, err := repo.Load(ctx, "fresh-session")
	require.NoError(t, err)
	assert.Empty(t, empty.Lines)
	assert.Equal(t, domain.DefaultCurrency, empty.Currency)

	want := randomCart()
	require.NoError(t, repo.Save(ctx, "../evil/session", want))

	got, err := repo.Load(ctx, "../evil/session")
	require.NoError(t, err)
	assertSameCart(t, want, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must be cleaned up")
	assert.Equal(t, "___evil_session.json", entries[0].Name())
}

func TestFileRepoCorruptFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFile(dir, domain.DefaultCurrency)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.json"), []byte("{not json"), 0o644))

	_, err = repo.Load(context.Background(), "s")
	assert.Error(t, err)
}

func TestFileRepoEmptySessionKey(t *testing.T) {
	repo, err := NewFile(t.TempDir(), domain.DefaultCurrency)
	require.NoError(t, err)
	assert.Error(t, repo.Save(context.Background(), "", domain.NewCart(domain.DefaultCurrency)))
}

type postgresCartSuite struct {
	suite.Suite

	db   *testpg.Database
	pool *pgxpool.Pool
	repo Repository
}

func TestPostgresCartSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	suite.Run(t, new(postgresCartSuite))
}

func (s *postgresCartSuite) SetupSuite() {
	ctx := context.Background()
	var err error
	s.db, err = testpg.Start(ctx)
	s.Require().NoError(err)

	s.pool, err = pgxpool.New(ctx, s.db.DSN)
	s.Require().NoError(err)
	s.repo = NewPostgres(s.pool, domain.DefaultCurrency)
}

func (s *postgresCartSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	s.NoError(s.db.Close(context.Background()))
}

func (s *postgresCartSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE cart_lines, carts`)
	s.Require().NoError(err)
}

func (s *postgresCartSuite) TestLoadUnknownSession() {
	got, err := s.repo.Load(context.Background(), gofakeit.UUID())
	s.Require().NoError(err)
	s.Empty(got.Lines)
	s.Equal(domain.DefaultCurrency, got.Currency)
}

func (s *postgresCartSuite) TestSaveReplacesLines() {
	ctx := context.Background()
	key := gofakeit.UUID()

	first := randomCart()
	s.Require().NoError(s.repo.Save(ctx, key, first))

	second := first.Clone()
	second.Lines = second.Lines[:1]
	second.Lines[0].Quantity = 42
	s.Require().NoError(s.repo.Save(ctx, key, second))

	got, err := s.repo.Load(ctx, key)
	s.Require().NoError(err)
	assertSameCart(s.T(), second, got)
}

func (s *postgresCartSuite) TestSaveEmptyKeepsRemoteID() {
	ctx := context.Background()
	key := gofakeit.UUID()
	c := randomCart()
	c.Lines = nil
	s.Require().NoError(s.repo.Save(ctx, key, c))

	got, err := s.repo.Load(ctx, key)
	s.Require().NoError(err)
	s.Empty(got.Lines)
	s.Require().NotNil(got.RemoteCartID)
	s.Equal(*c.RemoteCartID, *got.RemoteCartID)
}

package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
)

// fileRepo keeps one JSON document per session in a directory.
type fileRepo struct {
	mu       sync.Mutex
	dir      string
	currency currency.Unit
}

type fileCart struct {
	RemoteCartID *int64     `json:"remoteCartId,omitempty"`
	Currency     string     `json:"currency"`
	Lines        []fileLine `json:"lines"`
}

type fileLine struct {
	ID          int             `json:"id"`
	VariantID   int64           `json:"variantId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Currency    string          `json:"currency"`
	SKU         string          `json:"sku"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
	ProductName string          `json:"productName"`
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func NewFile(dir string, cur currency.Unit) (Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &fileRepo{dir: dir, currency: cur}, nil
}

func (r *fileRepo) path(sessionKey string) (string, error) {
	name := unsafeKeyChars.ReplaceAllString(sessionKey, "_")
	if name == "" {
		return "", errors.New("session key is empty")
	}
	return filepath.Join(r.dir, name+".json"), nil
}

func (r *fileRepo) Load(_ context.Context, sessionKey string) (*domain.Cart, error) {
	path, err := r.path(sessionKey)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	data, err := os.ReadFile(path)
	r.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		c := domain.NewCart(r.currency)
		return &c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cart file: %w", err)
	}

	var stored fileCart
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode cart file: %w", err)
	}
	return stored.toDomain(r.currency)
}

// Save writes to a temporary file and renames it over the old snapshot.
func (r *fileRepo) Save(_ context.Context, sessionKey string, cart domain.Cart) error {
	path, err := r.path(sessionKey)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fromDomain(cart))
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp, err := os.CreateTemp(r.dir, ".cart-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace cart file: %w", err)
	}
	return nil
}

func fromDomain(c domain.Cart) fileCart {
	out := fileCart{RemoteCartID: c.RemoteCartID, Currency: c.Currency.String(), Lines: make([]fileLine, 0, len(c.Lines))}
	for _, l := range c.Lines {
		out.Lines = append(out.Lines, fileLine{
			ID:          l.ID,
			VariantID:   l.VariantID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.Amount,
			Currency:    l.UnitPrice.Currency.String(),
			SKU:         l.SKU,
			Color:       l.Color,
			Size:        l.Size,
			ProductName: l.ProductName,
		})
	}
	return out
}

func (f fileCart) toDomain(def currency.Unit) (*domain.Cart, error) {
	cartUnit, err := parseUnit(f.Currency, def)
	if err != nil {
		return nil, err
	}
	c := domain.Cart{RemoteCartID: f.RemoteCartID, Currency: cartUnit}
	for _, l := range f.Lines {
		unit, err := parseUnit(l.Currency, cartUnit)
		if err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, domain.CartLine{
			ID:          l.ID,
			VariantID:   l.VariantID,
			Quantity:    l.Quantity,
			UnitPrice:   domain.NewMoney(l.UnitPrice, unit),
			SKU:         l.SKU,
			Color:       l.Color,
			Size:        l.Size,
			ProductName: l.ProductName,
		})
	}
	return &c, nil
}

func parseUnit(code string, def currency.Unit) (currency.Unit, error) {
	if code == "" {
		return def, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("parse currency %q: %w", code, err)
	}
	return unit, nil
}

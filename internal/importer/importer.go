package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/logging"
	"tienda-b2b/internal/repository/variant"
)

// CatalogWriter stores products and their variants.
type CatalogWriter interface {
	UpsertProduct(ctx context.Context, in variant.UpsertProductInput) (int64, error)
	UpsertVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
}

// Result counts what an import stored.
type Result struct {
	Products int
	Variants int
}

// CSVImporter reads catalog CSV files: a product row (product.key,
// product.name) followed by one continuation row per variant (variant.sku,
// variant.color, variant.size, variant.price, variant.stock).
type CSVImporter struct {
	reader   *csv.Reader
	writer   CatalogWriter
	currency currency.Unit
	logger   *log.Entry
}

func NewCSVImporter(r io.Reader, writer CatalogWriter, cur currency.Unit, logger *log.Entry) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if logger == nil {
		logger = logging.Discard()
	}
	return &CSVImporter{
		reader:   csvr,
		writer:   writer,
		currency: cur,
		logger:   logger,
	}
}

type productRow struct {
	ID       int64
	Key      string
	Name     string
	Variants []variantRow
	line     int
}

type variantRow struct {
	ID    int64
	SKU   string
	Color string
	Size  string
	Price decimal.Decimal
	Stock int
	line  int
}

// Run parses the CSV and upserts products grouped with their variants.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result

	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["product.key"]; !ok {
		return res, errors.New("missing product.key column")
	}
	if _, ok := index["variant.sku"]; !ok {
		return res, errors.New("missing variant.sku column")
	}

	var current *productRow
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}
		line++

		if key := pick(record, index, "product.key"); key != "" {
			if current != nil {
				if err := i.save(ctx, current, &res); err != nil {
					return res, err
				}
			}
			current, err = parseProduct(record, index, line)
			if err != nil {
				return res, err
			}
		}

		if pick(record, index, "variant.sku") == "" {
			continue
		}
		if current == nil {
			return res, fmt.Errorf("line %d: variant row before any product row", line)
		}
		v, err := parseVariant(record, index, line)
		if err != nil {
			return res, err
		}
		current.Variants = append(current.Variants, v)
	}

	if current != nil {
		if err := i.save(ctx, current, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (i *CSVImporter) save(ctx context.Context, p *productRow, res *Result) error {
	if p.Name == "" {
		return fmt.Errorf("line %d: product %q has no name", p.line, p.Key)
	}
	productID, err := i.writer.UpsertProduct(ctx, variant.UpsertProductInput{ID: p.ID, Key: p.Key, Name: p.Name})
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", p.Key, err)
	}
	res.Products++

	for _, v := range p.Variants {
		_, err := i.writer.UpsertVariant(ctx, domain.Variant{
			ID:             v.ID,
			ProductID:      productID,
			ProductName:    p.Name,
			SKU:            v.SKU,
			Color:          v.Color,
			Size:           v.Size,
			Price:          domain.NewMoney(v.Price, i.currency),
			StockAvailable: v.Stock,
		})
		if err != nil {
			return fmt.Errorf("line %d: upsert variant %q: %w", v.line, v.SKU, err)
		}
		res.Variants++
	}
	i.logger.WithFields(log.Fields{"product": p.Key, "variants": len(p.Variants)}).Debug("product imported")
	return nil
}

func parseProduct(record []string, index map[string]int, line int) (*productRow, error) {
	p := &productRow{
		Key:  pick(record, index, "product.key"),
		Name: pick(record, index, "product.name"),
		line: line,
	}
	if raw := pick(record, index, "product.id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("line %d: invalid product.id %q", line, raw)
		}
		p.ID = id
	}
	return p, nil
}

func parseVariant(record []string, index map[string]int, line int) (variantRow, error) {
	v := variantRow{
		SKU:   pick(record, index, "variant.sku"),
		Color: pick(record, index, "variant.color"),
		Size:  pick(record, index, "variant.size"),
		line:  line,
	}
	if raw := pick(record, index, "variant.id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return v, fmt.Errorf("line %d: invalid variant.id %q", line, raw)
		}
		v.ID = id
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(pick(record, index, "variant.price"), ",", "."))
	if err != nil || !price.IsPositive() {
		return v, fmt.Errorf("line %d: invalid price for %q", line, v.SKU)
	}
	v.Price = price

	if raw := pick(record, index, "variant.stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return v, fmt.Errorf("line %d: invalid stock %q for %q", line, raw, v.SKU)
		}
		v.Stock = stock
	}
	return v, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

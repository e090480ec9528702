package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/repository/variant"
)

type stubCatalogWriter struct {
	products []variant.UpsertProductInput
	variants []domain.Variant
	failSKU  string
}

func (s *stubCatalogWriter) UpsertProduct(_ context.Context, in variant.UpsertProductInput) (int64, error) {
	s.products = append(s.products, in)
	if in.ID > 0 {
		return in.ID, nil
	}
	return int64(100 + len(s.products)), nil
}

func (s *stubCatalogWriter) UpsertVariant(_ context.Context, v domain.Variant) (*domain.Variant, error) {
	if v.SKU == s.failSKU {
		return nil, errors.New("duplicate sku")
	}
	s.variants = append(s.variants, v)
	return &v, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `product.id,product.key,product.name,variant.id,variant.sku,variant.color,variant.size,variant.price,variant.stock
1,remera-basica-tejida,Remera Básica Tejida,,,,,,
,,,1,REM-S-B,Blanco,S,1500,50
,,,2,REM-M-B,Blanco,M,"1500,50",30
,hoodie-sirio-tinto,Hoodie Sirio Tinto,,,,,,
,,,,HOO-S-N,Negro,S,3500.00,
`
	writer := &stubCatalogWriter{}
	imp := NewCSVImporter(strings.NewReader(csvData), writer, domain.DefaultCurrency, nil)

	res, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if res.Products != 2 || res.Variants != 3 {
		t.Fatalf("expected 2 products and 3 variants, got %+v", res)
	}

	if writer.products[0].ID != 1 || writer.products[0].Key != "remera-basica-tejida" {
		t.Fatalf("unexpected first product %+v", writer.products[0])
	}
	first := writer.variants[0]
	if first.ID != 1 || first.ProductID != 1 || first.SKU != "REM-S-B" || first.StockAvailable != 50 || first.ProductName != "Remera Básica Tejida" {
		t.Fatalf("unexpected first variant %+v", first)
	}
	if first.Price.Currency != domain.DefaultCurrency || first.Price.Amount.String() != "1500" {
		t.Fatalf("unexpected price %s", first.Price)
	}
	if writer.variants[1].Price.Amount.String() != "1500.5" {
		t.Fatalf("expected decimal comma to be accepted, got %s", writer.variants[1].Price.Amount)
	}
	hoodie := writer.variants[2]
	if hoodie.ProductID != 102 || hoodie.ID != 0 || hoodie.StockAvailable != 0 {
		t.Fatalf("unexpected hoodie variant %+v", hoodie)
	}
}

func TestCSVImporter_ProductRowMayCarryFirstVariant(t *testing.T) {
	csvData := `product.key,product.name,variant.sku,variant.color,variant.size,variant.price,variant.stock
chaleco,Chaleco Wendbarr Reversible,CHA-S-N,Negro,S,2800,15
,,CHA-M-N,Negro,M,2800,18`

	writer := &stubCatalogWriter{}
	res, err := NewCSVImporter(strings.NewReader(csvData), writer, domain.DefaultCurrency, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if res.Products != 1 || res.Variants != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCSVImporter_Errors(t *testing.T) {
	cases := map[string]string{
		"missing columns":        "key,name\nx,y",
		"variant before product": "product.key,product.name,variant.sku,variant.price\n,,SKU-1,10",
		"bad price":              "product.key,product.name,variant.sku,variant.price\np,P,SKU-1,gratis",
		"negative stock":         "product.key,product.name,variant.sku,variant.price,variant.stock\np,P,SKU-1,10,-1",
		"product without name":   "product.key,product.name,variant.sku,variant.price\np,,SKU-1,10",
	}
	for name, csvData := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCSVImporter(strings.NewReader(csvData), &stubCatalogWriter{}, domain.DefaultCurrency, nil).Run(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCSVImporter_WriterErrorStopsImport(t *testing.T) {
	csvData := `product.key,product.name,variant.sku,variant.price
p,P,SKU-1,10
,,SKU-2,10
q,Q,SKU-3,10`

	writer := &stubCatalogWriter{failSKU: "SKU-2"}
	res, err := NewCSVImporter(strings.NewReader(csvData), writer, domain.DefaultCurrency, nil).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "SKU-2") {
		t.Fatalf("expected SKU-2 failure, got %v", err)
	}
	if res.Products != 1 || res.Variants != 1 {
		t.Fatalf("unexpected partial result %+v", res)
	}
}

package catalog

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
)

// DemoProduct groups the variants of one product of the demo catalog.
type DemoProduct struct {
	ID       int64
	Key      string
	Name     string
	Variants []domain.Variant
}

type demoVariant struct {
	id    int64
	sku   string
	color string
	size  string
	stock int
}

// DemoCatalog returns the apparel catalog used for local development.
func DemoCatalog(cur currency.Unit) []DemoProduct {
	build := func(id int64, key, name string, price int64, rows []demoVariant) DemoProduct {
		p := DemoProduct{ID: id, Key: key, Name: name}
		for _, r := range rows {
			p.Variants = append(p.Variants, domain.Variant{
				ID:             r.id,
				ProductID:      id,
				ProductName:    name,
				SKU:            r.sku,
				Color:          r.color,
				Size:           r.size,
				Price:          domain.NewMoney(decimal.NewFromInt(price), cur),
				StockAvailable: r.stock,
			})
		}
		return p
	}

	return []DemoProduct{
		build(1, "remera-basica-tejida", "Remera Básica Tejida", 1500, []demoVariant{
			{1, "REM-S-B", "Blanco", "S", 50},
			{2, "REM-M-B", "Blanco", "M", 30},
			{3, "REM-L-B", "Blanco", "L", 25},
			{4, "REM-S-A", "Azul", "S", 40},
			{5, "REM-M-A", "Azul", "M", 35},
			{6, "REM-L-A", "Azul", "L", 20},
		}),
		build(2, "hoodie-sirio-tinto", "Hoodie Sirio Tinto", 3500, []demoVariant{
			{7, "HOO-S-N", "Negro", "S", 15},
			{8, "HOO-M-N", "Negro", "M", 20},
			{9, "HOO-L-N", "Negro", "L", 18},
			{10, "HOO-S-M", "Marrón", "S", 12},
			{11, "HOO-M-M", "Marrón", "M", 16},
			{12, "HOO-L-M", "Marrón", "L", 14},
		}),
		build(3, "campera-sherpa-teddy", "Campera Sherpa Teddy", 4500, []demoVariant{
			{13, "CAM-S-N", "Negro", "S", 8},
			{14, "CAM-M-N", "Negro", "M", 10},
			{15, "CAM-L-N", "Negro", "L", 12},
			{16, "CAM-S-M", "Marrón", "S", 6},
			{17, "CAM-M-M", "Marrón", "M", 9},
			{18, "CAM-L-M", "Marrón", "L", 11},
		}),
		build(4, "chaleco-wendbarr-reversible", "Chaleco Wendbarr Reversible", 2800, []demoVariant{
			{19, "CHA-S-N", "Negro", "S", 15},
			{20, "CHA-M-N", "Negro", "M", 18},
		}),
	}
}

// NewDemoMemory returns a Memory catalog loaded with DemoCatalog.
func NewDemoMemory(cur currency.Unit) *Memory {
	var variants []domain.Variant
	for _, p := range DemoCatalog(cur) {
		variants = append(variants, p.Variants...)
	}
	return NewMemory(variants...)
}

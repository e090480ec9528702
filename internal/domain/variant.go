package domain

// Variant is a sellable combination of a product, color and size.
type Variant struct {
	ID             int64
	ProductID      int64
	ProductName    string
	SKU            string
	Color          string
	Size           string
	Price          Money
	StockAvailable int
}

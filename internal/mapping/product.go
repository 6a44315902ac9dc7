package mapping

import (
	"github.com/kosarica/feed-service/internal/types"
)

const (
	// DefaultStock is used when a supplier maps no stock column
	DefaultStock = "true"
	// DefaultCurrency is used when a supplier maps no currency column
	DefaultCurrency = "UAH"
)

// Rejection describes a data row that did not become a product
type Rejection struct {
	RowNumber int      `json:"rowNumber"`
	Errors    []string `json:"errors"`
}

// MapRow applies a supplier's column map to a single row
func MapRow(row []string, columns types.ColumnMap) types.Product {
	product := types.Product{
		ID:       MapValue(row, columns[types.FieldID], ""),
		Name:     MapValue(row, columns[types.FieldName], ""),
		Stock:    MapValue(row, columns[types.FieldStock], DefaultStock),
		Price:    CleanPrice(MapValue(row, columns[types.FieldPrice], "0")),
		Currency: MapValue(row, columns[types.FieldCurrency], DefaultCurrency),
		SKU:      MapValue(row, columns[types.FieldSKU], ""),
	}

	// RRP is optional and "0" means no RRP
	if rrp := CleanPrice(MapValue(row, columns[types.FieldRRP], "")); rrp != "0" {
		product.RRP = rrp
	}

	return product
}

// Validate checks the required fields of a mapped product. Price has to be a
// positive integer; anything non-numeric left after normalization is rejected.
func Validate(p types.Product) types.ProductValidation {
	var errors []string

	if p.ID == "" {
		errors = append(errors, "Missing product id")
	}
	if p.Name == "" {
		errors = append(errors, "Missing product name")
	}
	switch {
	case p.Price == "":
		errors = append(errors, "Missing price")
	case !isPositiveInteger(p.Price):
		errors = append(errors, "Price must be a positive integer")
	}

	return types.ProductValidation{
		IsValid: len(errors) == 0,
		Errors:  errors,
	}
}

// BuildProducts maps and validates data rows in order. Rejected rows are
// reported with their 1-based position among the data rows.
func BuildProducts(rows [][]string, columns types.ColumnMap) ([]types.Product, []Rejection) {
	products := make([]types.Product, 0, len(rows))
	var rejected []Rejection

	for i, row := range rows {
		product := MapRow(row, columns)
		validation := Validate(product)
		if !validation.IsValid {
			rejected = append(rejected, Rejection{RowNumber: i + 1, Errors: validation.Errors})
			continue
		}
		products = append(products, product)
	}

	return products, rejected
}

func isPositiveInteger(s string) bool {
	nonZero := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		if c != '0' {
			nonZero = true
		}
	}
	return nonZero
}

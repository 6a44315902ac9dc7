package types

// Field is a logical product field a supplier maps to a spreadsheet column
type Field string

const (
	FieldID       Field = "ID"
	FieldName     Field = "Name"
	FieldStock    Field = "Stock"
	FieldPrice    Field = "Price"
	FieldSKU      Field = "SKU"
	FieldRRP      Field = "RRP"
	FieldCurrency Field = "Currency"
)

// Fields lists every recognized field in registry column order
var Fields = []Field{FieldID, FieldName, FieldStock, FieldPrice, FieldSKU, FieldRRP, FieldCurrency}

// ColumnMap maps a field to a single column letter. A missing key means the
// supplier has no column for that field.
type ColumnMap map[Field]string

// SupplierConfig is one registry row
type SupplierConfig struct {
	SupplierID   string    `json:"supplierId"`
	SupplierName string    `json:"supplierName"`
	SheetID      string    `json:"sheetId"`
	Columns      ColumnMap `json:"columns"`
	RowNumber    int       `json:"rowNumber"`
}

// Worksheet is one tab of a spreadsheet with its full grid, header included
type Worksheet struct {
	Title  string     `json:"title"`
	Values [][]string `json:"values"`
}

// Product is the normalized output unit of a supplier feed
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Stock    string `json:"stock"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	SKU      string `json:"sku,omitempty"`
	RRP      string `json:"rrp,omitempty"`
}

// ProductValidation represents the validation result for a mapped row
type ProductValidation struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors,omitempty"`
}

// SupplierOutcome is the result of one supplier in a refresh pass
type SupplierOutcome string

const (
	OutcomeWritten      SupplierOutcome = "written"
	OutcomeUnchanged    SupplierOutcome = "unchanged"
	OutcomeEmpty        SupplierOutcome = "empty"
	OutcomeSkippedQuota SupplierOutcome = "skipped_quota"
	OutcomeFailedAccess SupplierOutcome = "failed_access"
	OutcomeFailedWrite  SupplierOutcome = "failed_write"
)

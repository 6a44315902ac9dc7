// Package feed renders supplier products as the XML price feed and stores it.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/kosarica/feed-service/internal/types"
)

// Header is the XML declaration written at the top of every feed
const Header = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Document is the feed root: <products> with one <product> per record
type Document struct {
	XMLName  xml.Name  `xml:"products"`
	Products []Product `xml:"product"`
}

// Product is one <product> element. Child order follows field order.
type Product struct {
	ID       string `xml:"id"`
	Name     string `xml:"name"`
	Stock    string `xml:"stock"`
	Price    string `xml:"price"`
	Currency string `xml:"currency"`
	SKU      string `xml:"sku,omitempty"`
	RRP      string `xml:"rrp,omitempty"`
}

// NewDocument builds a feed document preserving product order
func NewDocument(products []types.Product) Document {
	doc := Document{Products: make([]Product, len(products))}
	for i, p := range products {
		doc.Products[i] = Product{
			ID:       p.ID,
			Name:     p.Name,
			Stock:    p.Stock,
			Price:    p.Price,
			Currency: p.Currency,
			SKU:      p.SKU,
			RRP:      p.RRP,
		}
	}
	return doc
}

// Encode serializes products to a UTF-8 XML document. The same products
// always produce the same bytes.
func Encode(products []types.Product) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(NewDocument(products)); err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish feed: %w", err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// Decode parses a feed document; used by tooling and tests
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return &doc, nil
}

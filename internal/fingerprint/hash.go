// Package fingerprint detects whether a supplier spreadsheet changed since
// its feed was last written.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/kosarica/feed-service/internal/types"
)

// HashVersion is the current version of the fingerprint algorithm
const HashVersion = 1

// canonicalSheet is the stable encoding of one worksheet. Field order is fixed
// by the struct, so json.Marshal output is deterministic.
type canonicalSheet struct {
	Title  string     `json:"title"`
	Values [][]string `json:"values"`
}

type canonicalDocument struct {
	Version int              `json:"v"`
	Sheets  []canonicalSheet `json:"sheets"`
}

// Compute hashes every cell of every worksheet, in enumeration order. Any
// cell edit, added or removed row, renamed or reordered worksheet produces a
// different fingerprint; identical grids always hash the same.
func Compute(worksheets []types.Worksheet) string {
	doc := canonicalDocument{
		Version: HashVersion,
		Sheets:  make([]canonicalSheet, len(worksheets)),
	}
	for i, ws := range worksheets {
		values := ws.Values
		if values == nil {
			values = [][]string{}
		}
		doc.Sheets[i] = canonicalSheet{Title: ws.Title, Values: values}
	}

	// Marshal cannot fail for strings and slices of strings
	payload, _ := json.Marshal(doc)

	hash := sha256.Sum256(payload)
	return hex.EncodeToString(hash[:])
}

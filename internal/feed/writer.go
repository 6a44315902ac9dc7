package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kosarica/feed-service/internal/storage"
	"github.com/kosarica/feed-service/internal/types"
)

// ContentType of generated feeds
const ContentType = "application/xml"

// Extension of generated feed files
const Extension = ".xml"

// ErrInvalidSupplierID is returned for ids that cannot be used as a file name
var ErrInvalidSupplierID = errors.New("invalid supplier id")

// FileName returns the output key for a supplier: "{supplier_id}.xml"
func FileName(supplierID string) (string, error) {
	if supplierID == "" || supplierID == "." || supplierID == ".." || strings.ContainsAny(supplierID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSupplierID, supplierID)
	}
	return supplierID + Extension, nil
}

// WriteResult describes a stored feed
type WriteResult struct {
	Key          string
	Bytes        int
	ProductCount int
}

// Writer serializes products and stores them, replacing any previous feed
type Writer struct {
	store storage.Storage
	now   func() time.Time
}

// NewWriter creates a feed writer over the given store
func NewWriter(store storage.Storage) *Writer {
	return &Writer{store: store, now: time.Now}
}

// Write stores the feed for one supplier
func (w *Writer) Write(ctx context.Context, supplier types.SupplierConfig, products []types.Product, fp string, runID string) (*WriteResult, error) {
	key, err := FileName(supplier.SupplierID)
	if err != nil {
		return nil, err
	}

	content, err := Encode(products)
	if err != nil {
		return nil, err
	}

	metadata := &storage.Metadata{
		ContentType:  ContentType,
		SupplierID:   supplier.SupplierID,
		SupplierName: supplier.SupplierName,
		SheetID:      supplier.SheetID,
		Fingerprint:  fp,
		ProductCount: len(products),
		RunID:        runID,
		WrittenAt:    w.now(),
	}

	if err := w.store.Put(ctx, key, content, metadata); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}

	return &WriteResult{
		Key:          key,
		Bytes:        len(content),
		ProductCount: len(products),
	}, nil
}

// List returns the stored feed file names
func List(ctx context.Context, store storage.Storage) ([]string, error) {
	keys, err := store.List(ctx, "")
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, Extension) {
			files = append(files, key)
		}
	}
	return files, nil
}

// DeleteAll removes every stored feed and returns how many were deleted
func DeleteAll(ctx context.Context, store storage.Storage) (int, error) {
	files, err := List(ctx, store)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var errs []error
	for _, file := range files {
		if err := store.Delete(ctx, file); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

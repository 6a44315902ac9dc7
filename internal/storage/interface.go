package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("file not found")

// ErrInvalidKey is returned for keys that are not plain file names
var ErrInvalidKey = errors.New("invalid storage key")

// Metadata describes how a stored feed was produced
type Metadata struct {
	ContentType  string            `json:"contentType,omitempty"`
	SupplierID   string            `json:"supplierId,omitempty"`
	SupplierName string            `json:"supplierName,omitempty"`
	SheetID      string            `json:"sheetId,omitempty"`
	Fingerprint  string            `json:"fingerprint,omitempty"`
	ProductCount int               `json:"productCount"`
	RunID        string            `json:"runId,omitempty"`
	WrittenAt    time.Time         `json:"writtenAt,omitempty"`
	Custom       map[string]string `json:"custom,omitempty"`
}

// FileInfo contains information about a stored file
type FileInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	ContentType string    `json:"contentType,omitempty"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Storage is the output store for generated feeds
type Storage interface {
	// Put replaces the content at key in one step; readers never observe a
	// partially written file
	Put(ctx context.Context, key string, content []byte, metadata *Metadata) error

	// Get retrieves content from the given key
	Get(ctx context.Context, key string) ([]byte, error)

	// GetInfo retrieves file information without content
	GetInfo(ctx context.Context, key string) (*FileInfo, error)

	// Exists checks if a file exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a file at the given key
	Delete(ctx context.Context, key string) error

	// List returns all keys matching the given prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
}

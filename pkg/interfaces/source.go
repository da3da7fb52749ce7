package interfaces

import (
	"context"
	"io"
)

// ReferenceSource provides read access to the flat reference tables the
// population frequency table is built from.
type ReferenceSource interface {
	// Open returns a reader for the named table. Callers must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Close releases the resources held by the source
	Close() error
}

// ReferencePublisher is a reference source that can also store tables
type ReferencePublisher interface {
	ReferenceSource

	// Put stores the content of body under name, replacing any previous table
	Put(ctx context.Context, name string, body io.Reader) error
}

// Package cache provides the durable translation store and its persisters.
package cache

import (
	"context"
	"fmt"
)

// Entry is one cached translation.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Stats describes the store contents.
type Stats struct {
	Count int `json:"count"`
}

// Persister loads and saves full snapshots of the store.
// Save always receives the complete mapping in insertion order.
type Persister interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// ImportError reports a snapshot that could not be imported.
// The store is left unchanged when it is returned.
type ImportError struct {
	Cause error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import rejected: %v", e.Cause)
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}

// Package store persists style profiles, writing samples, and generation
// history. Callers depend on the Store interface; SQLite is the shipped
// implementation.
package store

import (
	"context"
	"errors"

	"github.com/dshills/styletwin/internal/schema"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Repository is the set of reads and writes the engine performs. Every
// method is safe to call inside or outside a transaction.
type Repository interface {
	// GetProfile returns ErrNotFound when userID has no profile yet.
	GetProfile(ctx context.Context, userID string) (schema.StyleProfile, error)
	// PutProfile inserts or replaces the profile keyed by UserID.
	PutProfile(ctx context.Context, p schema.StyleProfile) error
	// ListSampleEmbeddings returns every chunk embedding stored for userID,
	// oldest sample first and in chunk order within a sample.
	ListSampleEmbeddings(ctx context.Context, userID string) ([][]float64, error)
	// AppendSample stores a sample and its chunks.
	AppendSample(ctx context.Context, s schema.WritingSample) error
	// ListRecentSamples returns up to limit samples, newest first. Chunks are
	// not populated.
	ListRecentSamples(ctx context.Context, userID string, limit int) ([]schema.WritingSample, error)
	// AppendGeneration records one generated output.
	AppendGeneration(ctx context.Context, r schema.GenerationRecord) error
	// ListGenerations returns up to limit records, newest first.
	ListGenerations(ctx context.Context, userID string, limit int) ([]schema.GenerationRecord, error)
}

// Store is a Repository that can run a read-recompute-write cycle
// atomically.
type Store interface {
	Repository
	// WithTx runs fn inside a transaction. fn must only use the Repository it
	// is given. The transaction commits when fn returns nil and rolls back
	// otherwise.
	WithTx(ctx context.Context, fn func(Repository) error) error
	Close() error
}

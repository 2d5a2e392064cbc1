package repository

import (
	"context"
	"io"

	"AlphaKit/internal/domain/models"
)

// FetchRequest is everything the provider transport needs for one retrieval.
type FetchRequest struct {
	Provider     models.Provider
	DatabaseCode string
	DatasetCode  string
	Window       models.Window
	APIKey       string
}

// Transport retrieves the raw tabular payload for one dataset window.
// Failures should be *models.FetchError so callers can tell transient from permanent.
type Transport interface {
	Fetch(ctx context.Context, req FetchRequest) ([]byte, error)
}

// ArtifactStore is the flat backing store of cached artifacts, addressed by cache key.
// Existence of an artifact is the only cache-hit signal, so Put must never expose a partial write.
type ArtifactStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Locker hands out per-key mutual exclusion tokens.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SecretLoader resolves a credential reference to its value.
type SecretLoader interface {
	Load(ctx context.Context, name string) (string, error)
}

// ReportSink delivers a finished report outside the process.
type ReportSink interface {
	Publish(ctx context.Context, r *models.Report) error
	Close() error
}

type Metrics interface {
	RecordFetch(source, outcome string)
	RecordCacheHit(source string)
	RecordProblem(kind string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

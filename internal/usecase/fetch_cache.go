package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"AlphaKit/internal/cachekey"
	"AlphaKit/internal/domain/models"
	drepo "AlphaKit/internal/domain/repository"
	"AlphaKit/pkg/logger"
)

// FetchCache makes sure the artifact for a (spec, window) pair exists in the store,
// retrieving it at most once per key for the lifetime of the instance.
// One instance serves one scenario run.
type FetchCache struct {
	transport  drepo.Transport
	store      drepo.ArtifactStore
	locker     drepo.Locker
	secrets    drepo.SecretLoader
	credential string
	metrics    drepo.Metrics
	log        *logger.Logger

	mu     sync.Mutex
	failed map[string]error
}

// NewFetchCache wires a fetch cache. credential is the name handed to the secret loader.
func NewFetchCache(
	transport drepo.Transport,
	store drepo.ArtifactStore,
	locker drepo.Locker,
	secrets drepo.SecretLoader,
	credential string,
	metrics drepo.Metrics,
	log *logger.Logger,
) *FetchCache {
	return &FetchCache{
		transport:  transport,
		store:      store,
		locker:     locker,
		secrets:    secrets,
		credential: credential,
		metrics:    metrics,
		log:        log,
		failed:     make(map[string]error),
	}
}

// Ensure returns StatusFetched once the artifact is present. Retrieval or persistence
// failures return StatusError with a *models.FetchError; a malformed key returns the
// codec's format error.
func (f *FetchCache) Ensure(ctx context.Context, spec models.DatasetSpec, window models.Window) (models.Status, error) {
	key, err := cachekey.Encode(spec, window)
	if err != nil {
		return models.StatusError, err
	}
	if err := f.recorded(key); err != nil {
		return models.StatusError, err
	}

	unlock, err := f.locker.Lock(ctx, key)
	if err != nil {
		return models.StatusError, f.fail(key, f.classify(ctx, key, "lock", err))
	}
	defer unlock()

	// Another holder may have failed this key while we waited.
	if err := f.recorded(key); err != nil {
		return models.StatusError, err
	}

	source := spec.SourceName()
	ok, err := f.store.Exists(ctx, key)
	if err != nil {
		return models.StatusError, f.fail(key, f.classify(ctx, key, "persist", err))
	}
	if ok {
		f.metrics.RecordCacheHit(source)
		f.log.Debug("cache hit", logger.String("key", key))
		return models.StatusFetched, nil
	}

	apiKey, err := f.secrets.Load(ctx, f.credential)
	if err != nil {
		return models.StatusError, f.fail(key, f.classify(ctx, key, "credential", err))
	}

	start := time.Now()
	data, err := f.transport.Fetch(ctx, drepo.FetchRequest{
		Provider:     spec.Provider,
		DatabaseCode: spec.DatabaseCode,
		DatasetCode:  spec.DatasetCode,
		Window:       window,
		APIKey:       apiKey,
	})
	f.metrics.RecordLatency("fetch.transport", time.Since(start).Seconds())
	if err != nil {
		fe := f.classify(ctx, key, "transport", err)
		f.metrics.RecordFetch(source, fe.Kind.String())
		return models.StatusError, f.fail(key, fe)
	}
	f.metrics.RecordFetch(source, "ok")

	if err := f.store.Put(ctx, key, data); err != nil {
		return models.StatusError, f.fail(key, f.classify(ctx, key, "persist", err))
	}

	f.log.Info("dataset fetched",
		logger.String("key", key),
		logger.Int("bytes", len(data)),
		logger.Duration("elapsed_ms", time.Since(start)),
	)
	return models.StatusFetched, nil
}

func (f *FetchCache) recorded(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed[key]
}

func (f *FetchCache) fail(key string, err *models.FetchError) error {
	f.mu.Lock()
	f.failed[key] = err
	f.mu.Unlock()
	f.log.Warn("fetch failed", logger.String("key", key), logger.String("op", err.Op), logger.Error(err.Err))
	return err
}

// classify normalizes any collaborator error into a FetchError for key.
func (f *FetchCache) classify(ctx context.Context, key, op string, err error) *models.FetchError {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		out := *fe
		out.Key, out.Op = key, op
		if ctx.Err() != nil && !errors.Is(err, models.ErrCancelled) {
			out.Err = fmt.Errorf("%w: %v", models.ErrCancelled, fe.Err)
		}
		return &out
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &models.FetchError{Kind: models.FetchPermanent, Key: key, Op: op, Err: fmt.Errorf("%w: %v", models.ErrCancelled, err)}
	}
	kind := models.FetchPermanent
	if op == "persist" {
		kind = models.FetchTransient
	}
	return &models.FetchError{Kind: kind, Key: key, Op: op, Err: err}
}

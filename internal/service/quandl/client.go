// Package quandl retrieves dataset windows from the Quandl / Nasdaq Data Link CSV API.
package quandl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"AlphaKit/internal/domain/models"
	drepo "AlphaKit/internal/domain/repository"
	xhttp "AlphaKit/pkg/http"
	"AlphaKit/pkg/logger"
	"AlphaKit/pkg/util"
)

const (
	DefaultQuandlURL = "https://www.quandl.com"
	DefaultNasdaqURL = "https://data.nasdaq.com"
)

// Client implements repository.Transport over HTTP.
type Client struct {
	http        *xhttp.Client
	baseURLs    map[models.Provider]string
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	log         *logger.Logger
}

type Option func(*Client)

// WithBaseURL overrides the API root for one provider.
func WithBaseURL(p models.Provider, url string) Option {
	return func(c *Client) { c.baseURLs[p] = strings.TrimRight(url, "/") }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithRetry sets attempts for transient failures and the base backoff between them.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		c.maxAttempts = maxAttempts
		c.backoff = backoff
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		http: xhttp.NewClient(),
		baseURLs: map[models.Provider]string{
			models.ProviderQuandl: DefaultQuandlURL,
			models.ProviderNasdaq: DefaultNasdaqURL,
		},
		limiter:     rate.NewLimiter(rate.Inf, 1),
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the data endpoint for one dataset.
func (c *Client) URL(p models.Provider, db, ds string) string {
	return fmt.Sprintf("%s/api/v3/datasets/%s/%s/data.csv", c.baseURLs[p], db, ds)
}

// Fetch downloads the CSV payload for req, retrying transient failures.
func (c *Client) Fetch(ctx context.Context, req drepo.FetchRequest) ([]byte, error) {
	key := req.DatabaseCode + "/" + req.DatasetCode
	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.URL(req.Provider, req.DatabaseCode, req.DatasetCode),
		Headers: map[string]string{
			"Accept": "text/csv",
		},
		QueryParams: map[string][]string{
			"api_key":    {req.APIKey},
			"start_date": {req.Window.Start.Format(util.ISODate)},
			"end_date":   {req.Window.End.Format(util.ISODate)},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			// Wait also fails early when the deadline would pass before a token frees up.
			return nil, &models.FetchError{Kind: models.FetchPermanent, Key: key, Op: "transport", Err: fmt.Errorf("%w: %v", models.ErrCancelled, err)}
		}

		var body []byte
		err := c.http.SendAndParse(ctx, opts, &body)
		if err == nil {
			if len(body) == 0 {
				return nil, &models.FetchError{Kind: models.FetchPermanent, Key: key, Op: "transport", Err: errors.New("empty response body")}
			}
			return body, nil
		}

		fe := c.wrap(ctx, key, err)
		if !fe.Transient() || errors.Is(fe, models.ErrCancelled) {
			return nil, fe
		}
		lastErr = fe
		c.log.Warn("provider request failed, retrying",
			logger.String("dataset", key),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if attempt < c.maxAttempts {
			if err := sleep(ctx, c.backoff*time.Duration(1<<(attempt-1))); err != nil {
				return nil, c.wrap(ctx, key, err)
			}
		}
	}
	return nil, lastErr
}

// wrap classifies err into a FetchError.
func (c *Client) wrap(ctx context.Context, key string, err error) *models.FetchError {
	fe := &models.FetchError{Kind: models.FetchPermanent, Key: key, Op: "transport", Err: err}
	var se *xhttp.StatusError
	var ne net.Error
	switch {
	case ctx.Err() != nil:
		fe.Err = fmt.Errorf("%w: %v", models.ErrCancelled, err)
	case errors.As(err, &se):
		if se.Retryable() {
			fe.Kind = models.FetchTransient
		}
	case errors.As(err, &ne):
		fe.Kind = models.FetchTransient
	}
	return fe
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ drepo.Transport = (*Client)(nil)

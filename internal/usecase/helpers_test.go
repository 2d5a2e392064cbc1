package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"AlphaKit/internal/domain/models"
	drepo "AlphaKit/internal/domain/repository"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// stubTransport serves canned payloads keyed by "db/ds" and counts calls.
type stubTransport struct {
	mu       sync.Mutex
	payloads map[string]string
	errs     map[string]error
	delay    time.Duration
	calls    int32
	perKey   map[string]int
}

func newStubTransport() *stubTransport {
	return &stubTransport{payloads: map[string]string{}, errs: map[string]error{}, perKey: map[string]int{}}
}

func (s *stubTransport) Fetch(ctx context.Context, req drepo.FetchRequest) ([]byte, error) {
	atomic.AddInt32(&s.calls, 1)
	key := req.DatabaseCode + "/" + req.DatasetCode
	s.mu.Lock()
	s.perKey[key]++
	body, ok := s.payloads[key]
	err := s.errs[key]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &models.FetchError{Kind: models.FetchPermanent, Key: key, Op: "transport", Err: fmt.Errorf("404")}
	}
	return []byte(body), nil
}

func (s *stubTransport) Calls() int { return int(atomic.LoadInt32(&s.calls)) }

func (s *stubTransport) CallsFor(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perKey[key]
}

// csvOf renders rows "date:value" under header Date,<field>.
func csvOf(field string, rows ...string) string {
	var b strings.Builder
	b.WriteString("Date," + field + "\n")
	for _, r := range rows {
		d, v, _ := strings.Cut(r, ":")
		b.WriteString(d + "," + v + "\n")
	}
	return b.String()
}

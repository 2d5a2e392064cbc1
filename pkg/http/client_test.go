package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendAndParse(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte("Date,Settle\n2020-01-02,1\n"))
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("test-agent"))
	var body []byte
	err := c.SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL + "/data.csv",
		Headers:     map[string]string{"Accept": "text/csv"},
		QueryParams: url.Values{"start_date": {"2020-01-01"}},
	}, &body)
	require.NoError(t, err)

	assert.Equal(t, "Date,Settle\n2020-01-02,1\n", string(body))
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "2020-01-01", got.URL.Query().Get("start_date"))
	assert.Equal(t, "test-agent", got.Header.Get("User-Agent"))
	assert.Equal(t, "text/csv", got.Header.Get("Accept"))
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/busy" {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		http.Error(w, strings.Repeat("x", 2*maxErrorBody), http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient()
	err := c.SendAndParse(context.Background(), &RequestOptions{URL: srv.URL + "/busy"}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
	assert.Equal(t, "slow down", se.Body)

	err = c.SendAndParse(context.Background(), &RequestOptions{URL: srv.URL + "/gone"}, nil)
	require.ErrorAs(t, err, &se)
	assert.False(t, se.Retryable())
	assert.Len(t, se.Body, maxErrorBody)
}

func TestClientBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 32)))
	}))
	defer srv.Close()

	var body []byte
	err := NewClient(WithMaxBodySize(16)).SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, &body)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Nil(t, body)

	var sb strings.Builder
	err = NewClient(WithMaxBodySize(32)).SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, &sb)
	require.NoError(t, err)
	assert.Equal(t, 32, sb.Len())
}

package repository

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AlphaKit/pkg/logger"
)

func TestFileStorePutOpen(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "cache"), logger.Nop())
	require.NoError(t, err)

	key := "Quandl-CHRIS-CME_S1-20200101-20201231.csv"
	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, key, []byte("Date,Settle\n2020-01-02,9.4\n")))

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Date,Settle\n2020-01-02,9.4\n", string(b))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, names)
}

func TestFileStoreCancelledPutLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Put(ctx, "k.csv", []byte("x"))
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact or temp file may remain")
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	for _, key := range []string{"", "../x.csv", "a/b.csv", ".hidden"} {
		_, err := s.Exists(context.Background(), key)
		assert.Error(t, err, key)
	}
}

package localstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/yungbote/studydeck-backend/internal/pkg/errors"
)

func TestDirStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "documents/u1/a.txt", strings.NewReader("hello")))
	rc, err := s.Get(ctx, "documents/u1/a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, "documents/u1/a.txt"))
	require.NoError(t, s.Delete(ctx, "documents/u1/a.txt"))
	_, err = s.Get(ctx, "documents/u1/a.txt")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDirStoreKeysStayUnderRoot(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	p, err := s.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, s.root))
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.Put(ctx, "k", strings.NewReader("v")))
	assert.Equal(t, []string{"k"}, s.Keys())
	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

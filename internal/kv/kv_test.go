package kv

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "goal:u1", "1000"))
	v, err := s.Get(ctx, "goal:u1")
	require.NoError(t, err)
	assert.Equal(t, "1000", v)

	require.NoError(t, s.Set(ctx, "goal:u1", "2000"))
	v, _ = s.Get(ctx, "goal:u1")
	assert.Equal(t, "2000", v)

	require.NoError(t, s.Delete(ctx, "goal:u1"))
	_, err = s.Get(ctx, "goal:u1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "goal:u1"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	r, err := NewRedis(context.Background(), addr, os.Getenv("REDIS_TEST_PASSWORD"), 0, "scales-test:"+uuid.NewString()+":")
	require.NoError(t, err)
	defer r.Close()

	exerciseStore(t, r)
}

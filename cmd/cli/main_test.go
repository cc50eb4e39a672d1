package main

import (
	"context"
	"flag"
	"testing"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRange(t *testing.T) {
	now := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)

	rng, err := resolveRange("", "", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", rng.Start.String())
	assert.Equal(t, "2024-03-17", rng.End.String())

	rng, err = resolveRange("2024-01-01", "", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", rng.Start.String())
	assert.Equal(t, "2024-03-17", rng.End.String())

	_, err = resolveRange("2024-04-01", "2024-03-01", now, time.UTC)
	assert.Error(t, err)

	_, err = resolveRange("yesterday", "", now, time.UTC)
	assert.Error(t, err)
}

func TestResolveUser(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	u, err := repo.CreateUser(ctx, domain.User{Email: "ana@example.com", Username: "ana"})
	require.NoError(t, err)

	parse := func(args ...string) userFlags {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		f := addUserFlags(fs)
		require.NoError(t, fs.Parse(args))
		return f
	}

	id, err := resolveUser(ctx, repo, parse("-user-id", "u-42"))
	require.NoError(t, err)
	assert.Equal(t, "u-42", id)

	id, err = resolveUser(ctx, repo, parse("-email", " Ana@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = resolveUser(ctx, repo, parse("-email", "nobody@example.com"))
	assert.Error(t, err)

	_, err = resolveUser(ctx, repo, parse())
	assert.ErrorContains(t, err, "-user-id or -email")
}

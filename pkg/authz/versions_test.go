package authz

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVersions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryVersions()

	v, err := m.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Version{}, v, "untouched workspace reads as zero")

	require.NoError(t, m.BumpWorkspace(ctx, 1))
	require.NoError(t, m.BumpWorkspace(ctx, 1))
	require.NoError(t, m.BumpCatalog(ctx))

	v, err = m.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Version{Catalog: 1, Workspace: 2}, v)

	// Workspace counters are independent; the catalog counter is shared.
	v, err = m.Current(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, Version{Catalog: 1, Workspace: 0}, v)
}

func TestVersionEqualAndString(t *testing.T) {
	a := Version{Catalog: 3, Workspace: 9}
	assert.True(t, a.Equal(Version{Catalog: 3, Workspace: 9}))
	assert.False(t, a.Equal(Version{Catalog: 3, Workspace: 10}))
	assert.False(t, a.Equal(Version{Catalog: 4, Workspace: 9}))
	assert.Equal(t, "c3.w9", a.String())
}

func setupRedisVersions(t *testing.T) (*RedisVersions, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rv, err := NewRedisVersions(context.Background(), client, "test")
	require.NoError(t, err)
	return rv, mr
}

func TestRedisVersions(t *testing.T) {
	ctx := context.Background()
	rv, _ := setupRedisVersions(t)

	v, err := rv.Current(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, Version{}, v, "absent keys read as zero")

	require.NoError(t, rv.BumpCatalog(ctx))
	require.NoError(t, rv.BumpWorkspace(ctx, 5))
	require.NoError(t, rv.BumpWorkspace(ctx, 5))

	v, err = rv.Current(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, Version{Catalog: 1, Workspace: 2}, v)

	// Bumps made through one client are visible to another, which is the
	// whole point of keeping the counters in Redis.
	second := redis.NewClient(&redis.Options{Addr: rv.client.Options().Addr})
	t.Cleanup(func() { second.Close() })
	other, err := NewRedisVersions(ctx, second, "test")
	require.NoError(t, err)
	v, err = other.Current(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, Version{Catalog: 1, Workspace: 2}, v)
}

func TestRedisVersionsMalformedCounter(t *testing.T) {
	ctx := context.Background()
	rv, mr := setupRedisVersions(t)

	require.NoError(t, mr.Set("test:version:catalog", "not-a-number"))
	_, err := rv.Current(ctx, 1)
	assert.Error(t, err)
}

func TestNewRedisVersionsPingFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	_, err := NewRedisVersions(context.Background(), client, "")
	assert.Error(t, err)
}

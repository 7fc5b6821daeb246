package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache().(*memoryCache)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	clock = clock.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "entry expires after its ttl")

	for i := int64(1); i <= 3; i++ {
		n, err := c.Incr(ctx, "hits", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	n, err := c.Count(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	clock = clock.Add(61 * time.Second)
	n, _ = c.Incr(ctx, "hits", time.Minute)
	assert.Equal(t, int64(1), n, "counter window restarts")

	require.NoError(t, c.Delete(ctx, "hits"))
	_, ok, _ = c.Get(ctx, "hits")
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "clubs/c1/logo-1700000000.png", ClubLogoKey("c1", ".png", at))
	assert.Equal(t, "backups/x.db", BackupKey("/tmp/dir/x.db"))

	ext, ok := LogoExtension("IMAGE/PNG")
	assert.True(t, ok)
	assert.Equal(t, ".png", ext)
	_, ok = LogoExtension("application/pdf")
	assert.False(t, ok)

	assert.Equal(t, "clubs/c1/logo.png", KeyFromURL("https://cdn.example.com", "https://cdn.example.com/clubs/c1/logo.png"))
	assert.Equal(t, "", KeyFromURL("https://cdn.example.com", "https://elsewhere.com/a.png"))
}

func TestPublicURL(t *testing.T) {
	u := &cloudflareR2Uploader{publicBaseURL: "https://cdn.example.com/assets"}
	assert.Equal(t, "https://cdn.example.com/assets/clubs/c1/logo.png", u.GetPublicURL("clubs/c1/logo.png"))
	assert.Equal(t, "https://cdn.example.com/assets/a.png", u.GetPublicURL("/a.png"))
	assert.Equal(t, "", (&cloudflareR2Uploader{}).GetPublicURL("a.png"))
}

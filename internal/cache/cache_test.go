package cache

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-paint-agent/internal/config"
	"object-paint-agent/internal/core"
)

func testMask() core.Mask {
	m := core.NewMask(8, 6)
	for y := 1; y < 5; y++ {
		for x := 2; x < 6; x++ {
			m.Set(x, y, 1)
		}
	}
	return m
}

func TestEncodeDecodeMask(t *testing.T) {
	data, err := encodeMask(testMask())
	require.NoError(t, err)

	got, err := decodeMask(data)
	require.NoError(t, err)

	assert.Equal(t, testMask(), got)
}

func TestMemoryCacheSetGet(t *testing.T) {
	c, err := NewMemoryCache(1<<20, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	assert.False(t, ok)
	_ = err

	require.NoError(t, c.Set(ctx, "k", testMask()))

	assert.Eventually(t, func() bool {
		got, ok, err := c.Get(ctx, "k")
		return err == nil && ok && assert.ObjectsAreEqual(testMask(), got)
	}, time.Second, 10*time.Millisecond)
}

func TestImageDigest(t *testing.T) {
	a := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	b := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.Equal(t, ImageDigest(a), ImageDigest(b))

	b.SetNRGBA(1, 1, color.NRGBA{R: 1})
	assert.NotEqual(t, ImageDigest(a), ImageDigest(b))

	c := image.NewNRGBA(image.Rect(0, 0, 2, 8))
	assert.NotEqual(t, ImageDigest(a), ImageDigest(c), "same bytes, different shape")
}

func TestKeyAndBytesMD5(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", BytesMD5(nil))
	assert.Equal(t, "abc:rect:1.00,2.00,3.00,4.00", Key("abc", core.RectHint{Left: 1, Top: 2, Right: 3, Bottom: 4}.Signature()))
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := &config.Config{}

	cfg.Cache.Backend = "none"
	c, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	cfg.Cache.Backend = "memory"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	cfg.Cache.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	require.NoError(t, c.(*RedisCache).Close())

	cfg.Cache.Backend = "memcached"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestRedisCacheUnreachableReturnsError(t *testing.T) {
	c := NewRedisCache(config.RedisConfig{Addr: "127.0.0.1:1", TTL: time.Minute})
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, ok, err := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "k", testMask()))
}

func TestNoop(t *testing.T) {
	var c MaskCache = Noop{}
	require.NoError(t, c.Set(context.Background(), "k", testMask()))
	_, ok, err := c.Get(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, ok)
}

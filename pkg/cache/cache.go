// Package cache is a two level byte cache for upstream API responses: an
// in-process ccache in front of an optional memcached server. Values sent to
// memcached are zstd compressed.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/dominium-estate/dominium/pkg/log"
)

const (
	DefaultTTL     = 30 * time.Second
	DefaultMaxSize = 1000
	keyPrefix      = "dominium:"

	// memcached reads larger relative expirations as unix timestamps.
	maxRemoteTTL = 30 * 24 * time.Hour
)

// Config configures both levels. An empty Memcached disables the remote
// level.
type Config struct {
	TTL       time.Duration
	RemoteTTL time.Duration
	MaxSize   int64
	Memcached string
}

// Cache is safe for concurrent use.
type Cache struct {
	local     *ccache.Cache[[]byte]
	remote    *memcache.Client
	enc       *zstd.Encoder
	dec       *zstd.Decoder
	ttl       time.Duration
	remoteTTL time.Duration
	logger    *log.Logger
}

func New(cfg Config) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RemoteTTL <= 0 {
		cfg.RemoteTTL = 3 * cfg.TTL
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	c := &Cache{
		local:     ccache.New(ccache.Configure[[]byte]().MaxSize(cfg.MaxSize)),
		ttl:       cfg.TTL,
		remoteTTL: cfg.RemoteTTL,
		logger:    log.ForService("cache"),
	}
	if cfg.Memcached != "" {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		c.enc, c.dec = enc, dec
		c.remote = memcache.New(strings.Split(cfg.Memcached, ",")...)
		c.logger.Infof("memcached level enabled at %s", cfg.Memcached)
	}
	return c, nil
}

// Key derives a memcached-safe key from arbitrary parts.
func Key(parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + hex.EncodeToString(h[:])
}

// Get looks in the local level first, then memcached. Remote hits are
// promoted to the local level.
func (c *Cache) Get(key string) ([]byte, bool) {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		c.logger.Debugf("hit (local) %s", key)
		return item.Value(), true
	}
	if c.remote == nil {
		return nil, false
	}
	it, err := c.remote.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			c.logger.Warnf("memcached get %s: %v", key, err)
		}
		return nil, false
	}
	value, err := c.dec.DecodeAll(it.Value, nil)
	if err != nil {
		c.logger.Warnf("memcached value %s: %v", key, err)
		return nil, false
	}
	c.local.Set(key, value, c.ttl)
	c.logger.Debugf("hit (memcached) %s", key)
	return value, true
}

// Set stores value in both levels.
func (c *Cache) Set(key string, value []byte) {
	c.local.Set(key, value, c.ttl)
	if c.remote == nil {
		return
	}
	err := c.remote.Set(&memcache.Item{
		Key:        key,
		Value:      c.enc.EncodeAll(value, nil),
		Expiration: expiration(c.remoteTTL),
	})
	if err != nil {
		c.logger.Warnf("memcached set %s: %v", key, err)
	}
}

// expiration converts d to memcached seconds. Zero means never, so short
// durations round up to one second.
func expiration(d time.Duration) int32 {
	if d > maxRemoteTTL {
		d = maxRemoteTTL
	}
	if d < time.Second {
		return 1
	}
	return int32(d / time.Second)
}

// Delete drops key from both levels.
func (c *Cache) Delete(key string) {
	c.local.Delete(key)
	if c.remote == nil {
		return
	}
	if err := c.remote.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		c.logger.Warnf("memcached delete %s: %v", key, err)
	}
}

// Purge empties the local level. Remote entries expire on their own.
func (c *Cache) Purge() {
	c.local.Clear()
}

// Len is the number of local entries.
func (c *Cache) Len() int {
	return c.local.ItemCount()
}

func (c *Cache) Stop() {
	c.local.Stop()
	if c.dec != nil {
		c.dec.Close()
	}
}

// Package cache provides a Redis-backed completion cache wrapping an oracle
// Protocol. Identical detection and analysis prompts over unchanged equipment
// data produce identical completions, so caching cuts oracle spend and
// latency during tight proactive cycles.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jordanhubbard/inframon/internal/oracle"
)

// Config holds Redis cache settings.
type Config struct {
	URL       string
	KeyPrefix string
	TTL       time.Duration
}

// CachingOracle wraps an oracle.Protocol with a Redis read-through cache.
type CachingOracle struct {
	inner  oracle.Protocol
	client *redis.Client
	prefix string
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// New connects to Redis and wraps the given oracle. Connection failure is an
// error: a misconfigured cache should be fixed or disabled, not silently
// bypassed.
func New(cfg Config, inner oracle.Protocol) (*CachingOracle, error) {
	if cfg.URL == "" {
		cfg.URL = "redis://localhost:6379/0"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "inframon"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 1 * time.Hour
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	log.Printf("[Cache] Connected to Redis at %s (ttl %s)", opts.Addr, cfg.TTL)
	return &CachingOracle{
		inner:  inner,
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
	}, nil
}

// GenerateKey derives a stable cache key from the model and messages. The
// request is serialized to JSON so semantically identical requests hash the
// same way.
func GenerateKey(prefix string, req *oracle.ChatCompletionRequest) (string, error) {
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	hasher := sha256.New()
	hasher.Write([]byte(req.Model))
	hasher.Write([]byte(":"))
	hasher.Write(reqBytes)
	return fmt.Sprintf("%s:oracle:%s", prefix, hex.EncodeToString(hasher.Sum(nil))), nil
}

// CreateChatCompletion serves from cache when possible, falling through to
// the wrapped oracle on a miss. Cache read and write failures degrade to a
// plain oracle call.
func (c *CachingOracle) CreateChatCompletion(ctx context.Context, req *oracle.ChatCompletionRequest) (*oracle.ChatCompletionResponse, error) {
	key, err := GenerateKey(c.prefix, req)
	if err != nil {
		return c.inner.CreateChatCompletion(ctx, req)
	}

	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var resp oracle.ChatCompletionResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			c.hits.Add(1)
			return &resp, nil
		}
		log.Printf("[Cache] Discarding corrupt entry %s", key)
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		log.Printf("[Cache] Redis read failed, bypassing cache: %v", err)
	}

	c.misses.Add(1)
	resp, err := c.inner.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(resp); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			log.Printf("[Cache] Redis write failed: %v", err)
		}
	}
	return resp, nil
}

// Stats reports hit and miss counts since startup.
func (c *CachingOracle) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close closes the Redis connection.
func (c *CachingOracle) Close() error {
	return c.client.Close()
}

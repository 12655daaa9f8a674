package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campaign-ai-api/internal/domain/service"
	"campaign-ai-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

const backendRedis = "redis"

// ResponseCache 基于 Redis 的模型响应缓存，过期交给 Redis 的 PX
type ResponseCache struct {
	client *Client
	prefix string
}

// NewResponseCache 创建响应缓存
func NewResponseCache(client *Client, prefix string) *ResponseCache {
	if prefix == "" {
		prefix = "respcache"
	}
	return &ResponseCache{client: client, prefix: prefix}
}

func (c *ResponseCache) key(fingerprint string) string {
	return Key(c.prefix, fingerprint)
}

// Get 读取缓存
func (c *ResponseCache) Get(ctx context.Context, fingerprint string) (*service.CompletionResponse, bool, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Get",
		trace.WithAttributes(attribute.String("cache.key", c.key(fingerprint))))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, c.key(fingerprint)).Bytes()
	if err != nil {
		if IsNil(err) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			metrics.ResponseCacheTotal.WithLabelValues(backendRedis, "miss").Inc()
			return nil, false, nil
		}
		span.RecordError(err)
		metrics.ResponseCacheTotal.WithLabelValues(backendRedis, "error").Inc()
		return nil, false, err
	}

	var resp service.CompletionResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		// 损坏条目按未命中处理
		span.RecordError(err)
		metrics.ResponseCacheTotal.WithLabelValues(backendRedis, "miss").Inc()
		return nil, false, nil
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	metrics.ResponseCacheTotal.WithLabelValues(backendRedis, "hit").Inc()
	return &resp, true, nil
}

// Put 写入缓存；ttl <= 0 时不写入
func (c *ResponseCache) Put(ctx context.Context, fingerprint string, resp *service.CompletionResponse, ttl time.Duration) error {
	if resp == nil || ttl <= 0 {
		return nil
	}
	ctx, span := cacheTracer.Start(ctx, "cache.Set",
		trace.WithAttributes(
			attribute.String("cache.key", c.key(fingerprint)),
			attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
		))
	defer span.End()

	bytes, err := json.Marshal(resp)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := c.client.rdb.Set(ctx, c.key(fingerprint), bytes, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

package responsecache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"campaign-ai-api/internal/domain/service"
	"campaign-ai-api/pkg/logger"
	"campaign-ai-api/pkg/metrics"
)

const backendMemory = "memory"

type memoryEntry struct {
	resp      service.CompletionResponse
	expiresAt time.Time
}

// Memory 进程内 LRU 缓存，条目带独立过期时间，读取时惰性淘汰
type Memory struct {
	mu  sync.Mutex
	lru *lru.Cache[string, memoryEntry]
	now func() time.Time
}

// NewMemory 创建内存缓存，maxEntries 为容量上限
func NewMemory(maxEntries int) (*Memory, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	c, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Memory{lru: c, now: time.Now}, nil
}

// WithClock 替换时钟（测试用）
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Get 读取缓存，过期条目视为未命中并移除
func (m *Memory) Get(_ context.Context, fingerprint string) (*service.CompletionResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.lru.Get(fingerprint)
	if !ok {
		metrics.ResponseCacheTotal.WithLabelValues(backendMemory, "miss").Inc()
		return nil, false, nil
	}
	if !m.now().Before(ent.expiresAt) {
		m.lru.Remove(fingerprint)
		metrics.ResponseCacheTotal.WithLabelValues(backendMemory, "miss").Inc()
		return nil, false, nil
	}
	metrics.ResponseCacheTotal.WithLabelValues(backendMemory, "hit").Inc()
	resp := ent.resp
	return &resp, true, nil
}

// Put 写入副本；ttl<=0 时不缓存
func (m *Memory) Put(_ context.Context, fingerprint string, resp *service.CompletionResponse, ttl time.Duration) error {
	if resp == nil || ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lru.Add(fingerprint, memoryEntry{resp: *resp, expiresAt: m.now().Add(ttl)})
	return nil
}

// Len 当前条目数（含尚未淘汰的过期条目）
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Sweep 主动清理全部过期条目，返回清理数量
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, key := range m.lru.Keys() {
		ent, ok := m.lru.Peek(key)
		if ok && !now.Before(ent.expiresAt) {
			m.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// StartSweeper 后台定期清理，ctx 取消后退出
func (m *Memory) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					logger.Debug(ctx, "response cache swept expired entries", "removed", n)
				}
			}
		}
	}()
}

// Package store 提供目录与用户数据的持久化实现：
// 内存（测试/开发）与 Redis（生产）两种 KV 后端，
// 以及建立在 KV 之上的行存储目录 Catalog。
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/freadom/readrec/core"
)

// MemoryStore 是内存实现的 KeyValueStore，用于测试/开发/单机演示。
// 支持 TTL（读取时惰性过期 + 定期清理），进程重启后数据丢失。
type MemoryStore struct {
	mu      sync.RWMutex
	kv      map[string]memEntry
	hashes  map[string]map[string][]byte  // hash key -> field -> value
	zsets   map[string]map[string]float64 // zset key -> member -> score
	janitor *time.Ticker
	done    chan struct{}
}

type memEntry struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// NewMemoryStore 创建内存存储并启动过期清理协程。
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		kv:      make(map[string]memEntry),
		hashes:  make(map[string]map[string][]byte),
		zsets:   make(map[string]map[string]float64),
		janitor: time.NewTicker(30 * time.Second),
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.kv[key]
	if !ok || e.expired(time.Now()) {
		return nil, core.ErrStoreNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memEntry{value: value}
	if len(ttl) > 0 && ttl[0] > 0 {
		e.expireAt = time.Now().Add(time.Duration(ttl[0]) * time.Second)
	}
	m.kv[key] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.kv, key)
	delete(m.hashes, key)
	delete(m.zsets, key)
	return nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if e, ok := m.kv[k]; ok && !e.expired(now) {
			result[k] = e.value
		}
	}
	return result, nil
}

func (m *MemoryStore) HGet(_ context.Context, key, field string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.hashes[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	value, ok := fields[field]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return value, nil
}

func (m *MemoryStore) HSet(_ context.Context, key, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string][]byte)
	}
	m.hashes[key][field] = value
	return nil
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields := m.hashes[key]
	result := make(map[string][]byte, len(fields))
	for f, v := range fields {
		result[f] = v
	}
	return result, nil
}

func (m *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

func (m *MemoryStore) ZTop(_ context.Context, key string, n int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zset := m.zsets[key]
	if len(zset) == 0 || n <= 0 {
		return nil, nil
	}

	type ranked struct {
		member string
		score  float64
	}
	pairs := make([]ranked, 0, len(zset))
	for member, score := range zset {
		pairs = append(pairs, ranked{member: member, score: score})
	}
	// 分数降序；同分按 member 升序保证输出确定
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].member < pairs[j].member
	})

	if n > int64(len(pairs)) {
		n = int64(len(pairs))
	}
	result := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		result = append(result, pairs[i].member)
	}
	return result, nil
}

func (m *MemoryStore) Close() error {
	m.janitor.Stop()
	close(m.done)
	return nil
}

// sweep 定期清理过期 key，防止只写不读的 key 常驻内存。
func (m *MemoryStore) sweep() {
	for {
		select {
		case <-m.done:
			return
		case now := <-m.janitor.C:
			m.mu.Lock()
			for k, e := range m.kv {
				if e.expired(now) {
					delete(m.kv, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

var (
	_ core.Store         = (*MemoryStore)(nil)
	_ core.KeyValueStore = (*MemoryStore)(nil)
)

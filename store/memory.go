// Package store 提供 core.Store 的基础设施实现：内存版与 Redis 版。
// 工件（拟合产物）通过它持久化与还原。
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/recstudio/core"
)

// MemoryStore 是内存实现的 Store，带可选 TTL。
// 适合测试与单机场景；生产环境建议使用 RedisStore。
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*entry
}

type entry struct {
	value   []byte
	expires *time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*entry)}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	if e.expires != nil && time.Now().After(*e.expires) {
		return nil, core.ErrStoreNotFound
	}
	return e.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{value: value}
	if len(ttl) > 0 && ttl[0] > 0 {
		exp := time.Now().Add(time.Duration(ttl[0]) * time.Second)
		e.expires = &exp
	}
	m.data[key] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	now := time.Now()
	for _, key := range keys {
		e, ok := m.data[key]
		if !ok {
			continue
		}
		if e.expires != nil && now.After(*e.expires) {
			continue
		}
		result[key] = e.value
	}
	return result, nil
}

func (m *MemoryStore) BatchSet(_ context.Context, kvs map[string][]byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires *time.Time
	if len(ttl) > 0 && ttl[0] > 0 {
		exp := time.Now().Add(time.Duration(ttl[0]) * time.Second)
		expires = &exp
	}
	for k, v := range kvs {
		m.data[k] = &entry{value: v, expires: expires}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]*entry)
	return nil
}

// 确保 MemoryStore 实现了 core.Store 接口
var _ core.Store = (*MemoryStore)(nil)

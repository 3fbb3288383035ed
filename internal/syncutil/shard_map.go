package syncutil

import (
	"fmt"
	"hash/fnv"
	"sync"
)

// ShardMap is a thread-safe map that uses sharding to reduce lock contention.
type ShardMap[K comparable, V any] struct {
	shards     []*shard[K, V]
	shardCount uint32
}

// shard is a single thread-safe map with its own mutex.
type shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]V
}

type ShardsNum uint

// defShardsNum is the default number of shards to use.
const defShardsNum ShardsNum = 32

// NewShardMap creates a new [ShardMap].
// If no number of shards is specified, the default number of shards (32) is used.
// The number of shards can be specified using the [ShardsNum] option and must be greater than 0.
func NewShardMap[K comparable, V any](opts ...any) *ShardMap[K, V] {
	var shardsNum ShardsNum
	for _, o := range opts {
		if v, ok := o.(ShardsNum); ok {
			shardsNum = v
		}
	}

	if shardsNum == 0 {
		shardsNum = defShardsNum
	}

	shards := make([]*shard[K, V], shardsNum)
	for i := range shards {
		shards[i] = &shard[K, V]{
			items: make(map[K]V),
		}
	}

	return &ShardMap[K, V]{
		shards:     shards,
		shardCount: uint32(shardsNum),
	}
}

func (m *ShardMap[K, V]) getShard(key K) *shard[K, V] {
	hash := fnv.New32a()
	switch k := any(key).(type) {
	case string:
		hash.Write([]byte(k))
	default:
		fmt.Fprint(hash, key)
	}
	return m.shards[hash.Sum32()%m.shardCount]
}

// Set adds or updates a key-value pair.
func (m *ShardMap[K, V]) Set(key K, value V) {
	shard := m.getShard(key)
	shard.Lock()
	shard.items[key] = value
	shard.Unlock()
}

// Get retrieves a value by key.
func (m *ShardMap[K, V]) Get(key K) (V, bool) {
	shard := m.getShard(key)
	shard.RLock()
	defer shard.RUnlock()
	val, ok := shard.items[key]
	return val, ok
}

// Delete removes a key-value pair by key.
func (m *ShardMap[K, V]) Del(key K) (V, bool) {
	shard := m.getShard(key)
	shard.Lock()
	val, ok := shard.items[key]
	if ok {
		delete(shard.items, key)
	}
	shard.Unlock()
	return val, ok
}

// Compute atomically replaces the value stored under key with the result of fn.
// The fn receives the current value and whether it was present, and runs under the shard lock,
// so it must not call back into the map.
func (m *ShardMap[K, V]) Compute(key K, fn func(val V, ok bool) V) V {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()

	val, ok := shard.items[key]
	val = fn(val, ok)
	shard.items[key] = val
	return val
}

// DeleteIf removes the key only when pred reports true for the current value.
// The pred runs under the shard lock, concurrent Compute calls on the same key are excluded.
func (m *ShardMap[K, V]) DeleteIf(key K, pred func(val V) bool) bool {
	shard := m.getShard(key)
	shard.Lock()
	defer shard.Unlock()

	val, ok := shard.items[key]
	if !ok || !pred(val) {
		return false
	}
	delete(shard.items, key)
	return true
}

// Has checks if a key exists.
func (m *ShardMap[K, V]) Has(key K) bool {
	shard := m.getShard(key)
	shard.RLock()
	_, ok := shard.items[key]
	shard.RUnlock()
	return ok
}

// Size returns the total number of items in the map.
func (m *ShardMap[K, V]) Size() int {
	size := 0
	for _, shard := range m.shards {
		shard.RLock()
		size += len(shard.items)
		shard.RUnlock()
	}
	return size
}

// Clear removes all items from the map and returns the removed values.
func (m *ShardMap[K, V]) Clear() []V {
	var out []V
	for _, shard := range m.shards {
		shard.Lock()
		for _, v := range shard.items {
			out = append(out, v)
		}
		clear(shard.items)
		shard.Unlock()
	}
	return out
}

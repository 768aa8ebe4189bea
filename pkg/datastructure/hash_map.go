package datastructure

import (
	"hash/maphash"
	"iter"
	"math/bits"

	"github.com/lintang-b-s/transitscheduler/pkg/util"
)

const (
	DEFAULT_HASHMAP_CAPACITY    = 16
	DEFAULT_HASHMAP_LOAD_FACTOR = 0.75
)

type HashEntry[K comparable, V any] struct {
	Key   K
	Value V
}

func NewHashEntry[K comparable, V any](key K, value V) HashEntry[K, V] {
	return HashEntry[K, V]{Key: key, Value: value}
}

type hashNode[K comparable, V any] struct {
	entry HashEntry[K, V]
	next  *hashNode[K, V]
}

// HashMap is a separate-chaining hash table with put-if-absent semantics.
// The bucket count is a power of two and doubles once size exceeds loadFactor * buckets.
// The zero value is an empty map with the default capacity and load factor.
type HashMap[K comparable, V any] struct {
	buckets    []*hashNode[K, V]
	size       int
	loadFactor float64
	seed       maphash.Seed
}

func NewHashMap[K comparable, V any]() *HashMap[K, V] {
	hm, _ := NewHashMapWithCapacity[K, V](DEFAULT_HASHMAP_CAPACITY, DEFAULT_HASHMAP_LOAD_FACTOR)
	return hm
}

func NewHashMapWithCapacity[K comparable, V any](capacity int, loadFactor float64) (*HashMap[K, V], error) {
	if capacity < 1 {
		return nil, util.NewErrorf(util.ErrInvalidArgument, "hashmap capacity must be positive, got %d", capacity)
	}
	if loadFactor <= 0 || loadFactor > 1 {
		return nil, util.NewErrorf(util.ErrInvalidArgument, "hashmap load factor must be in (0, 1], got %v", loadFactor)
	}
	return &HashMap[K, V]{
		buckets:    make([]*hashNode[K, V], nextPowerOfTwo(capacity)),
		loadFactor: loadFactor,
		seed:       maphash.MakeSeed(),
	}, nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// lazyInit allocates the default buckets for a zero-value map.
func (hm *HashMap[K, V]) lazyInit() {
	if len(hm.buckets) != 0 {
		return
	}
	hm.buckets = make([]*hashNode[K, V], DEFAULT_HASHMAP_CAPACITY)
	if hm.loadFactor <= 0 || hm.loadFactor > 1 {
		hm.loadFactor = DEFAULT_HASHMAP_LOAD_FACTOR
	}
	hm.seed = maphash.MakeSeed()
}

func (hm *HashMap[K, V]) bucketOf(key K) int {
	return int(maphash.Comparable(hm.seed, key) & uint64(len(hm.buckets)-1))
}

func (hm *HashMap[K, V]) find(key K) *hashNode[K, V] {
	if len(hm.buckets) == 0 {
		return nil
	}
	for n := hm.buckets[hm.bucketOf(key)]; n != nil; n = n.next {
		if n.entry.Key == key {
			return n
		}
	}
	return nil
}

// Put inserts (key, value) only if key is absent. The first value written for a key wins.
func (hm *HashMap[K, V]) Put(key K, value V) bool {
	hm.lazyInit()
	if hm.find(key) != nil {
		return false
	}
	b := hm.bucketOf(key)
	hm.buckets[b] = &hashNode[K, V]{entry: NewHashEntry(key, value), next: hm.buckets[b]}
	hm.size++

	if float64(hm.size) > hm.loadFactor*float64(len(hm.buckets)) {
		hm.rehash(len(hm.buckets) * 2)
	}
	return true
}

func (hm *HashMap[K, V]) rehash(numBuckets int) {
	old := hm.buckets
	hm.buckets = make([]*hashNode[K, V], numBuckets)
	for _, head := range old {
		for n := head; n != nil; {
			next := n.next
			b := hm.bucketOf(n.entry.Key)
			n.next = hm.buckets[b]
			hm.buckets[b] = n
			n = next
		}
	}
}

func (hm *HashMap[K, V]) Get(key K) (V, bool) {
	if n := hm.find(key); n != nil {
		return n.entry.Value, true
	}
	var zero V
	return zero, false
}

func (hm *HashMap[K, V]) Contains(key K) bool {
	return hm.find(key) != nil
}

func (hm *HashMap[K, V]) Len() int {
	return hm.size
}

func (hm *HashMap[K, V]) NumberOfBuckets() int {
	return len(hm.buckets)
}

// All iterates every entry once, in bucket order.
func (hm *HashMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, head := range hm.buckets {
			for n := head; n != nil; n = n.next {
				if !yield(n.entry.Key, n.entry.Value) {
					return
				}
			}
		}
	}
}

func (hm *HashMap[K, V]) Snapshot() []HashEntry[K, V] {
	entries := make([]HashEntry[K, V], 0, hm.size)
	for k, v := range hm.All() {
		entries = append(entries, NewHashEntry(k, v))
	}
	return entries
}

// Restore replaces the content of hm with entries. A key that appears twice makes the snapshot invalid
// and leaves hm unchanged.
func (hm *HashMap[K, V]) Restore(entries []HashEntry[K, V]) error {
	hm.lazyInit()
	numBuckets := len(hm.buckets)
	for float64(len(entries)) > hm.loadFactor*float64(numBuckets) {
		numBuckets *= 2
	}
	restored := &HashMap[K, V]{
		buckets:    make([]*hashNode[K, V], numBuckets),
		loadFactor: hm.loadFactor,
		seed:       hm.seed,
	}
	for _, e := range entries {
		if !restored.Put(e.Key, e.Value) {
			return util.NewErrorf(util.ErrInvalidArgument, "duplicate key %v in snapshot", e.Key)
		}
	}
	*hm = *restored
	return nil
}

func (hm *HashMap[K, V]) Clear() {
	clear(hm.buckets)
	hm.size = 0
}

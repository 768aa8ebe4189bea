package datastructure

import (
	"iter"
	"slices"
	"sort"

	"github.com/lintang-b-s/transitscheduler/pkg/util"
	"golang.org/x/exp/constraints"
)

const (
	MIN_BPLUS_TREE_FANOUT     = 3
	DEFAULT_BPLUS_TREE_FANOUT = 4
)

type bptNode[K constraints.Integer] struct {
	leaf     bool
	keys     []K
	children []*bptNode[K] // internal only, len(children) == len(keys)+1
	next     *bptNode[K]   // leaf only, right sibling
}

func newLeaf[K constraints.Integer](fanout int) *bptNode[K] {
	return &bptNode[K]{leaf: true, keys: make([]K, 0, fanout)}
}

func newInternal[K constraints.Integer](fanout int) *bptNode[K] {
	return &bptNode[K]{keys: make([]K, 0, fanout), children: make([]*bptNode[K], 0, fanout+1)}
}

// childIndex returns the number of separators <= key, which is the child that may contain key.
func (n *bptNode[K]) childIndex(key K) int {
	return sort.Search(len(n.keys), func(i int) bool { return n.keys[i] > key })
}

// BPlusTree is a keys-only B+ tree. Internal nodes have at most fanout children, leaves at most
// fanout-1 keys, all leaves sit at the same depth and are linked left to right.
type BPlusTree[K constraints.Integer] struct {
	root   *bptNode[K]
	fanout int
	size   int
	height int
}

func NewBPlusTree[K constraints.Integer](fanout int) (*BPlusTree[K], error) {
	if fanout < MIN_BPLUS_TREE_FANOUT {
		return nil, util.NewErrorf(util.ErrInvalidArgument, "b+ tree fanout must be at least %d, got %d",
			MIN_BPLUS_TREE_FANOUT, fanout)
	}
	return &BPlusTree[K]{root: newLeaf[K](fanout), fanout: fanout, height: 1}, nil
}

func (t *BPlusTree[K]) Len() int {
	return t.size
}

func (t *BPlusTree[K]) Height() int {
	return t.height
}

func (t *BPlusTree[K]) GetFanout() int {
	return t.fanout
}

func (t *BPlusTree[K]) findLeaf(key K) *bptNode[K] {
	n := t.root
	for !n.leaf {
		n = n.children[n.childIndex(key)]
	}
	return n
}

func (t *BPlusTree[K]) leftmostLeaf() *bptNode[K] {
	n := t.root
	for !n.leaf {
		n = n.children[0]
	}
	return n
}

func (t *BPlusTree[K]) Contains(key K) bool {
	leaf := t.findLeaf(key)
	_, found := slices.BinarySearch(leaf.keys, key)
	return found
}

// Insert adds key to the tree. Inserting a key that is already present is a no-op and returns false.
func (t *BPlusTree[K]) Insert(key K) bool {
	sep, right, inserted := t.insert(t.root, key)
	if !inserted {
		return false
	}
	t.size++

	if right != nil {
		root := newInternal[K](t.fanout)
		root.keys = append(root.keys, sep)
		root.children = append(root.children, t.root, right)
		t.root = root
		t.height++
	}
	return true
}

// insert puts key into the subtree rooted at n. When n overflows it is split and the new right
// sibling is returned together with the separator the parent has to store for it.
func (t *BPlusTree[K]) insert(n *bptNode[K], key K) (sep K, right *bptNode[K], inserted bool) {
	if n.leaf {
		pos, found := slices.BinarySearch(n.keys, key)
		if found {
			return sep, nil, false
		}
		n.keys = slices.Insert(n.keys, pos, key)
		if len(n.keys) < t.fanout {
			return sep, nil, true
		}
		sep, right = t.splitLeaf(n)
		return sep, right, true
	}

	i := n.childIndex(key)
	childSep, childRight, inserted := t.insert(n.children[i], key)
	if !inserted || childRight == nil {
		return sep, nil, inserted
	}

	n.keys = slices.Insert(n.keys, i, childSep)
	n.children = slices.Insert(n.children, i+1, childRight)
	if len(n.children) <= t.fanout {
		return sep, nil, true
	}
	sep, right = t.splitInternal(n)
	return sep, right, true
}

// splitLeaf moves the upper half of leaf into a new right sibling and copies its first key up.
func (t *BPlusTree[K]) splitLeaf(leaf *bptNode[K]) (K, *bptNode[K]) {
	mid := len(leaf.keys) / 2
	right := newLeaf[K](t.fanout)
	right.keys = append(right.keys, leaf.keys[mid:]...)
	leaf.keys = leaf.keys[:mid:mid]

	right.next = leaf.next
	leaf.next = right
	return right.keys[0], right
}

// splitInternal moves the separators right of the middle one into a new sibling and pushes the
// middle separator up.
func (t *BPlusTree[K]) splitInternal(n *bptNode[K]) (K, *bptNode[K]) {
	mid := len(n.keys) / 2
	sep := n.keys[mid]

	right := newInternal[K](t.fanout)
	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)

	n.keys = n.keys[:mid:mid]
	n.children = n.children[: mid+1 : mid+1]

	util.AssertPanic(len(n.children) >= (t.fanout+1)/2 && len(right.children) >= (t.fanout+1)/2,
		"b+ tree internal split produced an underfull node")
	return sep, right
}

// Min returns the smallest key, ok is false for an empty tree.
func (t *BPlusTree[K]) Min() (K, bool) {
	leaf := t.leftmostLeaf()
	if len(leaf.keys) == 0 {
		var zero K
		return zero, false
	}
	return leaf.keys[0], true
}

func (t *BPlusTree[K]) Max() (K, bool) {
	n := t.root
	for !n.leaf {
		n = n.children[len(n.children)-1]
	}
	if len(n.keys) == 0 {
		var zero K
		return zero, false
	}
	return n.keys[len(n.keys)-1], true
}

// All yields every key in ascending order by walking the leaf chain.
func (t *BPlusTree[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		for leaf := t.leftmostLeaf(); leaf != nil; leaf = leaf.next {
			for _, k := range leaf.keys {
				if !yield(k) {
					return
				}
			}
		}
	}
}

// Range yields the keys in [lo, hi] in ascending order.
func (t *BPlusTree[K]) Range(lo, hi K) iter.Seq[K] {
	return func(yield func(K) bool) {
		if lo > hi {
			return
		}
		leaf := t.findLeaf(lo)
		pos, _ := slices.BinarySearch(leaf.keys, lo)
		for ; leaf != nil; leaf, pos = leaf.next, 0 {
			for _, k := range leaf.keys[pos:] {
				if k > hi {
					return
				}
				if !yield(k) {
					return
				}
			}
		}
	}
}

// Dump returns all keys in ascending order.
func (t *BPlusTree[K]) Dump() []K {
	keys := make([]K, 0, t.size)
	for k := range t.All() {
		keys = append(keys, k)
	}
	return keys
}

// Restore rebuilds the tree from a strictly ascending key sequence, as produced by Dump.
// On invalid input the tree is left unchanged.
func (t *BPlusTree[K]) Restore(keys []K) error {
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			return util.NewErrorf(util.ErrInvalidArgument,
				"b+ tree dump is not strictly ascending at position %d (%d >= %d)", i, keys[i-1], keys[i])
		}
	}

	restored := &BPlusTree[K]{root: newLeaf[K](t.fanout), fanout: t.fanout, height: 1}
	for _, k := range keys {
		restored.Insert(k)
	}
	*t = *restored
	return nil
}

package cache

// entryNode is a single cache entry, linked into the insertion order of its owning cache.
type entryNode[K comparable, V any] struct {
	newer *entryNode[K, V]
	older *entryNode[K, V]
	key   K
	value V
}

// Newer returns the entry inserted right after this one, or nil for the newest entry.
func (n *entryNode[K, V]) Newer() *entryNode[K, V] {
	return n.newer
}

// Older returns the entry inserted right before this one, or nil for the oldest entry.
func (n *entryNode[K, V]) Older() *entryNode[K, V] {
	return n.older
}

// insertionList keeps cache entries in the order they were first inserted.
// The oldest entry sits at the front and is the first one to be evicted.
type insertionList[K comparable, V any] struct {
	oldest *entryNode[K, V]
	newest *entryNode[K, V]
	size   int
}

// Len returns the number of entries in the list.
func (l *insertionList[K, V]) Len() int {
	return l.size
}

// Oldest returns the first inserted entry or nil if the list is empty.
func (l *insertionList[K, V]) Oldest() *entryNode[K, V] {
	return l.oldest
}

// Newest returns the last inserted entry or nil if the list is empty.
func (l *insertionList[K, V]) Newest() *entryNode[K, V] {
	return l.newest
}

// Append links a new entry as the newest one and returns its node.
func (l *insertionList[K, V]) Append(key K, value V) *entryNode[K, V] {
	n := &entryNode[K, V]{key: key, value: value, older: l.newest}
	if l.newest != nil {
		l.newest.newer = n
	} else { // List was empty.
		l.oldest = n
	}
	l.newest = n
	l.size++
	return n
}

// Unlink removes the given entry from the list. Neighbours of the entry stay linked to each other so an
// iteration that already holds a pointer to them is not disturbed.
func (l *insertionList[K, V]) Unlink(n *entryNode[K, V]) {
	if n.older != nil {
		n.older.newer = n.newer
	} else { // Entry is the oldest.
		l.oldest = n.newer
	}
	if n.newer != nil {
		n.newer.older = n.older
	} else { // Entry is the newest.
		l.newest = n.older
	}
	n.newer = nil
	n.older = nil
	l.size--
}

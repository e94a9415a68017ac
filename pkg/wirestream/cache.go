package wirestream

// RefCache is an opaque key/value store keyed by small integers, used by
// the mapping layer to reconstruct reference cycles while decoding. The
// reader core never reads or writes it; it is constructed lazily on first
// access through Reader.RefCache and torn down with the reader.
type RefCache struct {
	items map[int]any
}

func newRefCache() *RefCache {
	return &RefCache{}
}

// SetRef records value under key, replacing any previous entry.
func (c *RefCache) SetRef(key int, value any) {
	if c.items == nil {
		c.items = make(map[int]any)
	}
	c.items[key] = value
}

// GetRef returns the value recorded under key, if any.
func (c *RefCache) GetRef(key int) (any, bool) {
	v, ok := c.items[key]
	return v, ok
}

// Len returns the number of cached references.
func (c *RefCache) Len() int {
	return len(c.items)
}

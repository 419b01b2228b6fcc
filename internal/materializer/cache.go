package materializer

import "sync"

// ShapeCache holds table shapes by table id. Each key carries a generation
// that Invalidate advances; a load that started before an invalidation is
// discarded instead of stored.
type ShapeCache struct {
	mu     sync.RWMutex
	shapes map[uint64]*TableShape
	gens   map[uint64]uint64
}

// NewShapeCache returns an empty cache.
func NewShapeCache() *ShapeCache {
	return &ShapeCache{
		shapes: make(map[uint64]*TableShape),
		gens:   make(map[uint64]uint64),
	}
}

// Get returns the cached shape of a table.
func (c *ShapeCache) Get(tableID uint64) (*TableShape, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.shapes[tableID]
	return s, ok
}

// Load returns the cached shape or builds and stores it.
func (c *ShapeCache) Load(tableID uint64, build func() (*TableShape, error)) (*TableShape, error) {
	c.mu.RLock()
	s, ok := c.shapes[tableID]
	gen := c.gens[tableID]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[tableID] == gen {
		c.shapes[tableID] = s
	}
	c.mu.Unlock()
	return s, nil
}

// Invalidate forgets the shape of one table.
func (c *ShapeCache) Invalidate(tableID uint64) {
	c.mu.Lock()
	delete(c.shapes, tableID)
	c.gens[tableID]++
	c.mu.Unlock()
}

// Len returns the number of cached shapes.
func (c *ShapeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shapes)
}

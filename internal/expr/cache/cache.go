// Package cache keeps recently compiled expressions so hosts that see the
// same notation repeatedly compile it once.
package cache

import (
	"container/list"
	"sync"

	"github.com/louisbranch/dicenotation/internal/core/limit"
	"github.com/louisbranch/dicenotation/internal/expr/ast"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// Key identifies a compiled expression. The same text compiles differently
// under different limits, so both are part of the key.
type Key struct {
	Text   string
	Config limit.Config
}

type entry struct {
	key  Key
	expr *ast.CompiledExpression
}

// Cache is an LRU of compiled expressions, safe for concurrent use.
// Compiled expressions are read-only, so one entry may be evaluated by
// many goroutines at once.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[Key]*list.Element
}

// New returns a cache holding at most capacity expressions.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[Key]*list.Element, capacity),
	}
}

// Get returns the cached expression for key and marks it most recently used.
func (c *Cache) Get(key Key) (*ast.CompiledExpression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).expr, true
}

// Set stores expr under key, evicting the least recently used entry when full.
func (c *Cache) Set(key Key, expr *ast.CompiledExpression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).expr = expr
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, expr: expr})
}

// GetOrCompile returns the cached expression or calls compile and caches
// its result. Errors are not cached.
func (c *Cache) GetOrCompile(key Key, compile func(text string, cfg limit.Config) (*ast.CompiledExpression, error)) (*ast.CompiledExpression, error) {
	if expr, ok := c.Get(key); ok {
		return expr, nil
	}
	expr, err := compile(key.Text, key.Config)
	if err != nil {
		return nil, err
	}
	c.Set(key, expr)
	return expr, nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

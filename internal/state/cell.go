// Package state provides a current-value cell that components share
// explicitly instead of reaching for package-level singletons.
package state

import "sync"

// Cell holds one value and broadcasts every replacement to subscribers.
// Slow subscribers only ever see the latest value.
type Cell[T any] struct {
	mu     sync.RWMutex
	value  T
	subs   map[int]chan T
	nextID int
}

// NewCell creates a cell holding initial
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, subs: make(map[int]chan T)}
}

func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value and notifies subscribers without blocking
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publish(v)
}

func (c *Cell[T]) publish(v T) {
	c.value = v
	for _, ch := range c.subs {
		select {
		case ch <- v:
		default:
			// drop the stale pending value; Set is the only sender
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// Subscribe returns a channel that first receives the current value and
// then every later one. The returned func unsubscribes and closes it.
func (c *Cell[T]) Subscribe() (<-chan T, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan T, 1)
	ch <- c.value
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

// Package bufpool provides a pool of byte buffers tiered by power-of-two capacity.
package bufpool

import (
	"math/bits"
	"sync"

	"go.uber.org/atomic"
)

// maxTierBuffers bounds how many idle buffers each tier keeps.
const maxTierBuffers = 8

// Pool recycles payload buffers. A buffer of length n is served from the tier of the smallest
// power of two >= n. The zero value is ready to use.
type Pool struct {
	mu    sync.Mutex
	tiers map[int][][]byte

	hits   atomic.Int64
	misses atomic.Int64
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// tierFor returns the capacity of the tier serving buffers of length n.
func tierFor(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Get returns a buffer of length n. Its contents are undefined.
func (p *Pool) Get(n int) []byte {
	capacity := tierFor(n)

	p.mu.Lock()
	free := p.tiers[capacity]
	if len(free) > 0 {
		buf := free[len(free)-1]
		p.tiers[capacity] = free[:len(free)-1]
		p.mu.Unlock()
		p.hits.Inc()
		return buf[:n]
	}
	p.mu.Unlock()

	p.misses.Inc()
	return make([]byte, n, capacity)
}

// Put returns a buffer obtained from Get. Buffers whose capacity is not a power of two were not
// allocated by the pool and are dropped.
func (p *Pool) Put(buf []byte) {
	capacity := cap(buf)
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tiers == nil {
		p.tiers = make(map[int][][]byte)
	}
	if len(p.tiers[capacity]) >= maxTierBuffers {
		return
	}
	p.tiers[capacity] = append(p.tiers[capacity], buf[:0])
}

// Stats describes the state of a pool.
type Stats struct {
	// Idle maps tier capacity to the number of buffers waiting in that tier.
	Idle   map[int]int
	Hits   int64
	Misses int64
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	idle := make(map[int]int, len(p.tiers))
	for capacity, free := range p.tiers {
		if len(free) > 0 {
			idle[capacity] = len(free)
		}
	}
	return Stats{Idle: idle, Hits: p.hits.Load(), Misses: p.misses.Load()}
}

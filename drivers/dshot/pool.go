package dshot

import "math/bits"

// MaxChannels is the largest channel pool a Runtime manages.
const MaxChannels = 8

// Pool tracks which channel indices are taken.
type Pool struct {
	capacity uint8
	used     uint8 // bitmask
}

// NewPool returns a pool of n channels, capped at MaxChannels.
func NewPool(n int) Pool {
	if n < 0 {
		n = 0
	}
	if n > MaxChannels {
		n = MaxChannels
	}
	return Pool{capacity: uint8(n)}
}

func (p Pool) Capacity() int { return int(p.capacity) }
func (p Pool) Used() int     { return bits.OnesCount8(p.used) }
func (p Pool) Free() int     { return p.Capacity() - p.Used() }

// InUse reports whether idx is reserved.
func (p Pool) InUse(idx uint8) bool { return idx < MaxChannels && p.used&(1<<idx) != 0 }

// Reserve takes n (1 or 2) free indices, lowest first. Either all n are
// reserved or none.
func (p *Pool) Reserve(n int) (idx [2]uint8, ok bool) {
	if n < 1 || n > len(idx) || p.Free() < n {
		return idx, false
	}
	got := 0
	for i := uint8(0); i < p.capacity && got < n; i++ {
		if p.used&(1<<i) == 0 {
			idx[got] = i
			got++
		}
	}
	for _, i := range idx[:n] {
		p.used |= 1 << i
	}
	return idx, true
}

// Release returns idx to the pool.
func (p *Pool) Release(idx uint8) {
	if idx < MaxChannels {
		p.used &^= 1 << idx
	}
}

// Package bitset provides a growable bit set with the backward search used
// to locate free pool slots.
package bitset

import "math/bits"

const wordBits = 64

// Set is a growable bit set. Bits at or beyond Len are treated as set when
// searching for cleared bits, so a partially used trailing word never yields
// an out-of-range index.
//
// The zero value is an empty set ready to use. Not thread-safe.
type Set struct {
	words []uint64
	n     int
}

// New returns a set holding n cleared bits.
func New(n int) *Set {
	s := &Set{}
	s.Resize(n)
	return s
}

// Len returns the number of addressable bits.
func (s *Set) Len() int {
	return s.n
}

// Resize grows or shrinks the set to n bits. New bits are cleared; bits
// dropped by a shrink are discarded.
func (s *Set) Resize(n int) {
	if n < 0 {
		panic("bitset: negative length")
	}
	need := (n + wordBits - 1) / wordBits
	switch {
	case need > cap(s.words):
		grown := make([]uint64, need, max(need, 2*cap(s.words)))
		copy(grown, s.words)
		s.words = grown
	case need > len(s.words):
		old := len(s.words)
		s.words = s.words[:need]
		clear(s.words[old:])
	default:
		s.words = s.words[:need]
	}
	s.n = n
	// Keep bits past n cleared so that a later grow exposes them as free.
	if tail := n % wordBits; tail != 0 {
		s.words[need-1] &= (uint64(1) << tail) - 1
	}
}

// Set marks bit i.
func (s *Set) Set(i int) {
	s.check(i)
	s.words[i/wordBits] |= 1 << (uint(i) % wordBits)
}

// Clear unmarks bit i.
func (s *Set) Clear(i int) {
	s.check(i)
	s.words[i/wordBits] &^= 1 << (uint(i) % wordBits)
}

// Test reports whether bit i is set.
func (s *Set) Test(i int) bool {
	s.check(i)
	return s.words[i/wordBits]&(1<<(uint(i)%wordBits)) != 0
}

// Count returns the number of set bits.
func (s *Set) Count() int {
	c := 0
	for _, w := range s.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// Reset clears every bit without changing Len.
func (s *Set) Reset() {
	clear(s.words)
}

// PrevClear returns the highest index j < i whose bit is cleared. It scans
// the word holding i first, then whole words backward, skipping words that
// are fully set. ok is false when no such bit exists.
//
// i may equal Len, which searches the whole set.
func (s *Set) PrevClear(i int) (j int, ok bool) {
	if i > s.n {
		i = s.n
	}
	if i <= 0 {
		return 0, false
	}
	w := (i - 1) / wordBits
	// Bits [0, (i-1)%64] of the first word are candidates.
	keep := uint((i-1)%wordBits) + 1
	free := ^s.words[w]
	if keep < wordBits {
		free &= (uint64(1) << keep) - 1
	}
	for {
		if free != 0 {
			return w*wordBits + wordBits - 1 - bits.LeadingZeros64(free), true
		}
		w--
		if w < 0 {
			return 0, false
		}
		free = ^s.words[w]
	}
}

// NextClear returns the lowest index j >= i whose bit is cleared and below Len.
func (s *Set) NextClear(i int) (j int, ok bool) {
	if i < 0 {
		i = 0
	}
	if i >= s.n {
		return 0, false
	}
	w := i / wordBits
	free := ^s.words[w] & (^uint64(0) << (uint(i) % wordBits))
	for {
		if free != 0 {
			j = w*wordBits + bits.TrailingZeros64(free)
			if j >= s.n {
				return 0, false
			}
			return j, true
		}
		w++
		if w == len(s.words) {
			return 0, false
		}
		free = ^s.words[w]
	}
}

func (s *Set) check(i int) {
	if i < 0 || i >= s.n {
		panic("bitset: index out of range")
	}
}

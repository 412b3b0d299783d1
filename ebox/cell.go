package ebox

import (
	"math"
	"strconv"
)

// BorrowState is a snapshot of a box's borrow cell: 0 when free, n > 0 with
// n live shared guards, -1 with one live exclusive guard.
type BorrowState int32

const (
	stateExclusive BorrowState = -1
	maxShared      BorrowState = math.MaxInt32
)

// Free reports whether no guard is live.
func (s BorrowState) Free() bool { return s == 0 }

// Shared returns the number of live shared guards.
func (s BorrowState) Shared() int {
	if s > 0 {
		return int(s)
	}
	return 0
}

// Exclusive reports whether an exclusive guard is live.
func (s BorrowState) Exclusive() bool { return s == stateExclusive }

func (s BorrowState) String() string {
	switch {
	case s == 0:
		return "free"
	case s == stateExclusive:
		return "exclusive"
	default:
		return strconv.Itoa(int(s)) + " shared"
	}
}

// cell tracks the guards derived from one box. It lives in the Box, never
// in the foreign block, whose layout belongs to the foreign allocator.
// Not synchronized.
type cell struct {
	state BorrowState
}

func (c *cell) tryShared() bool {
	if c.state == stateExclusive || c.state == maxShared {
		return false
	}
	c.state++
	return true
}

func (c *cell) tryExclusive() bool {
	if c.state != 0 {
		return false
	}
	c.state = stateExclusive
	return true
}

func (c *cell) releaseShared() {
	if c.state > 0 {
		c.state--
	}
}

func (c *cell) releaseExclusive() {
	if c.state == stateExclusive {
		c.state = 0
	}
}

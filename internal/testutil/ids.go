package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SequentialIDs hands out predictable identities for tests:
// 00000000-0000-0000-0000-000000000001, ...-000000000002, and so on.
//
// Unlike model.FixedGenerator it never runs out, and it can be reset so the
// same scenario produces the same identities on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu  sync.Mutex
	seq uint64
}

// NewSequentialIDs creates a generator whose first identity ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewID returns the next identity.
func (g *SequentialIDs) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return ID(g.seq)
}

// Count returns how many identities have been handed out.
func (g *SequentialIDs) Count() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. The next NewID ends in 1 again.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// ID returns the n-th sequential identity.
func ID(n uint64) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012x", n))
}

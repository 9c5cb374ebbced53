package store

import (
	crand "crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type idGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var ids = idGen{entropy: ulid.Monotonic(crand.Reader, 0)}

func (g *idGen) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// NewID mints a ULID primary key. IDs from a single process are
// strictly increasing, so ordering rows by ID matches insertion order.
func NewID() string { return ids.next() }

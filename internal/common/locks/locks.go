// internal/common/locks/locks.go
// Striped keyed mutexes for per-chat and per-pair serialization.

package locks

import (
	"hash/fnv"
	"strconv"
	"sync"
)

const defaultStripes = 256

// Striped is a fixed pool of mutexes addressed by key. Two keys may
// share a stripe; that costs contention, never correctness.
type Striped struct {
	stripes []sync.Mutex
}

func NewStriped(n int) *Striped {
	if n <= 0 {
		n = defaultStripes
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

func (s *Striped) Lock(key uint64) {
	s.stripes[key%uint64(len(s.stripes))].Lock()
}

func (s *Striped) Unlock(key uint64) {
	s.stripes[key%uint64(len(s.stripes))].Unlock()
}

// Key hashes an ordered sequence of IDs into a stripe key
func Key(parts ...int64) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(strconv.FormatInt(p, 10)))
		h.Write([]byte{':'})
	}
	return h.Sum64()
}

// PairKey hashes an unordered pair so both orderings map to one stripe
func PairKey(a, b int64) uint64 {
	if a > b {
		a, b = b, a
	}
	return Key(a, b)
}

package dna

import (
	"hash/fnv"
	"sync"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

// Provider seed range: non-negative 31-bit integers.
const seedMask = 0x7fffffff

// DeriveSeed maps a normalized DesignDNA to a deterministic provider seed.
// Two semantically identical records derive the same seed; any semantic
// difference moves the seed with overwhelming probability (FNV-1a over the
// canonical serialization, folded into [0, 2^31-1]).
func DeriveSeed(d domain.DesignDNA) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(Canonical(d)))
	return int64(h.Sum32() & seedMask)
}

// SeedCache memoizes derived seeds keyed explicitly by the canonical
// serialization. There is no module-level cache; callers own the instance
// and its lifetime.
type SeedCache struct {
	mu    sync.Mutex
	seeds map[string]int64
}

func NewSeedCache() *SeedCache {
	return &SeedCache{seeds: make(map[string]int64)}
}

func (c *SeedCache) Derive(d domain.DesignDNA) int64 {
	key := Canonical(d)
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.seeds[key]; ok {
		return s
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	s := int64(h.Sum32() & seedMask)
	c.seeds[key] = s
	return s
}

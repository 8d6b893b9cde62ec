package escalation

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
)

// Selector orders candidate agents by preference. The coordinator walks
// the returned order and takes the first agent whose slot claim
// succeeds, so a selector never needs to worry about capacity races.
type Selector interface {
	Order(candidates []Agent) []Agent
}

// RandomSelector shuffles the candidates uniformly. It is the default.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector creates a selector seeded from seed; pass a fixed
// seed in tests for reproducible orderings.
func NewRandomSelector(seed int64) *RandomSelector {
	return &RandomSelector{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSelector) Order(candidates []Agent) []Agent {
	out := append([]Agent(nil), candidates...)
	s.mu.Lock()
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()
	return out
}

// RoundRobinSelector rotates the starting agent on every escalation.
type RoundRobinSelector struct {
	next atomic.Uint64
}

func (s *RoundRobinSelector) Order(candidates []Agent) []Agent {
	n := len(candidates)
	if n == 0 {
		return nil
	}
	start := int(s.next.Add(1)-1) % n
	out := make([]Agent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candidates[(start+i)%n])
	}
	return out
}

// LeastLoadedSelector prefers agents with the fewest current calls,
// breaking ties by definition order.
type LeastLoadedSelector struct{}

func (LeastLoadedSelector) Order(candidates []Agent) []Agent {
	out := append([]Agent(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CurrentCalls < out[j].CurrentCalls
	})
	return out
}

package limiter

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// Identity names a single rate-limited resource: a tenant, an API key, a
// route — whatever axis callers want independent permit pools along.
type Identity struct {
	Namespace string
	Key       string
}

func (id Identity) String() string {
	return id.Namespace + ":" + id.Key
}

// Factory builds a new Limiter for a Identity the Registry doesn't currently
// hold. Once a Limiter is stored for an Identity, Registry reuses it; a
// Factory error is returned to the caller and nothing is stored, so the next
// Get for that Identity calls the Factory again, as does a Get after Remove.
type Factory func(id Identity) (*Limiter, error)

// Registry holds many independently-rated, independently-paced Limiters,
// one per Identity, created lazily from a Factory.
//
// A single mutex across every tenant would serialize Limiters that have
// nothing to do with each other, so Registry shards its locking across a
// fixed number of stripes. Which stripe an Identity lands on is decided by
// rendezvous (highest random weight) hashing over xxhash of its string
// form, the same consistent-hashing approach go-redis itself uses to route
// keys across a Redis Cluster/Ring — it keeps a given Identity's stripe
// assignment stable as the stripe count changes, at the cost of reshuffling
// only ~1/N of identities on resize. This shards *local* lock contention
// only; each stripe's Limiters still run the single-process accounting
// core of limiter.go. It does not make permit state distributed or shared
// across processes — see RateConfigWatcher for that axis.
type Registry struct {
	factory Factory
	rdv     *rendezvous.Rendezvous
	stripes []*stripe
}

type stripe struct {
	mu       sync.Mutex
	limiters map[Identity]*Limiter
}

func xxhashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// NewRegistry creates a Registry with numStripes lock stripes. numStripes
// should scale with expected goroutine concurrency, not with the expected
// number of distinct identities (the map inside each stripe grows
// unbounded).
func NewRegistry(numStripes int, factory Factory) *Registry {
	if numStripes < 1 {
		numStripes = 1
	}
	nodes := make([]string, numStripes)
	stripes := make([]*stripe, numStripes)
	for i := range stripes {
		nodes[i] = strconv.Itoa(i)
		stripes[i] = &stripe{limiters: make(map[Identity]*Limiter)}
	}
	return &Registry{
		factory: factory,
		rdv:     rendezvous.New(nodes, xxhashString),
		stripes: stripes,
	}
}

func (r *Registry) stripeFor(id Identity) *stripe {
	node := r.rdv.Lookup(id.String())
	idx, err := strconv.Atoi(node)
	if err != nil {
		// Lookup only ever returns one of the node names passed to New,
		// which are always decimal stripe indices.
		panic(fmt.Sprintf("registry: invalid stripe node %q: %v", node, err))
	}
	return r.stripes[idx]
}

// Get returns the Limiter for id, creating it via Factory on first use.
func (r *Registry) Get(id Identity) (*Limiter, error) {
	s := r.stripeFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[id]; ok {
		return l, nil
	}
	l, err := r.factory(id)
	if err != nil {
		return nil, err
	}
	s.limiters[id] = l
	return l, nil
}

// SetRate updates the rate of the Limiter for id, creating it first via
// Factory if it doesn't yet exist.
func (r *Registry) SetRate(id Identity, ratePerSecond float64) error {
	l, err := r.Get(id)
	if err != nil {
		return err
	}
	return l.SetRate(ratePerSecond)
}

// Remove evicts the Limiter for id, if any, from the registry.
func (r *Registry) Remove(id Identity) {
	s := r.stripeFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limiters, id)
}

// Len returns the number of distinct identities currently tracked.
func (r *Registry) Len() int {
	total := 0
	for _, s := range r.stripes {
		s.mu.Lock()
		total += len(s.limiters)
		s.mu.Unlock()
	}
	return total
}

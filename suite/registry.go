package suite

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/pilacorp/go-lds-secp256k1/ldproof"
)

// Suite is a linked-data signature suite together with the fragment of the
// identity document method it signs for.
type Suite interface {
	ldproof.Suite
	MethodFragment() string
}

// Registry maps kinds to suite implementations.
type Registry struct {
	mu     sync.RWMutex
	suites map[Kind]Suite
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{suites: make(map[Kind]Suite)}
}

// DefaultRegistry returns a Registry holding the three secp256k1 suites.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Ecdsa2019, EcdsaSuite{})
	r.Register(Recovery2020, RecoverySuite{})
	r.Register(Schnorr2019, SchnorrSuite{})
	return r
}

// Register adds or replaces the suite for kind.
func (r *Registry) Register(kind Kind, s Suite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suites[kind] = s
}

// Get returns the suite registered for kind.
func (r *Registry) Get(kind Kind) (Suite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.suites[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s, nil
}

// Kinds returns the registered kinds in ascending order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	kinds := make([]Kind, 0, len(r.suites))
	for k := range r.suites {
		kinds = append(kinds, k)
	}
	r.mu.RUnlock()
	slices.Sort(kinds)
	return kinds
}

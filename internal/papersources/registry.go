package papersources

import (
	"io"
	"slices"
	"sync"

	"github.com/helixir/bibliometrics-service/internal/domain"
)

// Registry maps source types to their adapters.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.SourceType]Adapter
}

// NewRegistry creates a registry holding adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.SourceType]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter, replacing any adapter for the same source.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Source()] = adapter
}

// Get returns the adapter for source or a *domain.NotFoundError.
func (r *Registry) Get(source domain.SourceType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[source]
	if !ok {
		return nil, domain.NewNotFoundError("source adapter", string(source))
	}
	return a, nil
}

// Sources returns the registered source types in sorted order.
func (r *Registry) Sources() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SourceType, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Reader returns a record reader over in suited to source's export format:
// the adapter's own reader when it provides one, otherwise JSON lines.
func (r *Registry) Reader(source domain.SourceType, in io.Reader) RecordReader {
	r.mu.RLock()
	a := r.adapters[source]
	r.mu.RUnlock()

	if p, ok := a.(ReaderProvider); ok {
		return p.NewReader(in)
	}
	return NewJSONLReader(in)
}

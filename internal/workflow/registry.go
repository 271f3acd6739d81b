package workflow

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/mel-roster/internal/model"
)

// Registry holds independent workflows by id.
type Registry struct {
	deps Deps

	mu sync.RWMutex
	m  map[string]*Workflow
}

// NewRegistry returns an empty registry whose workflows share deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, m: make(map[string]*Workflow)}
}

// Create starts a new workflow for kind.
func (r *Registry) Create(kind model.Kind) (*Workflow, error) {
	k, err := model.ParseKind(string(kind))
	if err != nil {
		return nil, err
	}
	w := New(uuid.NewString(), k, r.deps)
	r.mu.Lock()
	r.m[w.ID()] = w
	r.mu.Unlock()
	return w, nil
}

// Get returns the workflow with id.
func (r *Registry) Get(id string) (*Workflow, error) {
	r.mu.RLock()
	w, ok := r.m[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return w, nil
}

// Delete resets and forgets the workflow with id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	w, ok := r.m[id]
	delete(r.m, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w.Reset()
	return nil
}

// Len returns the number of live workflows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}

package engine

import (
	"sync"

	"github.com/zkvmlabs/wasm-tracer/errors"
)

// EngineID identifies an engine checked into a Registry.
type EngineID uint64

// Registry hands out exclusive engine handles to embedders. Its lock
// guards only the map: looking up a handle never blocks on a running
// engine, and a host callback re-entering the registry cannot deadlock
// against the engine that called it.
type Registry struct {
	mu      sync.RWMutex
	engines map[EngineID]*Engine
	nextID  EngineID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[EngineID]*Engine)}
}

// Register stores the engine and returns its handle.
func (r *Registry) Register(e *Engine) EngineID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.engines[id] = e
	return id
}

// Get resolves a handle.
func (r *Registry) Get(id EngineID) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[id]
	if !ok {
		return nil, errors.New(errors.PhaseRun, errors.KindInternal).
			Detail("no engine with id %d", id).Build()
	}
	return e, nil
}

// Remove drops a handle. The engine itself is unaffected.
func (r *Registry) Remove(id EngineID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, id)
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

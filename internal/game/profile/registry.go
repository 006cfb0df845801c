package profile

import (
	"context"
	"errors"
	"io/fs"
	"sync"
)

// Store is the durable side of the registry. One read per request at entry,
// at most one write at exit.
type Store interface {
	Read(id string) (*State, error)
	Write(st *State) error
}

// Registry serializes access per profile id. Requests for the same id queue
// on that id's lock; different ids run fully in parallel.
type Registry struct {
	store Store

	// Create, when set, bootstraps a fresh profile the first time an unknown
	// id is requested. Left nil, unknown ids fail with the store's error.
	Create func(id string) (*State, error)

	mu     sync.Mutex
	locks  map[string]chan struct{}
	cached map[string]*State
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store:  store,
		locks:  map[string]chan struct{}{},
		cached: map[string]*State{},
	}
}

func (r *Registry) lockFor(id string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		r.locks[id] = l
	}
	return l
}

// WithProfile runs fn against the profile as one unit of work: lock, load,
// mutate, persist. fn returning an error discards the in-memory copy, so the
// next request reloads from the last durable snapshot; the write is skipped
// and the error propagates.
func (r *Registry) WithProfile(ctx context.Context, id string, fn func(st *State) error) error {
	l := r.lockFor(id)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l }()

	r.mu.Lock()
	st := r.cached[id]
	r.mu.Unlock()

	if st == nil {
		loaded, err := r.store.Read(id)
		switch {
		case err == nil:
			st = loaded
		case errors.Is(err, fs.ErrNotExist) && r.Create != nil:
			st, err = r.Create(id)
			if err != nil {
				return err
			}
		default:
			return err
		}
	}

	if err := fn(st); err != nil {
		r.mu.Lock()
		delete(r.cached, id)
		r.mu.Unlock()
		return err
	}

	if err := r.store.Write(st); err != nil {
		r.mu.Lock()
		delete(r.cached, id)
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.cached[id] = st
	r.mu.Unlock()
	return nil
}

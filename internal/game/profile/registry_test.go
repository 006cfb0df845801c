package profile

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"

	"jetgo.dev/internal/game/item"
)

type memStore struct {
	mu     sync.Mutex
	states map[string][]byte
	reads  int
	writes int
}

func newMemStore() *memStore {
	return &memStore{states: map[string][]byte{}}
}

func (m *memStore) Read(id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if _, ok := m.states[id]; !ok {
		return &State{ID: id}, nil
	}
	// The stored blob only carries the item count for these tests.
	n := int(m.states[id][0])
	st := &State{ID: id}
	for i := 0; i < n; i++ {
		st.Inventory.Items = append(st.Inventory.Items, item.Item{ID: "x", Tpl: "t"})
	}
	return st, nil
}

func (m *memStore) Write(st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.states[st.ID] = []byte{byte(len(st.Inventory.Items))}
	return nil
}

func TestWithProfilePersistsOnSuccess(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store)
	ctx := context.Background()

	err := reg.WithProfile(ctx, "p1", func(st *State) error {
		st.Inventory.Items = append(st.Inventory.Items, item.Item{ID: "a", Tpl: "t"})
		return nil
	})
	if err != nil {
		t.Fatalf("WithProfile: %v", err)
	}
	if store.writes != 1 {
		t.Fatalf("writes = %d, want 1", store.writes)
	}

	err = reg.WithProfile(ctx, "p1", func(st *State) error {
		if len(st.Inventory.Items) != 1 {
			t.Fatalf("mutation lost: %d items", len(st.Inventory.Items))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithProfile: %v", err)
	}
}

func TestWithProfileDiscardsOnError(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store)
	ctx := context.Background()

	if err := reg.WithProfile(ctx, "p1", func(st *State) error {
		st.Inventory.Items = append(st.Inventory.Items, item.Item{ID: "a", Tpl: "t"})
		return nil
	}); err != nil {
		t.Fatalf("WithProfile: %v", err)
	}
	readsBefore := store.reads

	boom := errors.New("boom")
	err := reg.WithProfile(ctx, "p1", func(st *State) error {
		// Corrupt the in-memory copy, then fail: the corruption must not
		// survive into the next request.
		st.Inventory.Items = nil
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if store.writes != 1 {
		t.Fatalf("failed request persisted: writes = %d", store.writes)
	}

	if err := reg.WithProfile(ctx, "p1", func(st *State) error {
		if len(st.Inventory.Items) != 1 {
			t.Fatalf("discarded state leaked: %d items", len(st.Inventory.Items))
		}
		return nil
	}); err != nil {
		t.Fatalf("WithProfile: %v", err)
	}
	if store.reads <= readsBefore {
		t.Fatalf("state not reloaded from store after failure")
	}
}

type strictStore struct{ *memStore }

func (s strictStore) Read(id string) (*State, error) {
	s.mu.Lock()
	_, ok := s.states[id]
	s.mu.Unlock()
	if !ok {
		return nil, fs.ErrNotExist
	}
	return s.memStore.Read(id)
}

func TestWithProfileBootstrapsUnknownID(t *testing.T) {
	store := strictStore{newMemStore()}
	reg := NewRegistry(store)
	ctx := context.Background()

	if err := reg.WithProfile(ctx, "fresh", func(st *State) error { return nil }); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("got %v, want ErrNotExist without Create", err)
	}

	created := 0
	reg.Create = func(id string) (*State, error) {
		created++
		return &State{ID: id, Inventory: InventoryState{Items: []item.Item{{ID: "stash", Tpl: "t"}}}}, nil
	}
	if err := reg.WithProfile(ctx, "fresh", func(st *State) error {
		if len(st.Inventory.Items) != 1 {
			t.Fatalf("bootstrap state missing: %d items", len(st.Inventory.Items))
		}
		return nil
	}); err != nil {
		t.Fatalf("WithProfile: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	// Second request hits the persisted copy, not Create.
	if err := reg.WithProfile(ctx, "fresh", func(st *State) error { return nil }); err != nil {
		t.Fatalf("WithProfile: %v", err)
	}
	if created != 1 {
		t.Fatalf("Create ran again: %d", created)
	}
}

func TestWithProfileSerializesSameID(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.WithProfile(ctx, "p1", func(st *State) error {
				st.Inventory.Items = append(st.Inventory.Items, item.Item{ID: "x", Tpl: "t"})
				return nil
			})
		}()
	}
	wg.Wait()

	if err := reg.WithProfile(ctx, "p1", func(st *State) error {
		if len(st.Inventory.Items) != workers {
			t.Fatalf("lost updates: %d items, want %d", len(st.Inventory.Items), workers)
		}
		return nil
	}); err != nil {
		t.Fatalf("WithProfile: %v", err)
	}
}

func TestWithProfileHonorsContext(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = reg.WithProfile(context.Background(), "p1", func(st *State) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := reg.WithProfile(ctx, "p1", func(st *State) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	close(release)
}

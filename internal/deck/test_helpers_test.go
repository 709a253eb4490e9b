package deck

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/input/inputtest"
	"github.com/nerrad567/streamdeckx/internal/keys"
	"github.com/nerrad567/streamdeckx/internal/render"
	"github.com/nerrad567/streamdeckx/internal/style"
)

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	styles  map[int64]style.Style
	actions map[int64]action.Action
	nextID  int64
	err     error
}

func newMemStore() *memStore {
	return &memStore{styles: map[int64]style.Style{}, actions: map[int64]action.Action{}}
}

func (s *memStore) UpdateButtonStyle(_ context.Context, id int64, st style.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.styles[id] = st
	return nil
}

func (s *memStore) CreateAction(_ context.Context, _ int64, a action.Action) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.nextID++
	s.actions[s.nextID] = a
	return s.nextID, nil
}

func (s *memStore) UpdateAction(_ context.Context, a action.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.actions[a.ID()] = a
	return nil
}

func (s *memStore) DeleteAction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.actions, id)
	return nil
}

// fakeHandle records hardware calls.
type fakeHandle struct {
	mu       sync.Mutex
	open     bool
	opens    int
	closes   int
	resets   int
	images   map[int]image.Image
	size     int
	openErr  error
	imageErr error
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{images: map[int]image.Image{}, size: 72}
}

func (h *fakeHandle) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return h.openErr
	}
	h.open = true
	h.opens++
	return nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open = false
	h.closes++
	return nil
}

func (h *fakeHandle) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets++
	return nil
}

func (h *fakeHandle) SetKeyImage(index int, img image.Image) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.imageErr != nil {
		return h.imageErr
	}
	if !h.open {
		return errors.New("handle not open")
	}
	h.images[index] = img
	return nil
}

func (h *fakeHandle) KeyImageSize() int { return h.size }

func (h *fakeHandle) imageCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.images)
}

// testEnv bundles the collaborators a deck needs.
type testEnv struct {
	store    *memStore
	injector *inputtest.Recorder
	renderer *render.Renderer
	factory  *action.Factory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r, err := render.New(render.Config{CacheSize: 4})
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	rec := &inputtest.Recorder{}
	return &testEnv{
		store:    newMemStore(),
		injector: rec,
		renderer: r,
		factory: &action.Factory{
			Keys:     keys.New(),
			Injector: rec,
			Sleep:    func(context.Context, time.Duration) error { return nil },
		},
	}
}

func (e *testEnv) config(serial string, kind Kind) Config {
	return Config{
		Serial:   serial,
		Kind:     kind,
		Store:    e.store,
		Renderer: e.renderer,
		Actions:  e.factory,
	}
}

// newTestDeck builds a deck whose buttons have ids 1..n, as if persisted.
func (e *testEnv) newTestDeck(t *testing.T, serial string, kind Kind) *Deck {
	t.Helper()

	d, err := New(e.config(serial, kind))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for i, b := range d.buttons {
		b.id = int64(i + 1)
	}
	return d
}

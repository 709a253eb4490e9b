package discovery

import (
	"context"
	"errors"
	"image"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/keys"
	"github.com/nerrad567/streamdeckx/internal/render"
	"github.com/nerrad567/streamdeckx/internal/style"
)

// fakeDevice is an in-memory Device.
type fakeDevice struct {
	mu          sync.Mutex
	session     string
	serial      string
	deckType    string
	cols, rows  int
	serialErr   error
	serialCalls int
	open        bool
	openFails   int // Open fails this many times before succeeding
	images      int
	callback    KeyCallback
}

var errOpen = errors.New("device busy")

func (f *fakeDevice) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openFails > 0 {
		f.openFails--
		return errOpen
	}
	f.open = true
	return nil
}

func (f *fakeDevice) Close() error { f.mu.Lock(); f.open = false; f.mu.Unlock(); return nil }
func (f *fakeDevice) Reset() error { return nil }
func (f *fakeDevice) KeyImageSize() int {
	return 72
}

func (f *fakeDevice) SetKeyImage(int, image.Image) error {
	f.mu.Lock()
	f.images++
	f.mu.Unlock()
	return nil
}

func (f *fakeDevice) SessionID() string { return f.session }
func (f *fakeDevice) DeckType() string  { return f.deckType }

func (f *fakeDevice) SerialNumber() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serialCalls++
	return f.serial, f.serialErr
}

func (f *fakeDevice) SetKeyCallback(fn KeyCallback) {
	f.mu.Lock()
	f.callback = fn
	f.mu.Unlock()
}

func (f *fakeDevice) Grid() (int, int) { return f.cols, f.rows }

func (f *fakeDevice) press(position int) {
	f.mu.Lock()
	cb := f.callback
	f.mu.Unlock()
	if cb != nil {
		cb(position, true)
		cb(position, false)
	}
}

// fakeTransport returns a settable device list.
type fakeTransport struct {
	mu      sync.Mutex
	devices []Device
	err     error
}

func (t *fakeTransport) set(devices ...Device) {
	t.mu.Lock()
	t.devices = devices
	t.mu.Unlock()
}

func (t *fakeTransport) Enumerate(context.Context) ([]Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Device(nil), t.devices...), t.err
}

// memRepo is an in-memory Repository counting its calls.
type memRepo struct {
	mu      sync.Mutex
	stored  map[string]deck.Kind
	loads   int
	creates int
	err     error
}

func newMemRepo() *memRepo { return &memRepo{stored: map[string]deck.Kind{}} }

func (m *memRepo) Load(_ context.Context, serial string, cfg deck.Config) (*deck.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	kind, ok := m.stored[serial]
	if !ok {
		return nil, &deck.NotFoundError{Entity: "deck", Key: serial}
	}
	cfg.Serial, cfg.Kind = serial, kind
	return deck.New(cfg)
}

func (m *memRepo) Create(_ context.Context, d *deck.Deck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.stored[d.Serial()] = d.Kind()
	return nil
}

// nopStore satisfies deck.Store.
type nopStore struct{}

func (nopStore) UpdateButtonStyle(context.Context, int64, style.Style) error { return nil }
func (nopStore) CreateAction(context.Context, int64, action.Action) (int64, error) {
	return 1, nil
}
func (nopStore) UpdateAction(context.Context, action.Action) error { return nil }
func (nopStore) DeleteAction(context.Context, int64) error         { return nil }

func newTestReconciler(t *testing.T, tr Transport, repo Repository) (*Reconciler, *deck.Registry) {
	t.Helper()

	renderer, err := render.New(render.Config{})
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	reg := deck.NewRegistry()
	r, err := NewReconciler(Config{
		Transport:  tr,
		Registry:   reg,
		Repository: repo,
		Deck: deck.Config{
			Store:    nopStore{},
			Renderer: renderer,
			Actions:  &action.Factory{Keys: keys.New()},
		},
	})
	if err != nil {
		t.Fatalf("NewReconciler() error = %v", err)
	}
	return r, reg
}

func serials(decks []*deck.Deck) []string {
	out := make([]string, len(decks))
	for i, d := range decks {
		out[i] = d.Serial()
	}
	sort.Strings(out)
	return out
}

func TestReconcileCreatesAndRegisters(t *testing.T) {
	ctx := context.Background()
	xl := &fakeDevice{session: "s1", serial: "xl1", deckType: "Stream Deck XL"}
	orig := &fakeDevice{session: "s2", serial: "orig1", deckType: "Stream Deck Original"}
	tr := &fakeTransport{}
	tr.set(xl, orig)
	repo := newMemRepo()
	r, reg := newTestReconciler(t, tr, repo)

	res, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Attached) != 2 || res.Skipped != 0 {
		t.Fatalf("result = %+v", res)
	}
	for _, att := range res.Attached {
		if !att.Bound || !att.Created {
			t.Errorf("attachment %s bound=%v created=%v", att.Deck.Serial(), att.Bound, att.Created)
		}
		if att.Deck.State() != deck.StateClosed {
			t.Errorf("deck %s state = %v, want closed", att.Deck.Serial(), att.Deck.State())
		}
	}
	if got := serials(reg.List()); len(got) != 2 || got[0] != "orig1" || got[1] != "xl1" {
		t.Errorf("registry = %v", got)
	}
	d, _ := reg.Get("xl1")
	if d.Kind() != deck.KindXL || len(d.Buttons()) != 32 {
		t.Errorf("xl1 kind %s with %d buttons", d.Kind(), len(d.Buttons()))
	}
	if repo.creates != 2 {
		t.Errorf("creates = %d, want 2", repo.creates)
	}
}

func TestReconcileIsStable(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{session: "s1", serial: "abc123", deckType: "Stream Deck Mini"}
	tr := &fakeTransport{}
	tr.set(dev)
	repo := newMemRepo()
	r, reg := newTestReconciler(t, tr, repo)

	if _, err := r.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	first, _ := reg.Get("abc123")

	res, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Attached) != 1 || res.Attached[0].Bound || res.Attached[0].Created {
		t.Errorf("second pass = %+v", res.Attached)
	}
	if res.Attached[0].Deck != first {
		t.Error("second pass returned a different Deck instance")
	}
	if dev.serialCalls != 1 {
		t.Errorf("serial queried %d times, want 1", dev.serialCalls)
	}
	if repo.loads != 1 || repo.creates != 1 {
		t.Errorf("loads = %d creates = %d, want 1 and 1", repo.loads, repo.creates)
	}
}

func TestReconcileLoadsStoredDeck(t *testing.T) {
	repo := newMemRepo()
	repo.stored["abc123"] = deck.KindOriginal
	tr := &fakeTransport{}
	tr.set(&fakeDevice{session: "s1", serial: "abc123", deckType: "Stream Deck Original"})
	r, _ := newTestReconciler(t, tr, repo)

	res, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Attached) != 1 || res.Attached[0].Created {
		t.Errorf("result = %+v, want a loaded deck", res)
	}
	if repo.creates != 0 {
		t.Errorf("creates = %d, want 0", repo.creates)
	}
}

func TestReconcileSkips(t *testing.T) {
	tests := []struct {
		name string
		dev  *fakeDevice
	}{
		{"unknown type", &fakeDevice{session: "s9", serial: "u1", deckType: "Stream Deck Unknown"}},
		{"serial failure", &fakeDevice{session: "s9", deckType: "Stream Deck XL", serialErr: errors.New("usb error")}},
		{"empty serial", &fakeDevice{session: "s9", deckType: "Stream Deck XL"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			good := &fakeDevice{session: "s1", serial: "orig1", deckType: "Stream Deck Original"}
			tr := &fakeTransport{}
			tr.set(tt.dev, good)
			r, reg := newTestReconciler(t, tr, newMemRepo())

			res, err := r.Reconcile(context.Background())
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if res.Skipped != 1 || len(res.Attached) != 1 {
				t.Errorf("result = %+v", res)
			}
			if reg.Len() != 1 {
				t.Errorf("registry has %d decks, want 1", reg.Len())
			}
		})
	}
}

func TestReconcileRepositoryFailure(t *testing.T) {
	repo := newMemRepo()
	repo.err = errors.New("database locked")
	tr := &fakeTransport{}
	tr.set(&fakeDevice{session: "s1", serial: "a", deckType: "Stream Deck Mini"})
	r, reg := newTestReconciler(t, tr, repo)

	res, err := r.Reconcile(context.Background())
	if !errors.Is(err, repo.err) {
		t.Errorf("Reconcile() error = %v, want %v", err, repo.err)
	}
	if res.Skipped != 1 || reg.Len() != 0 {
		t.Errorf("result = %+v, registry %d", res, reg.Len())
	}
}

func TestReconcileDetachAndReattach(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{session: "s1", serial: "abc123", deckType: "Stream Deck Mini"}
	tr := &fakeTransport{}
	tr.set(dev)
	r, reg := newTestReconciler(t, tr, newMemRepo())

	if _, err := r.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	d, _ := reg.Get("abc123")

	tr.set()
	res, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Detached) != 1 || res.Detached[0] != "abc123" {
		t.Errorf("Detached = %v", res.Detached)
	}
	if d.State() != deck.StateUnbound {
		t.Errorf("State() = %v, want unbound", d.State())
	}

	replugged := &fakeDevice{session: "s2", serial: "abc123", deckType: "Stream Deck Mini"}
	tr.set(replugged)
	res, err = r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Attached) != 1 || !res.Attached[0].Bound || res.Attached[0].Deck != d {
		t.Errorf("reattach = %+v", res.Attached)
	}
	if d.Session() != "s2" {
		t.Errorf("Session() = %q, want s2", d.Session())
	}
}

func TestReconcileVirtualGrid(t *testing.T) {
	tr := &fakeTransport{}
	tr.set(&fakeDevice{session: "v1", serial: "virt", deckType: "Virtual Stream Deck", cols: 4, rows: 2})
	r, reg := newTestReconciler(t, tr, newMemRepo())

	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	d, ok := reg.Get("virt")
	if !ok {
		t.Fatal("virtual deck not registered")
	}
	if d.Columns() != 4 || d.Rows() != 2 || len(d.Buttons()) != 8 {
		t.Errorf("grid = %dx%d with %d buttons", d.Columns(), d.Rows(), len(d.Buttons()))
	}
}

func TestReconcileEnumerationFailure(t *testing.T) {
	tr := &fakeTransport{err: errors.New("hid unavailable")}
	r, _ := newTestReconciler(t, tr, newMemRepo())

	if _, err := r.Reconcile(context.Background()); !errors.Is(err, ErrNoDevices) {
		t.Errorf("Reconcile() error = %v, want ErrNoDevices", err)
	}
}

func TestReconcilePartialEnumerationKeepsDecks(t *testing.T) {
	hid := &fakeTransport{}
	hid.set(&fakeDevice{session: "h1", serial: "xl", deckType: "Stream Deck XL"})
	virt := &fakeTransport{}
	virt.set(&fakeDevice{session: "v1", serial: "virt", deckType: "Virtual Stream Deck", cols: 2, rows: 2})
	r, reg := newTestReconciler(t, MultiTransport{hid, virt}, newMemRepo())
	ctx := context.Background()

	if _, err := r.Reconcile(ctx); err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}

	hid.mu.Lock()
	hid.devices, hid.err = nil, errors.New("hid read timeout")
	hid.mu.Unlock()

	res, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Detached) != 0 {
		t.Errorf("Detached = %v, want none while a transport is failing", res.Detached)
	}
	d, _ := reg.Get("xl")
	if d.Session() != "h1" {
		t.Errorf("xl session = %q, want h1", d.Session())
	}

	hid.mu.Lock()
	hid.err = nil
	hid.mu.Unlock()
	res, err = r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Detached) != 1 || res.Detached[0] != "xl" {
		t.Errorf("Detached = %v, want [xl] once enumeration succeeds", res.Detached)
	}
}

func TestMultiTransport(t *testing.T) {
	ok := &fakeTransport{}
	ok.set(&fakeDevice{session: "a"})
	broken := &fakeTransport{err: errors.New("boom")}

	devices, err := MultiTransport{broken, ok}.Enumerate(context.Background())
	if len(devices) != 1 {
		t.Errorf("devices = %d, want 1", len(devices))
	}
	if !errors.Is(err, broken.err) {
		t.Errorf("error = %v, want %v", err, broken.err)
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	presses []int
}

func (h *recordingHandler) HandleKey(_ context.Context, _ *deck.Deck, position int) {
	h.mu.Lock()
	h.presses = append(h.presses, position)
	h.mu.Unlock()
}

type recordingObserver struct {
	mu       sync.Mutex
	attached []string
	detached []string
}

func (o *recordingObserver) DeckAttached(d *deck.Deck, _ bool) {
	o.mu.Lock()
	o.attached = append(o.attached, d.Serial())
	o.mu.Unlock()
}

func (o *recordingObserver) DeckDetached(serial string) {
	o.mu.Lock()
	o.detached = append(o.detached, serial)
	o.mu.Unlock()
}

func TestScanner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := &fakeDevice{session: "s1", serial: "mini", deckType: "Stream Deck Mini"}
	tr := &fakeTransport{}
	tr.set(dev)
	r, reg := newTestReconciler(t, tr, newMemRepo())

	handler := &recordingHandler{}
	obs := &recordingObserver{}
	s, err := NewScanner(ScannerConfig{Reconciler: r, Keys: handler, Observer: obs, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	res, err := s.Rescan(ctx)
	if err != nil {
		t.Fatalf("Rescan() error = %v", err)
	}
	if len(res.Attached) != 1 {
		t.Fatalf("Rescan() attached = %d, want 1", len(res.Attached))
	}

	d, _ := reg.Get("mini")
	if d.State() != deck.StateOpen {
		t.Errorf("State() = %v, want open", d.State())
	}
	dev.mu.Lock()
	images := dev.images
	dev.mu.Unlock()
	if images != 6 {
		t.Errorf("pushed %d faces, want 6", images)
	}

	dev.press(4)
	handler.mu.Lock()
	if len(handler.presses) != 1 || handler.presses[0] != 4 {
		t.Errorf("presses = %v, want [4]", handler.presses)
	}
	handler.mu.Unlock()

	tr.set()
	if _, err := s.Rescan(ctx); err != nil {
		t.Fatalf("Rescan() error = %v", err)
	}
	obs.mu.Lock()
	if len(obs.attached) != 1 || len(obs.detached) != 1 {
		t.Errorf("observer attached=%v detached=%v", obs.attached, obs.detached)
	}
	obs.mu.Unlock()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if _, err := s.Rescan(context.Background()); !errors.Is(err, ErrScannerStopped) {
		t.Errorf("Rescan() after stop error = %v, want ErrScannerStopped", err)
	}
}

func TestScannerRetriesFailedOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := &fakeDevice{session: "s1", serial: "mini", deckType: "Stream Deck Mini", openFails: 1}
	tr := &fakeTransport{}
	tr.set(dev)
	r, reg := newTestReconciler(t, tr, newMemRepo())

	obs := &recordingObserver{}
	s, err := NewScanner(ScannerConfig{Reconciler: r, Observer: obs, Interval: time.Hour})
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Run's initial pass hits the open failure. Rescans are served after it.
	for range 2 {
		if _, err := s.Rescan(ctx); err != nil {
			t.Fatalf("Rescan() error = %v", err)
		}
	}

	d, _ := reg.Get("mini")
	if d.State() != deck.StateOpen {
		t.Errorf("State() = %v, want open after a transient open failure", d.State())
	}
	obs.mu.Lock()
	if len(obs.attached) != 1 || len(obs.detached) != 0 {
		t.Errorf("observer attached=%v detached=%v", obs.attached, obs.detached)
	}
	obs.mu.Unlock()

	cancel()
	<-done
}

package deck

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/input/inputtest"
	"github.com/nerrad567/streamdeckx/internal/keys"
)

func TestExecuteActions(t *testing.T) {
	ctx := context.Background()

	t.Run("no actions", func(t *testing.T) {
		env := newTestEnv(t)
		b, _ := env.newTestDeck(t, "SN1", KindOriginal).Button(0)
		if err := b.ExecuteActions(ctx); err != nil {
			t.Fatalf("ExecuteActions() error = %v", err)
		}
		if len(env.injector.Events()) != 0 {
			t.Errorf("events = %v, want none", env.injector.Trace())
		}
	})

	t.Run("text action", func(t *testing.T) {
		env := newTestEnv(t)
		b, _ := env.newTestDeck(t, "SN1", KindOriginal).Button(3)
		if _, err := b.AddAction(ctx, action.TypeText, "hi"); err != nil {
			t.Fatalf("AddAction() error = %v", err)
		}

		if err := b.ExecuteActions(ctx); err != nil {
			t.Fatalf("ExecuteActions() error = %v", err)
		}
		want := []string{"press:h", "release:h", "press:i", "release:i"}
		if got := env.injector.Trace(); !reflect.DeepEqual(got, want) {
			t.Errorf("trace = %v, want %v", got, want)
		}
	})

	t.Run("order then insertion", func(t *testing.T) {
		env := newTestEnv(t)
		b, _ := env.newTestDeck(t, "SN1", KindOriginal).Button(0)

		mk := func(text string, order int, id int64) action.Action {
			a, err := env.factory.New(action.TypeText, text, order, id)
			if err != nil {
				t.Fatalf("factory.New() error = %v", err)
			}
			return a
		}
		b.setActions([]action.Action{mk("c", 2, 1), mk("a", 1, 2), mk("b", 1, 3)})

		if err := b.ExecuteActions(ctx); err != nil {
			t.Fatalf("ExecuteActions() error = %v", err)
		}
		want := []string{"press:a", "release:a", "press:b", "release:b", "press:c", "release:c"}
		if got := env.injector.Trace(); !reflect.DeepEqual(got, want) {
			t.Errorf("trace = %v, want %v", got, want)
		}
	})

	t.Run("first failure aborts", func(t *testing.T) {
		env := newTestEnv(t)
		env.injector.FailOn = "b"
		b, _ := env.newTestDeck(t, "SN1", KindOriginal).Button(7)
		for _, text := range []string{"a", "b", "c"} {
			if _, err := b.AddAction(ctx, action.TypeText, text); err != nil {
				t.Fatalf("AddAction(%q) error = %v", text, err)
			}
		}

		err := b.ExecuteActions(ctx)
		var actionErr *ActionError
		if !errors.As(err, &actionErr) {
			t.Fatalf("ExecuteActions() error = %v, want *ActionError", err)
		}
		if actionErr.Position != 7 || actionErr.Index != 1 || actionErr.Type != action.TypeText {
			t.Errorf("ActionError = %+v", actionErr)
		}
		if !errors.Is(err, inputtest.ErrInjected) {
			t.Errorf("error does not wrap the injector failure: %v", err)
		}
		want := []string{"press:a", "release:a"}
		if got := env.injector.Trace(); !reflect.DeepEqual(got, want) {
			t.Errorf("trace = %v, want %v", got, want)
		}
	})
}

func TestExecuteActionsSerialisesTriggers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sleeping := make(chan struct{}, 2)
	gate := make(chan struct{})
	env.factory.Sleep = func(context.Context, time.Duration) error {
		sleeping <- struct{}{}
		<-gate
		return nil
	}

	b, _ := env.newTestDeck(t, "SN1", KindOriginal).Button(0)
	for _, a := range []struct {
		typ   action.Type
		param string
	}{
		{action.TypeText, "a"},
		{action.TypeDelay, "1"},
		{action.TypeText, "b"},
	} {
		if _, err := b.AddAction(ctx, a.typ, a.param); err != nil {
			t.Fatalf("AddAction(%s, %q) error = %v", a.typ, a.param, err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	run := func() {
		defer wg.Done()
		errs <- b.ExecuteActions(ctx)
	}

	wg.Add(1)
	go run()
	<-sleeping

	wg.Add(1)
	go run()
	time.Sleep(20 * time.Millisecond)
	if got := env.injector.Trace(); !reflect.DeepEqual(got, []string{"press:a", "release:a"}) {
		t.Errorf("second trigger ran during the first: trace = %v", got)
	}

	close(gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ExecuteActions() error = %v", err)
		}
	}

	want := []string{
		"press:a", "release:a", "press:b", "release:b",
		"press:a", "release:a", "press:b", "release:b",
	}
	if got := env.injector.Trace(); !reflect.DeepEqual(got, want) {
		t.Errorf("trace = %v, want %v", got, want)
	}
}

func TestButtonMutators(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Button) error
		check  func(*testing.T, *Button)
	}{
		{
			name:   "text",
			mutate: func(b *Button) error { return b.SetText(ctx, "Mute") },
			check: func(t *testing.T, b *Button) {
				if b.Style().Label != "Mute" {
					t.Errorf("Label = %q", b.Style().Label)
				}
			},
		},
		{
			name:   "colors",
			mutate: func(b *Button) error { return b.SetColors(ctx, "#123456", "#fff") },
			check: func(t *testing.T, b *Button) {
				s := b.Style()
				if s.BackgroundColor != "#123456" || s.TextColor != "#fff" {
					t.Errorf("colours = %q / %q", s.BackgroundColor, s.TextColor)
				}
			},
		},
		{
			name:   "font size",
			mutate: func(b *Button) error { return b.SetFontSize(ctx, 24) },
			check: func(t *testing.T, b *Button) {
				if b.Style().FontSize != 24 {
					t.Errorf("FontSize = %d", b.Style().FontSize)
				}
			},
		},
		{
			name:   "font",
			mutate: func(b *Button) error { return b.SetFont(ctx, "gobold") },
			check: func(t *testing.T, b *Button) {
				if b.Style().Font != "gobold" {
					t.Errorf("Font = %q", b.Style().Font)
				}
			},
		},
		{
			name:   "background image",
			mutate: func(b *Button) error { return b.SetBackgroundImage(ctx, "aW1n") },
			check: func(t *testing.T, b *Button) {
				if b.Style().BackgroundImage != "aW1n" {
					t.Errorf("BackgroundImage = %q", b.Style().BackgroundImage)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			d := env.newTestDeck(t, "SN1", KindOriginal)
			h := newFakeHandle()
			d.Bind("s1", h)
			b, _ := d.Button(2)

			if err := tt.mutate(b); err != nil {
				t.Fatalf("mutate error = %v", err)
			}
			tt.check(t, b)

			if stored, ok := env.store.styles[b.ID()]; !ok || stored != b.Style() {
				t.Errorf("stored style = %+v, want %+v", stored, b.Style())
			}
			if _, ok := h.images[2]; !ok {
				t.Error("face was not pushed to the handle")
			}
			if d.State() != StateClosed {
				t.Errorf("State() = %v, want closed", d.State())
			}
		})
	}
}

func TestButtonMutatorErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	d := env.newTestDeck(t, "SN1", KindOriginal)
	b, _ := d.Button(0)

	if err := b.SetColors(ctx, "black", "#fff"); !errors.Is(err, ErrInvalidStyle) {
		t.Errorf("SetColors() error = %v, want ErrInvalidStyle", err)
	}
	if err := b.SetFontSize(ctx, 0); !errors.Is(err, ErrInvalidStyle) {
		t.Errorf("SetFontSize(0) error = %v, want ErrInvalidStyle", err)
	}
	if err := b.SetFont(ctx, "/no/such/font.ttf"); !errors.Is(err, ErrInvalidStyle) {
		t.Errorf("SetFont() error = %v, want ErrInvalidStyle", err)
	}
	if s := b.Style(); s.Label != "0" || s.FontSize != 16 || s.Font != "" {
		t.Errorf("style changed after rejected mutations: %+v", b.Style())
	}

	env.store.err = errors.New("disk full")
	if err := b.SetText(ctx, "x"); !errors.Is(err, env.store.err) {
		t.Errorf("SetText() error = %v, want store error", err)
	}
}

func TestMutateWithoutIdentity(t *testing.T) {
	env := newTestEnv(t)
	d, err := New(env.config("SN1", KindOriginal))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, _ := d.Button(0)

	err = b.SetText(context.Background(), "x")
	if !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("SetText() error = %v, want ErrMissingIdentity", err)
	}
	if b.Style().Label != "x" {
		t.Errorf("Label = %q, want the in-memory change kept", b.Style().Label)
	}

	if _, err := b.AddAction(context.Background(), action.TypeText, "a"); !errors.Is(err, ErrMissingIdentity) {
		t.Errorf("AddAction() error = %v, want ErrMissingIdentity", err)
	}
}

func TestAddAction(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b, _ := env.newTestDeck(t, "SN1", KindOriginal).Button(0)

	first, err := b.AddAction(ctx, action.TypeMultiKey, "CTRL; c")
	if err != nil {
		t.Fatalf("AddAction() error = %v", err)
	}
	second, err := b.AddAction(ctx, action.TypeDelay, "2")
	if err != nil {
		t.Fatalf("AddAction() error = %v", err)
	}

	if first.ID() == 0 || second.ID() == 0 || first.ID() == second.ID() {
		t.Errorf("ids = %d, %d", first.ID(), second.ID())
	}
	if first.Order() != 0 || second.Order() != 1 {
		t.Errorf("orders = %d, %d, want 0, 1", first.Order(), second.Order())
	}
	if first.Parameter() != "CTRL;c" {
		t.Errorf("Parameter() = %q, want normalised chord", first.Parameter())
	}
	if len(b.Actions()) != 2 {
		t.Errorf("len(Actions()) = %d, want 2", len(b.Actions()))
	}

	tests := []struct {
		name   string
		typ    action.Type
		param  string
		target error
	}{
		{"unknown key", action.TypeMultiKey, "CTRL;NOPE", keys.ErrUnknownKey},
		{"bad delay", action.TypeDelay, "1.5", action.ErrInvalidParameter},
		{"unsupported", action.Type("SCRIPT"), "x", action.ErrUnsupportedVariant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.AddAction(ctx, tt.typ, tt.param); !errors.Is(err, tt.target) {
				t.Errorf("AddAction() error = %v, want %v", err, tt.target)
			}
			if len(b.Actions()) != 2 {
				t.Errorf("rejected action was added")
			}
		})
	}
}

func TestUpdateAndRemoveAction(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b, _ := env.newTestDeck(t, "SN1", KindOriginal).Button(0)

	a, _ := b.AddAction(ctx, action.TypeText, "a")
	_, _ = b.AddAction(ctx, action.TypeText, "b")
	c, _ := b.AddAction(ctx, action.TypeText, "c")

	moved, err := b.UpdateAction(ctx, c.ID(), -1, "z")
	if err != nil {
		t.Fatalf("UpdateAction() error = %v", err)
	}
	if moved.ID() != c.ID() || moved.Parameter() != "z" || moved.Order() != -1 {
		t.Errorf("updated action = id %d param %q order %d", moved.ID(), moved.Parameter(), moved.Order())
	}
	if env.store.actions[c.ID()].Parameter() != "z" {
		t.Error("update was not persisted")
	}

	var got []string
	for _, x := range b.Actions() {
		got = append(got, x.Parameter())
	}
	if want := []string{"z", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order after update = %v, want %v", got, want)
	}

	if _, err := b.UpdateAction(ctx, a.ID(), 0, ""); err != nil {
		t.Errorf("UpdateAction() with empty text error = %v", err)
	}

	if err := b.RemoveAction(ctx, a.ID()); err != nil {
		t.Fatalf("RemoveAction() error = %v", err)
	}
	if len(b.Actions()) != 2 {
		t.Errorf("len(Actions()) = %d, want 2", len(b.Actions()))
	}
	if _, ok := env.store.actions[a.ID()]; ok {
		t.Error("removal was not persisted")
	}

	if err := b.RemoveAction(ctx, a.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveAction() twice error = %v, want ErrNotFound", err)
	}
	if _, err := b.UpdateAction(ctx, 999, 0, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAction(999) error = %v, want ErrNotFound", err)
	}
}

func TestButtonEqual(t *testing.T) {
	env := newTestEnv(t)
	one := env.newTestDeck(t, "SN1", KindOriginal)
	two := env.newTestDeck(t, "SN2", KindOriginal)

	a, _ := one.Button(4)
	b, _ := two.Button(4)
	c, _ := one.Button(5)

	if !a.Equal(b) {
		t.Error("buttons at the same position should be equal")
	}
	if a.Equal(c) || a.Equal(nil) {
		t.Error("buttons at different positions should differ")
	}
}

func TestButtonDescribe(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b, _ := env.newTestDeck(t, "SN1", KindOriginal).Button(1)
	if _, err := b.AddAction(ctx, action.TypeApplication, "firefox"); err != nil {
		t.Fatalf("AddAction() error = %v", err)
	}

	v := b.Describe()
	if v.Position != 1 || v.ID != 2 || v.Style.Label != "1" {
		t.Errorf("Describe() = %+v", v)
	}
	if len(v.Actions) != 1 || v.Actions[0].Display != "Open firefox" {
		t.Errorf("Describe().Actions = %+v", v.Actions)
	}
}

func TestFace(t *testing.T) {
	env := newTestEnv(t)
	b, _ := env.newTestDeck(t, "SN1", KindXL).Button(0)

	img, err := b.Face()
	if err != nil {
		t.Fatalf("Face() error = %v", err)
	}
	if got := img.Bounds().Dx(); got != 96 {
		t.Errorf("face width = %d, want 96", got)
	}
}

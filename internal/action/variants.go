package action

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/streamdeckx/internal/keys"
)

// base carries the fields every variant shares.
type base struct {
	id        int64
	order     int
	parameter string
}

func (b base) ID() int64         { return b.id }
func (b base) Order() int        { return b.order }
func (b base) Parameter() string { return b.parameter }

// Text types its parameter one character at a time, pressing and releasing
// each key before moving to the next.
type Text struct {
	base
	injector Injector
}

func (*Text) Type() Type { return TypeText }

func (t *Text) DisplayValue() string { return t.parameter }

func (t *Text) Execute(context.Context) error {
	if t.injector == nil {
		return ErrNoInjector
	}
	for _, r := range t.parameter {
		k := keys.Char(r)
		if err := t.injector.Press(k); err != nil {
			return fmt.Errorf("pressing %q: %w", k.Name, err)
		}
		if err := t.injector.Release(k); err != nil {
			return fmt.Errorf("releasing %q: %w", k.Name, err)
		}
	}
	return nil
}

// MultiKey presses a chord of named keys in order and releases them in
// reverse, so a modifier pressed first is released last. Key names are
// resolved on first use and the result is kept for the action's lifetime.
type MultiKey struct {
	base
	names    []string
	resolver KeyResolver
	injector Injector

	once     sync.Once
	resolved []keys.Key
	err      error
}

func (*MultiKey) Type() Type { return TypeMultiKey }

func (m *MultiKey) DisplayValue() string { return strings.Join(m.names, " + ") }

// Names returns the key names in press order.
func (m *MultiKey) Names() []string { return append([]string(nil), m.names...) }

// Keys resolves the chord. Resolution happens once; later calls return the
// same keys or the same error.
func (m *MultiKey) Keys() ([]keys.Key, error) {
	m.once.Do(func() {
		if m.resolver == nil {
			m.err = errors.New("action: no key resolver configured")
			return
		}
		resolved := make([]keys.Key, 0, len(m.names))
		for _, n := range m.names {
			k, err := m.resolver.Resolve(n)
			if err != nil {
				m.err = err
				return
			}
			resolved = append(resolved, k)
		}
		m.resolved = resolved
	})
	return m.resolved, m.err
}

func (m *MultiKey) Execute(context.Context) error {
	if m.injector == nil {
		return ErrNoInjector
	}
	ks, err := m.Keys()
	if err != nil {
		return err
	}

	pressed := 0
	var pressErr error
	for _, k := range ks {
		if err := m.injector.Press(k); err != nil {
			pressErr = fmt.Errorf("pressing %s: %w", k.Name, err)
			break
		}
		pressed++
	}

	// Release whatever went down, last pressed first.
	var releaseErrs []error
	for i := pressed - 1; i >= 0; i-- {
		if err := m.injector.Release(ks[i]); err != nil {
			releaseErrs = append(releaseErrs, fmt.Errorf("releasing %s: %w", ks[i].Name, err))
		}
	}
	return errors.Join(append([]error{pressErr}, releaseErrs...)...)
}

// Delay pauses the sequence for a whole number of seconds.
type Delay struct {
	base
	seconds int
	sleep   SleepFunc
}

func (*Delay) Type() Type { return TypeDelay }

// Seconds is the pause length.
func (d *Delay) Seconds() int { return d.seconds }

func (d *Delay) DisplayValue() string { return fmt.Sprintf("%d seconds", d.seconds) }

func (d *Delay) Execute(ctx context.Context) error {
	sleep := d.sleep
	if sleep == nil {
		sleep = Sleep
	}
	return sleep(ctx, time.Duration(d.seconds)*time.Second)
}

func parseDelay(parameter string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(parameter))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: delay %q is not a whole number of seconds", ErrInvalidParameter, parameter)
	}
	return n, nil
}

// Application starts its parameter as a detached process and returns as
// soon as the process has started.
type Application struct {
	base
	launcher Launcher
}

func (*Application) Type() Type { return TypeApplication }

func (a *Application) DisplayValue() string { return "Open " + a.parameter }

func (a *Application) Execute(context.Context) error {
	if a.launcher == nil {
		return ErrNoLauncher
	}
	if err := a.launcher.Launch(a.parameter); err != nil {
		return fmt.Errorf("launching %q: %w", a.parameter, err)
	}
	return nil
}

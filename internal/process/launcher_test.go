package process

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"
)

func TestSplitCommand(t *testing.T) {
	dir := t.TempDir()
	spaced := filepath.Join(dir, "my app")
	if err := os.WriteFile(spaced, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in      string
		want    []string
		wantErr error
	}{
		{"firefox", []string{"firefox"}, nil},
		{"code --new-window /tmp", []string{"code", "--new-window", "/tmp"}, nil},
		{"  gedit  notes.txt ", []string{"gedit", "notes.txt"}, nil},
		{`code "/home/me/my dir"`, []string{"code", "/home/me/my dir"}, nil},
		{`open 'a b' c\ d`, []string{"open", "a b", "c d"}, nil},
		{spaced, []string{spaced}, nil},
		{dir, []string{dir}, nil},
		{"   ", nil, ErrEmptyCommand},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := splitCommand(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("splitCommand() error = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitCommandUnterminatedQuote(t *testing.T) {
	if _, err := splitCommand(`code "/home/me/my dir`); err == nil {
		t.Error("splitCommand() should reject an unterminated quote")
	}
}

func TestLaunchDoesNotWait(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep(1)")
	}

	l := NewLauncher(nil)
	exited := make(chan error, 1)
	l.OnExit = func(_ string, err error) { exited <- err }

	start := time.Now()
	if err := l.Launch("sleep 1"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Launch() blocked for %v", elapsed)
	}

	select {
	case err := <-exited:
		if err != nil {
			t.Errorf("process exit error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process was not reaped")
	}
}

func TestLaunchMissingProgram(t *testing.T) {
	l := NewLauncher(nil)
	if err := l.Launch("streamdeckx-no-such-program --flag"); err == nil {
		t.Error("Launch() of a missing program should fail")
	}
}

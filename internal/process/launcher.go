package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// ErrEmptyCommand is returned by Launch for blank commands.
var ErrEmptyCommand = errors.New("process: empty command")

// Logger is the logging interface used by Launcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Launcher starts detached processes.
type Launcher struct {
	logger Logger

	// OnExit, when set, is called from the reaper goroutine after a
	// launched process exits.
	OnExit func(command string, err error)
}

// NewLauncher creates a Launcher. A nil logger discards output.
func NewLauncher(logger Logger) *Launcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Launcher{logger: logger}
}

// Launch starts command and returns once the process is running. A
// command naming an existing file is run as-is, so paths may contain
// spaces; anything else is split with shell quoting rules into program and
// arguments. No shell is involved, so variables and pipes are not expanded.
func (l *Launcher) Launch(command string) error {
	argv, err := splitCommand(command)
	if err != nil {
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // running user-configured programs is the point
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", argv[0], err)
	}
	l.logger.Info("application launched", "command", command, "pid", cmd.Process.Pid)

	// Reap the child so it does not linger as a zombie.
	go func() {
		err := cmd.Wait()
		if err != nil {
			l.logger.Debug("application exited", "command", command, "error", err)
		}
		if l.OnExit != nil {
			l.OnExit(command, err)
		}
	}()
	return nil
}

func splitCommand(command string) ([]string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}
	if info, err := os.Stat(command); err == nil && !info.IsDir() {
		return []string{command}, nil
	}
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

// Package daemon tracks a long-running alden process (the dev backend)
// through a PID file so a second instance can detect or stop it.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrRunning is returned by Acquire when a live process holds the file.
	ErrRunning = errors.New("already running")
	// ErrNotRunning is returned by Stop when no live process holds the file.
	ErrNotRunning = errors.New("not running")
)

const pollInterval = 50 * time.Millisecond

// PIDFile is a PID file at Path.
type PIDFile struct {
	Path string
}

// New returns a PIDFile for path.
func New(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Acquire records the current process in the file. A file left behind by a
// dead process is replaced.
func (p *PIDFile) Acquire() error {
	if pid, running := p.Status(); running {
		return fmt.Errorf("pid %d: %w", pid, ErrRunning)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	return p.write(os.Getpid())
}

// Release removes the file if it still names the current process.
func (p *PIDFile) Release() error {
	pid, err := p.read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(p.Path)
}

// Status returns the recorded PID and whether that process is alive. A
// stale file is removed.
func (p *PIDFile) Status() (int, bool) {
	pid, err := p.read()
	if err != nil {
		return 0, false
	}
	if alive(pid) {
		return pid, true
	}
	_ = os.Remove(p.Path)
	return pid, false
}

// Stop asks the recorded process to terminate and waits until it has exited
// or ctx is done.
func (p *PIDFile) Stop(ctx context.Context) error {
	pid, running := p.Status()
	if !running {
		return ErrNotRunning
	}
	if err := terminate(pid); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}

	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		if !alive(pid) {
			_ = os.Remove(p.Path)
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("pid %d did not exit: %w", pid, ctx.Err())
		case <-t.C:
		}
	}
}

func (p *PIDFile) write(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

func (p *PIDFile) read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

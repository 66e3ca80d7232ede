// SPDX-License-Identifier: MIT
/*
Package spectrum supervises an external terminal spectrum analyzer running in
raw-output mode and exposes its latest frame of bar magnitudes.

The analyzer writes fixed-width binary frames (one byte per bar, 0-255) to
stdout. A background goroutine reads frames as fast as they arrive and keeps
only the most recent one; Sample never blocks on the subprocess. If the
analyzer dies or closes stdout, the loop exits and Sample keeps returning the
last frame until Close.
*/
package spectrum

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	applog "github.com/MaveDX/Bard/internal/log"
)

// Config describes how to launch the analyzer.
type Config struct {
	// Bars is the frame width in bands. Must be positive.
	Bars int
	// Binary is the analyzer executable, "cava" when empty.
	Binary string
	// UserConfig is the path to the user's own analyzer config. Missing is
	// fine; its [output] section is replaced either way.
	UserConfig string
	// TempDir overrides where the merged config is written. Defaults to the
	// system temp directory.
	TempDir string
}

// Supervisor owns one analyzer subprocess and its merged config file.
type Supervisor struct {
	cmd      *exec.Cmd
	confPath string
	bars     int

	mu     sync.Mutex
	latest []byte

	done chan struct{}
}

// New writes the merged config, spawns the analyzer, and starts the read
// loop. The returned Supervisor must be Closed to reap the subprocess and
// remove the config file.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Bars <= 0 {
		return nil, fmt.Errorf("spectrum: bar count must be positive, got %d", cfg.Bars)
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "cava"
	}
	dir := cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	confPath, err := writeConfig(dir, cfg.UserConfig, cfg.Bars)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(binary, "-p", confPath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(confPath)
		return nil, fmt.Errorf("spectrum: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		os.Remove(confPath)
		return nil, fmt.Errorf("spectrum: start %s: %w", binary, err)
	}

	s := &Supervisor{
		cmd:      cmd,
		confPath: confPath,
		bars:     cfg.Bars,
		latest:   make([]byte, cfg.Bars),
		done:     make(chan struct{}),
	}
	go s.readLoop(stdout)

	applog.Infof("spectrum: started %s (pid %d, %d bars)", binary, cmd.Process.Pid, cfg.Bars)
	return s, nil
}

// readLoop pulls whole frames from the analyzer until the pipe errors or
// closes. The last complete frame stays available after exit.
func (s *Supervisor) readLoop(r io.Reader) {
	defer close(s.done)

	frame := make([]byte, s.bars)
	for {
		if _, err := io.ReadFull(r, frame); err != nil {
			if !errors.Is(err, io.EOF) {
				applog.Debugf("spectrum: read loop ended: %v", err)
			}
			return
		}
		s.mu.Lock()
		copy(s.latest, frame)
		s.mu.Unlock()
	}
}

// Sample returns a copy of the most recent frame. Each byte is one band's
// magnitude in [0, 255].
func (s *Supervisor) Sample() []byte {
	out := make([]byte, s.bars)
	s.mu.Lock()
	copy(out, s.latest)
	s.mu.Unlock()
	return out
}

// Bars returns the frame width.
func (s *Supervisor) Bars() int {
	return s.bars
}

// Close kills the analyzer, reaps it, and removes the merged config file.
// Every step runs even when an earlier one fails.
func (s *Supervisor) Close() error {
	var errs []error
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("spectrum: kill: %w", err))
	}
	// Wait both reaps the child and unblocks the read loop via pipe close.
	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			errs = append(errs, fmt.Errorf("spectrum: wait: %w", err))
		}
	}
	<-s.done
	if err := os.Remove(s.confPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("spectrum: remove config: %w", err))
	}
	return errors.Join(errs...)
}

// Package mux builds monitoring sessions over a discovered worker fleet: one
// terminal pane per worker, bound to a shell, a log tail, or the worker's own
// process output. Sessions are a presentation convenience: panes are not
// coordinated with each other or with the sweep in any way.
package mux

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/donatienLeray/toychain-argos/internal/ctxlog"
	"github.com/donatienLeray/toychain-argos/internal/fleet"
)

// Mode selects what each pane is bound to.
type Mode int

const (
	// ModeShell runs an interactive shell inside the worker container.
	ModeShell Mode = iota
	// ModeLogTail follows the worker's log file at the conventional path.
	ModeLogTail
	// ModeProcessStream follows the worker process's own output.
	ModeProcessStream
)

func (m Mode) String() string {
	switch m {
	case ModeShell:
		return "shell"
	case ModeLogTail:
		return "logtail"
	case ModeProcessStream:
		return "stream"
	default:
		return "unknown"
	}
}

// paneScrollback is how many lines each pane retains.
const paneScrollback = 500

// PaneIO is the live binding of one pane: output to show, and optionally an
// input writer for interactive modes.
type PaneIO struct {
	Reader io.Reader
	Writer io.Writer
	Close  func() error
}

// PaneSource opens the IO binding for one worker.
type PaneSource interface {
	Open(ctx context.Context, w fleet.Worker) (*PaneIO, error)
}

// Pane is one worker's view inside a session.
type Pane struct {
	Worker fleet.Worker

	io *PaneIO

	mu    sync.Mutex
	lines []string
}

// feed consumes the pane's reader line by line into the scrollback.
func (p *Pane) feed() {
	scanner := bufio.NewScanner(p.io.Reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.append(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		p.append(fmt.Sprintf("[stream closed: %v]", err))
	}
}

func (p *Pane) append(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, line)
	if len(p.lines) > paneScrollback {
		p.lines = p.lines[len(p.lines)-paneScrollback:]
	}
}

// Tail returns the last n lines of the pane's scrollback.
func (p *Pane) Tail(n int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n >= len(p.lines) {
		return append([]string(nil), p.lines...)
	}
	return append([]string(nil), p.lines[len(p.lines)-n:]...)
}

// SendInput writes raw input to the pane's bound process, if the mode has
// one. Read-only panes swallow input.
func (p *Pane) SendInput(data []byte) error {
	if p.io.Writer == nil {
		return nil
	}
	_, err := p.io.Writer.Write(data)
	return err
}

func (p *Pane) close() {
	if p.io.Close != nil {
		_ = p.io.Close()
	}
}

// Session is a set of panes over the fleet, identified by id. When
// synchronized, input is broadcast identically to every pane.
type Session struct {
	ID           string
	Mode         Mode
	Synchronized bool
	Panes        []*Pane

	closeOnce sync.Once
}

// SendInput delivers input to the focused pane, or to every pane when the
// session is synchronized.
func (s *Session) SendInput(focus int, data []byte) error {
	if s.Synchronized {
		var errs []string
		for _, p := range s.Panes {
			if err := p.SendInput(data); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", p.Worker.Name, err))
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("broadcast partially failed: %s", strings.Join(errs, "; "))
		}
		return nil
	}
	if focus < 0 || focus >= len(s.Panes) {
		return nil
	}
	return s.Panes[focus].SendInput(data)
}

// Close tears down every pane binding. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for _, p := range s.Panes {
			p.close()
		}
	})
}

// Manager tracks live sessions by id. Opening an id that is already live
// tears the old session down first, so repeated invocations never leave
// duplicate or orphaned sessions behind.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Open builds a session over the given workers. Zero workers is a valid
// observable state (fleet not started yet) and yields a session with zero
// panes.
func (m *Manager) Open(ctx context.Context, id string, workers []fleet.Worker, source PaneSource, mode Mode, synchronized bool) (*Session, error) {
	logger := ctxlog.FromContext(ctx)

	m.mu.Lock()
	if old, ok := m.sessions[id]; ok {
		logger.Info("Session id already live, tearing down the old one.", "session", id)
		old.Close()
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	session := &Session{ID: id, Mode: mode, Synchronized: synchronized}
	for _, w := range workers {
		paneIO, err := source.Open(ctx, w)
		if err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to bind pane for worker %s: %w", w.Name, err)
		}
		pane := &Pane{Worker: w, io: paneIO}
		session.Panes = append(session.Panes, pane)
		go pane.feed()
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	logger.Info("Session opened.", "session", id, "mode", mode.String(), "panes", len(session.Panes), "synchronized", synchronized)
	return session, nil
}

// CloseSession tears down a live session by id.
func (m *Manager) CloseSession(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Close()
		delete(m.sessions, id)
	}
}

// Live reports whether a session id is currently open.
func (m *Manager) Live(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

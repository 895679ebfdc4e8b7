// Package session holds the client's persisted login and navigation state.
// A Session is created once per process with Load and handed to every
// component that needs it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MaxHistory caps the navigation stack.
const MaxHistory = 50

// TargetTabKey is the one-shot key a view reads to open a sub-tab.
const TargetTabKey = "target_tab"

type state struct {
	Token    string   `json:"token,omitempty"`
	UserID   string   `json:"user_id,omitempty"`
	Username string   `json:"username,omitempty"`
	History  []string `json:"history,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	path  string
	state state
	once  map[string]string
}

// New returns an empty session that is never written to disk.
func New() *Session {
	return &Session{once: map[string]string{}}
}

// Load reads the session file at path. A missing file yields an empty
// session bound to path.
func Load(path string) (*Session, error) {
	s := &Session{path: path, once: map[string]string{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.state); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	return s, nil
}

// Save writes the session to its file. Sessions created with New are
// memory-only and Save is a no-op.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Session) saveLocked() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Login stores the credentials and persists them.
func (s *Session) Login(token, userID, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Token = token
	s.state.UserID = userID
	s.state.Username = username
	return s.saveLocked()
}

// Clear drops credentials, history and pending one-shot keys.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state{}
	s.once = map[string]string{}
	return s.saveLocked()
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserID
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Username
}

// LoggedIn reports whether a token is present.
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Navigate pushes view onto the history stack. Repeating the current view
// is not recorded twice.
func (s *Session) Navigate(view string) error {
	if view == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.state.History
	if n := len(h); n > 0 && h[n-1] == view {
		return nil
	}
	h = append(h, view)
	if len(h) > MaxHistory {
		h = h[len(h)-MaxHistory:]
	}
	s.state.History = h
	return s.saveLocked()
}

// Back pops the current view and returns the one below it. ok is false when
// there is nowhere to go back to.
func (s *Session) Back() (view string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.state.History
	if len(h) < 2 {
		return "", false, nil
	}
	h = h[:len(h)-1]
	s.state.History = h
	return h[len(h)-1], true, s.saveLocked()
}

// Current returns the top of the history stack.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.state.History); n > 0 {
		return s.state.History[n-1]
	}
	return ""
}

// History returns a copy of the navigation stack, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.History...)
}

// SetOnce stores a value that the next TakeOnce for key consumes. One-shot
// values live in memory only.
func (s *Session) SetOnce(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.once[key] = value
}

// TakeOnce returns and removes the value stored under key.
func (s *Session) TakeOnce(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.once[key]
	delete(s.once, key)
	return v, ok
}

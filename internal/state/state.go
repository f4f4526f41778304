// Package state holds the application state of a storage session: the
// governing token, the scope configuration and the known files.
//
// All mutation goes through State, which serializes it and notifies
// subscribers after each change. Updates to a file are last write wins.
package state

import (
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/swiftvfs/internal/models"
	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
	"github.com/dmitrijs2005/swiftvfs/internal/scope"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// EventKind says what changed.
type EventKind int

const (
	FileUpdated EventKind = iota
	FileRemoved
	FilesReset
	TokenChanged
)

// Event is delivered to observers after a change.
type Event struct {
	Kind EventKind
	// File is set for FileUpdated and FileRemoved.
	File  models.RemoteFile
	Token *token.Token
}

// Observer receives events on the goroutine that made the change, after
// the state lock has been released.
type Observer func(Event)

// State is safe for concurrent use.
type State struct {
	mu        sync.RWMutex
	cfg       scope.Config
	tok       *token.Token
	files     map[string]models.RemoteFile
	observers map[int]Observer
	nextID    int
}

// New returns an empty state for cfg.
func New(cfg scope.Config) *State {
	return &State{cfg: cfg, files: map[string]models.RemoteFile{}, observers: map[int]Observer{}}
}

func (s *State) Config() scope.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *State) Token() *token.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tok
}

// SetToken replaces the governing token.
func (s *State) SetToken(t *token.Token) {
	s.mu.Lock()
	s.tok = t
	s.mu.Unlock()
	s.notify(Event{Kind: TokenChanged, Token: t})
}

// Subscribe registers o and returns a function that removes it.
func (s *State) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// File returns the file at remotePath.
func (s *State) File(remotePath string) (models.RemoteFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[pathx.Normalize(remotePath)]
	return f, ok
}

// Files returns every file ordered by remote path.
func (s *State) Files() []models.RemoteFile {
	s.mu.RLock()
	out := make([]models.RemoteFile, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.RemoteFile) int { return strings.Compare(a.RemotePath, b.RemotePath) })
	return out
}

// PutFile stores f under its remote path.
func (s *State) PutFile(f models.RemoteFile) {
	f.RemotePath = pathx.Normalize(f.RemotePath)
	s.mu.Lock()
	s.files[f.RemotePath] = f
	s.mu.Unlock()
	s.notify(Event{Kind: FileUpdated, File: f})
}

// UpdateFile applies fn to the file at remotePath. It reports false, and
// calls nothing, when no such file exists.
func (s *State) UpdateFile(remotePath string, fn func(f *models.RemoteFile)) bool {
	key := pathx.Normalize(remotePath)
	s.mu.Lock()
	f, ok := s.files[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	fn(&f)
	f.RemotePath = key
	s.files[key] = f
	s.mu.Unlock()

	s.notify(Event{Kind: FileUpdated, File: f})
	return true
}

// RemoveFile forgets the file at remotePath.
func (s *State) RemoveFile(remotePath string) {
	key := pathx.Normalize(remotePath)
	s.mu.Lock()
	f, ok := s.files[key]
	delete(s.files, key)
	s.mu.Unlock()
	if ok {
		s.notify(Event{Kind: FileRemoved, File: f})
	}
}

// ResetFiles replaces the whole collection.
func (s *State) ResetFiles(files []models.RemoteFile) {
	m := make(map[string]models.RemoteFile, len(files))
	for _, f := range files {
		f.RemotePath = pathx.Normalize(f.RemotePath)
		m[f.RemotePath] = f
	}
	s.mu.Lock()
	s.files = m
	s.mu.Unlock()
	s.notify(Event{Kind: FilesReset})
}

func (s *State) notify(e Event) {
	s.mu.RLock()
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.mu.RUnlock()

	for _, o := range obs {
		o(e)
	}
}

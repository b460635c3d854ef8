package queue

import (
	"errors"
	"log"
	"strconv"
	"sync"

	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/result"
	"github.com/ah-its-andy/webpconv/internal/settings"
)

var (
	ErrBusy             = errors.New("a conversion is in progress")
	ErrIndexOutOfRange  = errors.New("queue index out of range")
	ErrInvalidQuality   = errors.New("invalid quality")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrNoDestination    = errors.New("no destination folder selected")
	ErrNothingSelected  = errors.New("no queued image is selected")
	ErrConversionFailed = errors.New("conversion call failed")
	ErrJobDone          = errors.New("conversion job already ran")
)

// State is the dispatch state of a session.
type State int

const (
	StateIdle State = iota
	StateProcessing
)

func (s State) String() string {
	if s == StateProcessing {
		return "processing"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Session owns the queue and the batch override. Every mutation goes through
// it and is rejected with ErrBusy while a conversion is in flight.
type Session struct {
	mu       sync.Mutex
	entries  []Entry
	override BatchOverride
	state    State

	store settings.Store
	board *result.Board
}

type Option func(*Session)

// WithStore persists batch overrides to store.
func WithStore(store settings.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithBoard publishes every dispatch outcome to board.
func WithBoard(board *result.Board) Option {
	return func(s *Session) { s.board = board }
}

func NewSession(opts ...Option) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the last used batch override from the settings store. Stored
// values that are no longer valid are ignored.
func (s *Session) Restore() {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.store.Get(settings.KeyBatchQuality); ok {
		n, err := strconv.Atoi(v)
		if q, qerr := imagefmt.ParseQuality(n); err == nil && qerr == nil {
			s.override.Quality = q
		} else {
			log.Printf("ignoring stored %s %q", settings.KeyBatchQuality, v)
		}
	}
	if v, ok := s.store.Get(settings.KeyBatchFormat); ok {
		if f, err := imagefmt.ParseFormat(v); err == nil {
			s.override.Format = f
		} else {
			log.Printf("ignoring stored %s %q", settings.KeyBatchFormat, v)
		}
	}
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Entries     []Entry       `json:"entries"`
	AllSelected bool          `json:"all_selected"`
	Override    BatchOverride `json:"override"`
	State       State         `json:"state"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Entries:     s.copyEntries(),
		AllSelected: s.allSelected(),
		Override:    s.override,
		State:       s.state,
	}
}

// Entries returns a copy of the queue in order.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyEntries()
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Session) Override() BatchOverride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.override
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Processing() bool { return s.State() == StateProcessing }

func (s *Session) copyEntries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// mutate runs fn under the lock unless a conversion is in flight.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateProcessing {
		return ErrBusy
	}
	return fn()
}

// busyErr returns ErrBusy while a conversion is in flight.
func (s *Session) busyErr() error {
	if s.Processing() {
		return ErrBusy
	}
	return nil
}

func (s *Session) checkIndex(index int) error {
	if index < 0 || index >= len(s.entries) {
		return ErrIndexOutOfRange
	}
	return nil
}

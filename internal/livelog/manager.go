package livelog

import (
	"io"
	"sort"
	"sync"
	"time"
)

// Entry is the console output collected for one file while it converts
type Entry struct {
	SourcePath string    `json:"source_path"`
	Output     string    `json:"output"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Manager holds the output of files currently being converted. A nil
// Manager discards everything.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*Entry // key: source path
}

func NewManager() *Manager {
	return &Manager{entries: make(map[string]*Entry)}
}

// Start begins collecting output for path, dropping anything left from an
// earlier run of the same file
func (m *Manager) Start(path string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.entries[path] = &Entry{SourcePath: path, StartedAt: now, UpdatedAt: now}
}

// Append adds text to the output of path. Unknown paths are ignored.
func (m *Manager) Append(path, text string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[path]; ok {
		e.Output += text
		e.UpdatedAt = time.Now()
	}
}

// Writer returns an io.Writer appending to the output of path.
func (m *Manager) Writer(path string) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		m.Append(path, string(p))
		return len(p), nil
	})
}

// Get returns a copy of the output of path.
func (m *Manager) Get(path string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[path]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// End stops collecting output for path
func (m *Manager) End(path string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, path)
}

// Active returns copies of every entry, oldest first
func (m *Manager) Active() []Entry {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Prune removes entries not updated within maxAge and reports how many went
func (m *Manager) Prune(maxAge time.Duration) int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := 0
	for path, e := range m.entries {
		if now.Sub(e.UpdatedAt) > maxAge {
			delete(m.entries, path)
			n++
		}
	}
	return n
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

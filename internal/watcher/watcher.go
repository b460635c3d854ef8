package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ah-its-andy/webpconv/internal/utils"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long the drop folder must stay quiet before the
// collected paths are delivered.
const DefaultSettleDelay = time.Second

// stabilityDelay is the interval used to confirm a dropped file stopped
// growing before it is delivered.
const stabilityDelay = 20 * time.Millisecond

type EventKind int

const (
	// EventEnter: files started arriving.
	EventEnter EventKind = iota + 1
	// EventDrop: the collected paths are ready.
	EventDrop
	// EventLeave: everything that arrived is gone again.
	EventLeave
)

func (k EventKind) String() string {
	switch k {
	case EventEnter:
		return "enter"
	case EventDrop:
		return "drop"
	case EventLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// Event is a drag-and-drop notification. Paths is only set for EventDrop.
type Event struct {
	Kind  EventKind
	Paths []string
}

// Watcher turns files appearing in a drop folder into drop events.
type Watcher struct {
	dir    string
	settle time.Duration
	w      *fsnotify.Watcher
	events chan Event
	mu     sync.Mutex
	paused bool
}

// New watches dir, creating it when missing. Subdirectories are not watched.
func New(dir string, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create drop folder: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(abs); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	return &Watcher{dir: abs, settle: settle, w: w, events: make(chan Event, 16)}, nil
}

func (wr *Watcher) Dir() string { return wr.dir }

// Events delivers drop notifications until Start returns.
func (wr *Watcher) Events() <-chan Event { return wr.events }

func (wr *Watcher) Close() error { return wr.w.Close() }

func (wr *Watcher) Pause()       { wr.mu.Lock(); wr.paused = true; wr.mu.Unlock() }
func (wr *Watcher) Resume()      { wr.mu.Lock(); wr.paused = false; wr.mu.Unlock() }
func (wr *Watcher) Paused() bool { wr.mu.Lock(); defer wr.mu.Unlock(); return wr.paused }

// Start runs the event loop until ctx is done.
func (wr *Watcher) Start(ctx context.Context) error {
	log.Printf("watching drop folder %s", wr.dir)

	var (
		pending []string
		seen    = map[string]struct{}{}
		timer   *time.Timer
		settled <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-wr.w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || wr.Paused() {
				continue
			}
			if _, dup := seen[ev.Name]; !dup {
				if len(pending) == 0 && !wr.emit(ctx, Event{Kind: EventEnter}) {
					return nil
				}
				seen[ev.Name] = struct{}{}
				pending = append(pending, ev.Name)
			}
			if timer == nil {
				timer = time.NewTimer(wr.settle)
			} else {
				timer.Reset(wr.settle)
			}
			settled = timer.C
		case err, ok := <-wr.w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher error: %v", err)
		case <-settled:
			settled = nil
			ev := wr.collect(pending)
			pending = nil
			seen = map[string]struct{}{}
			if !wr.emit(ctx, ev) {
				return nil
			}
		}
	}
}

// collect keeps the paths that still exist once their size settled.
func (wr *Watcher) collect(pending []string) Event {
	var present []string
	for _, p := range pending {
		if err := utils.WaitFileStable(p, stabilityDelay); err != nil {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		present = append(present, abs)
	}
	if len(present) == 0 {
		return Event{Kind: EventLeave}
	}
	log.Printf("drop folder delivered %d paths", len(present))
	return Event{Kind: EventDrop, Paths: present}
}

func (wr *Watcher) emit(ctx context.Context, ev Event) bool {
	select {
	case wr.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

package result

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDuration is how long a notice stays visible unless dismissed.
const DefaultDuration = 6 * time.Second

// Notice is a classified status message currently shown to the user.
type Notice struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	ShownAt   time.Time `json:"shown_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Board holds at most one visible notice and dismisses it after a fixed
// duration.
type Board struct {
	mu       sync.Mutex
	duration time.Duration
	current  *Notice
	timer    *time.Timer
}

func NewBoard(duration time.Duration) *Board {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Board{duration: duration}
}

// Show replaces the visible notice with one built from o.
func (b *Board) Show(o Outcome) Notice {
	now := time.Now()
	n := Notice{
		ID:        uuid.NewString(),
		Status:    o.Status(),
		Message:   o.Message(),
		ShownAt:   now,
		ExpiresAt: now.Add(b.duration),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.current = &n
	id := n.ID
	b.timer = time.AfterFunc(b.duration, func() { b.expire(id) })
	return n
}

// Current returns the visible notice, if any.
func (b *Board) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notice{}, false
	}
	return *b.current, true
}

// Dismiss hides the visible notice early. It reports whether one was shown.
func (b *Board) Dismiss() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	shown := b.current != nil
	b.current = nil
	return shown
}

func (b *Board) expire(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// a newer notice may have replaced this one
	if b.current != nil && b.current.ID == id {
		b.current = nil
		b.timer = nil
	}
}

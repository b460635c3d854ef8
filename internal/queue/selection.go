package queue

import (
	"log"
	"strconv"

	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/settings"
)

// ToggleRowSelection flips the selected flag of the entry at index.
func (s *Session) ToggleRowSelection(index int) error {
	return s.mutate(func() error {
		if err := s.checkIndex(index); err != nil {
			return err
		}
		s.entries[index].Selected = !s.entries[index].Selected
		return nil
	})
}

// SetAllSelection sets every entry's selected flag to selected.
func (s *Session) SetAllSelection(selected bool) error {
	return s.mutate(func() error {
		for i := range s.entries {
			s.entries[i].Selected = selected
		}
		return nil
	})
}

// AllSelected reports whether every entry is selected. An empty queue is
// never "all selected".
func (s *Session) AllSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allSelected()
}

func (s *Session) allSelected() bool {
	if len(s.entries) == 0 {
		return false
	}
	for _, e := range s.entries {
		if !e.Selected {
			return false
		}
	}
	return true
}

// SetEntryQuality sets the quality of a single entry. Zero is not a valid
// per-entry value.
func (s *Session) SetEntryQuality(index int, q imagefmt.Quality) error {
	if !q.Valid() {
		return ErrInvalidQuality
	}
	return s.mutate(func() error {
		if err := s.checkIndex(index); err != nil {
			return err
		}
		s.entries[index].Quality = q
		return nil
	})
}

// SetEntryFormat sets the target format of a single entry.
func (s *Session) SetEntryFormat(index int, f imagefmt.Format) error {
	if !f.Valid() {
		return ErrInvalidFormat
	}
	return s.mutate(func() error {
		if err := s.checkIndex(index); err != nil {
			return err
		}
		s.entries[index].Format = f
		return nil
	})
}

// SetBatchQuality sets the session-wide quality override. QualityNone clears
// it. The value is remembered across restarts when a store is configured.
func (s *Session) SetBatchQuality(q imagefmt.Quality) error {
	if q != imagefmt.QualityNone && !q.Valid() {
		return ErrInvalidQuality
	}
	return s.mutate(func() error {
		s.override.Quality = q
		s.persist(settings.KeyBatchQuality, strconv.Itoa(int(q)))
		return nil
	})
}

// SetBatchFormat sets the session-wide format override. FormatNone clears it.
func (s *Session) SetBatchFormat(f imagefmt.Format) error {
	if f != imagefmt.FormatNone && !f.Valid() {
		return ErrInvalidFormat
	}
	return s.mutate(func() error {
		s.override.Format = f
		s.persist(settings.KeyBatchFormat, f.String())
		return nil
	})
}

// persist writes through to the store. A failed write never rejects the
// in-memory change.
func (s *Session) persist(key, value string) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(key, value); err != nil {
		log.Printf("failed to save setting %s: %v", key, err)
	}
}

// DeleteRow removes the entry at index, keeping the order of the rest.
func (s *Session) DeleteRow(index int) error {
	return s.mutate(func() error {
		if err := s.checkIndex(index); err != nil {
			return err
		}
		s.entries = append(s.entries[:index], s.entries[index+1:]...)
		return nil
	})
}

// ClearQueue removes every entry. The batch override is kept.
func (s *Session) ClearQueue() error {
	return s.mutate(func() error {
		s.entries = nil
		return nil
	})
}

package queue

import (
	"errors"
	"testing"

	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/settings"
)

func newFilledSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := NewSession(opts...)
	if _, err := s.AddFiles([]string{"/q/a.jpg", "/q/b.png", "/q/c.tiff"}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSelectAllConsistency(t *testing.T) {
	s := NewSession()
	if s.AllSelected() {
		t.Fatal("an empty queue is never all selected")
	}

	s = newFilledSession(t)
	if !s.AllSelected() {
		t.Fatal("new entries start selected")
	}
	if err := s.ToggleRowSelection(1); err != nil {
		t.Fatal(err)
	}
	if s.AllSelected() {
		t.Fatal("one unselected entry clears all selected")
	}
	if err := s.ToggleRowSelection(1); err != nil {
		t.Fatal(err)
	}
	if !s.AllSelected() {
		t.Fatal("toggling back restores all selected")
	}

	if err := s.SetAllSelection(false); err != nil {
		t.Fatal(err)
	}
	for _, e := range s.Entries() {
		if e.Selected {
			t.Fatalf("%s still selected", e.SourcePath)
		}
	}
	s.SetAllSelection(true)
	if !s.AllSelected() {
		t.Fatal("select all failed")
	}
}

func TestIndexErrors(t *testing.T) {
	s := newFilledSession(t)
	for _, idx := range []int{-1, 3, 99} {
		if err := s.ToggleRowSelection(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("ToggleRowSelection(%d) = %v", idx, err)
		}
		if err := s.SetEntryQuality(idx, 80); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("SetEntryQuality(%d) = %v", idx, err)
		}
		if err := s.SetEntryFormat(idx, imagefmt.FormatJPG); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("SetEntryFormat(%d) = %v", idx, err)
		}
		if err := s.DeleteRow(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("DeleteRow(%d) = %v", idx, err)
		}
	}
}

func TestInvalidValues(t *testing.T) {
	s := newFilledSession(t)
	if err := s.SetEntryQuality(0, 0); !errors.Is(err, ErrInvalidQuality) {
		t.Errorf("quality 0 per entry: %v", err)
	}
	if err := s.SetEntryQuality(0, 85); !errors.Is(err, ErrInvalidQuality) {
		t.Errorf("quality 85: %v", err)
	}
	if err := s.SetEntryFormat(0, imagefmt.FormatNone); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("FormatNone per entry: %v", err)
	}
	if err := s.SetBatchQuality(42); !errors.Is(err, ErrInvalidQuality) {
		t.Errorf("batch quality 42: %v", err)
	}
	if err := s.SetBatchFormat(imagefmt.Format(9)); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("batch format 9: %v", err)
	}
}

func TestOverridePrecedence(t *testing.T) {
	s := newFilledSession(t)
	if err := s.SetEntryQuality(0, 80); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBatchQuality(50); err != nil {
		t.Fatal(err)
	}
	e := s.Entries()[0]
	if _, q := s.Override().Resolve(e); q != 50 {
		t.Fatalf("batch quality should win, got %d", q)
	}
	if e.Quality != 80 {
		t.Fatal("override must not rewrite the entry value")
	}

	s.SetBatchQuality(imagefmt.QualityNone)
	if _, q := s.Override().Resolve(e); q != 80 {
		t.Fatalf("cleared override should fall back to the entry, got %d", q)
	}

	s.SetEntryQuality(1, 90)
	s.SetBatchQuality(50)
	s.SetEntryQuality(1, 80)
	if _, q := s.Override().Resolve(s.Entries()[1]); q != 50 {
		t.Fatalf("entry edits under an active override still resolve to the override, got %d", q)
	}

	if err := s.SetBatchFormat(imagefmt.FormatBMP); err != nil {
		t.Fatal(err)
	}
	for _, e := range s.Entries() {
		if f, _ := s.Override().Resolve(e); f != imagefmt.FormatBMP {
			t.Errorf("%s resolved to %v", e.SourcePath, f)
		}
	}
	s.SetBatchFormat(imagefmt.FormatNone)
	if f, _ := s.Override().Resolve(s.Entries()[2]); f != imagefmt.FormatPNG {
		t.Errorf("cleared format override resolved to %v", f)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := newFilledSession(t)
	s.SetBatchQuality(75)
	if err := s.DeleteRow(1); err != nil {
		t.Fatal(err)
	}
	if !equalStrings(paths(s.Entries()), []string{"/q/a.jpg", "/q/c.tiff"}) {
		t.Fatalf("unexpected queue after delete: %v", paths(s.Entries()))
	}
	// a deleted path can be queued again
	if added, _ := s.AddFiles([]string{"/q/b.png"}); len(added) != 1 {
		t.Fatal("deleted path should be accepted again")
	}
	if err := s.ClearQueue(); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Fatal("queue not cleared")
	}
	if s.Override().Quality != 75 {
		t.Fatal("clearing the queue must keep the override")
	}
}

type failingStore struct{ settings.Store }

func (failingStore) Set(string, string) error { return errors.New("disk full") }

func TestBatchOverridePersistence(t *testing.T) {
	store := settings.NewMemoryStore()
	s := NewSession(WithStore(store))
	s.SetBatchQuality(80)
	s.SetBatchFormat(imagefmt.FormatTIFF)

	if v, _ := store.Get(settings.KeyBatchQuality); v != "80" {
		t.Errorf("stored quality %q", v)
	}
	if v, _ := store.Get(settings.KeyBatchFormat); v != "TIFF" {
		t.Errorf("stored format %q", v)
	}

	restored := NewSession(WithStore(store))
	restored.Restore()
	if o := restored.Override(); o.Quality != 80 || o.Format != imagefmt.FormatTIFF {
		t.Fatalf("restored override %+v", o)
	}

	s.SetBatchFormat(imagefmt.FormatNone)
	if v, ok := store.Get(settings.KeyBatchFormat); !ok || v != "" {
		t.Errorf("cleared format should be stored as empty, got %q", v)
	}
}

func TestRestoreIgnoresBadValues(t *testing.T) {
	store := settings.NewMemoryStore()
	store.Set(settings.KeyBatchQuality, "33")
	store.Set(settings.KeyBatchFormat, "GIF")
	s := NewSession(WithStore(store))
	s.Restore()
	if o := s.Override(); o.Quality != imagefmt.QualityNone || o.Format != imagefmt.FormatNone {
		t.Fatalf("invalid stored values should be ignored, got %+v", o)
	}
}

func TestStoreFailureKeepsChange(t *testing.T) {
	s := NewSession(WithStore(failingStore{settings.NewMemoryStore()}))
	if err := s.SetBatchQuality(90); err != nil {
		t.Fatalf("a store failure must not reject the change: %v", err)
	}
	if s.Override().Quality != 90 {
		t.Fatal("override not applied")
	}
}

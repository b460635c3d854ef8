package queue

import (
	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/utils"
)

// AddFiles queues paths returned by a file picker. The picker applies its own
// extension filter, so no filtering happens here. A nil or empty list (the
// user cancelled) is a no-op. It returns the entries actually appended.
func (s *Session) AddFiles(paths []string) ([]Entry, error) {
	return s.ingest(paths)
}

// AddDropped queues paths delivered by a drop. Only paths whose extension
// names a supported format are kept; directories are dropped.
func (s *Session) AddDropped(paths []string) ([]Entry, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	accepted := make([]string, 0, len(paths))
	for _, p := range paths {
		if acceptDropped(p) {
			accepted = append(accepted, p)
		}
	}
	if len(accepted) == 0 {
		return nil, s.busyErr()
	}
	return s.ingest(accepted)
}

func acceptDropped(path string) bool {
	if _, ok := imagefmt.FromExtension(utils.Ext(path)); !ok {
		return false
	}
	return !utils.IsDir(path)
}

// ingest appends one entry per unique new path. Duplicates are judged against
// the queue as it was before the call; repeats inside paths collapse to the
// first occurrence.
func (s *Session) ingest(paths []string) ([]Entry, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	var added []Entry
	err := s.mutate(func() error {
		seen := make(map[string]struct{}, len(s.entries)+len(paths))
		for _, e := range s.entries {
			seen[e.SourcePath] = struct{}{}
		}
		for _, p := range paths {
			if p == "" {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			added = append(added, newEntry(p))
		}
		s.entries = append(s.entries, added...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

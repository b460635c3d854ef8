package queue

import (
	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/utils"
)

// Entry is one queued image. SourcePath is its identity: two entries are the
// same image only when the paths are byte-for-byte equal.
type Entry struct {
	SourcePath  string           `json:"source_path"`
	DisplayName string           `json:"display_name"`
	Selected    bool             `json:"selected"`
	Quality     imagefmt.Quality `json:"quality"`
	Format      imagefmt.Format  `json:"format"`
}

func newEntry(path string) Entry {
	return Entry{
		SourcePath:  path,
		DisplayName: utils.DisplayName(path),
		Selected:    true,
		Quality:     imagefmt.DefaultQuality,
		Format:      imagefmt.DefaultFor(utils.Ext(path)),
	}
}

// BatchOverride holds session-wide settings. A zero field means "use each
// entry's own value".
type BatchOverride struct {
	Quality imagefmt.Quality `json:"quality"`
	Format  imagefmt.Format  `json:"format"`
}

// Resolve returns the format and quality actually used for e at dispatch.
func (o BatchOverride) Resolve(e Entry) (imagefmt.Format, imagefmt.Quality) {
	format := e.Format
	if o.Format != imagefmt.FormatNone {
		format = o.Format
	}
	quality := e.Quality
	if o.Quality > 0 {
		quality = o.Quality
	}
	return format, quality
}

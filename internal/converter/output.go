package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ah-its-andy/webpconv/internal/imagefmt"
)

// task is a validated request file with its resolved output path.
type task struct {
	src     string
	dst     string
	format  imagefmt.Format
	quality int
}

// plan validates req and resolves every output path. It fails only when the
// batch cannot be attempted at all.
func plan(req Request) ([]task, error) {
	if req.DestinationFolder == "" {
		return nil, fmt.Errorf("%w: destination folder is empty", ErrInvalidRequest)
	}
	fi, err := os.Stat(req.DestinationFolder)
	if err != nil {
		return nil, fmt.Errorf("%w: destination folder: %v", ErrInvalidRequest, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: destination is not a directory: %s", ErrInvalidRequest, req.DestinationFolder)
	}

	tasks := make([]task, 0, len(req.Files))
	for i, f := range req.Files {
		format, err := imagefmt.ParseFormat(f.Format)
		if err != nil || !format.Valid() {
			return nil, fmt.Errorf("%w: files[%d]: bad format %q", ErrInvalidRequest, i, f.Format)
		}
		tasks = append(tasks, task{
			src:     f.SourcePath,
			dst:     OutputPath(req.DestinationFolder, f.SourcePath, format),
			format:  format,
			quality: f.Quality,
		})
	}
	return tasks, nil
}

// OutputPath places the converted file in dest, keeping the source stem and
// swapping the extension.
// Source: /a/b/photo.jpg, WEBP -> Output: <dest>/photo.webp
func OutputPath(dest, src string, f imagefmt.Format) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dest, stem+"."+f.Extension())
}

// createTemp opens a uniquely named sibling of dst that a backend writes
// before the final rename, so tasks sharing dst never share a temp file.
func createTemp(dst string) (*os.File, error) {
	return os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
}

// encoderQuality falls back to the default when a request carries none.
func encoderQuality(q int) int {
	if q <= 0 || q > 100 {
		return int(imagefmt.DefaultQuality)
	}
	return q
}

package converter

import (
	"fmt"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

const exifDateLayout = "2006:01:02 15:04:05"

// readDateTimeOriginal returns the capture time of an EXIF-bearing file in
// EXIF notation.
func readDateTimeOriginal(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return "", fmt.Errorf("exif decode: %w", err)
	}
	tm, err := x.DateTime()
	if err != nil {
		return "", fmt.Errorf("exif datetime: %w", err)
	}
	return tm.Format(exifDateLayout), nil
}

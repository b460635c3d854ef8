package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DisplayName returns the final segment of a path. Both separators are
// honoured so Windows paths sent to a unix host still display correctly.
func DisplayName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// Ext returns the extension of the final path segment including the dot, or
// "" when there is none.
func Ext(path string) string {
	name := DisplayName(path)
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, `\`) {
		return ""
	}
	return filepath.Ext(name)
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// WaitFileStable waits for two consecutive identical sizes separated by delay
func WaitFileStable(path string, delay time.Duration) error {
	var lastSize int64 = -1
	for i := 0; i < 5; i++ { // up to ~5 cycles
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		sz := fi.Size()
		if lastSize == sz {
			return nil
		}
		lastSize = sz
		time.Sleep(delay)
	}
	return nil
}

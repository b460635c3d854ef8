package converter

import (
	"context"
	"errors"
)

// File is one entry of a conversion request. Format carries the canonical
// format name, never its ordinal.
type File struct {
	SourcePath string `json:"sourcePath"`
	Format     string `json:"format"`
	Quality    int    `json:"quality"`
}

// Request is a whole batch submitted in a single call.
type Request struct {
	Files             []File `json:"files"`
	DestinationFolder string `json:"destinationFolder"`
}

var (
	// ErrInvalidRequest is returned when a request cannot be attempted at all.
	ErrInvalidRequest = errors.New("invalid conversion request")
	// ErrNoConverter is returned when no enabled backend is available.
	ErrNoConverter = errors.New("no converter available")
)

// Converter defines the interface for conversion backends
type Converter interface {
	// Name returns the unique name of this converter
	Name() string

	// Convert processes every file of req and returns how many were written
	// without error. A per-file failure is not an error of the call; an error
	// means nothing could be attempted.
	Convert(ctx context.Context, req Request) (int, error)
}

// ConverterInfo provides information about a registered converter
type ConverterInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

package db

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	RunRunning = "running"
	RunSuccess = "success"
	RunWarning = "warning"
	RunError   = "error"
)

// ConversionRun is one dispatched batch
type ConversionRun struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Destination string     `json:"destination"`
	Converter   string     `json:"converter"`
	Requested   int        `json:"requested"`
	Processed   int        `json:"processed"`
	Status      string     `gorm:"index" json:"status"` // running, success, warning, error
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `gorm:"index" json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	DurationMs  int64      `json:"duration_ms"`

	// Files is the submitted per-file request, kept for diagnostics
	Files datatypes.JSON `json:"files,omitempty"`
}

// Setting is a persisted key/value pair
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FilesJSON encodes the submitted files of a run. It returns nil when v cannot
// be encoded.
func FilesJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

package models

import (
	"fmt"
	"time"
)

// ImportStatus is the server-side state of an import job
type ImportStatus string

const (
	StatusPending    ImportStatus = "pending"
	StatusValidating ImportStatus = "validating"
	StatusProcessing ImportStatus = "processing"
	StatusCompleted  ImportStatus = "completed"
	StatusError      ImportStatus = "error"
	StatusCancelled  ImportStatus = "cancelled"
)

// IsTerminal reports whether no further transitions can happen
func (s ImportStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusCancelled:
		return true
	}
	return false
}

// Icon returns the Material icon name the admin UI shows for the status
func (s ImportStatus) Icon() string {
	switch s {
	case StatusPending:
		return "schedule"
	case StatusValidating, StatusProcessing:
		return "sync"
	case StatusCompleted:
		return "check_circle"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancel"
	}
	return ""
}

// Color returns the theme palette used for the status chip
func (s ImportStatus) Color() string {
	switch s {
	case StatusPending:
		return "accent"
	case StatusValidating, StatusProcessing:
		return "primary"
	case StatusCompleted:
		return "success"
	case StatusError, StatusCancelled:
		return "warn"
	}
	return ""
}

type ImportStats struct {
	TotalRows      int `json:"totalRows"`
	ProcessedRows  int `json:"processedRows"`
	SuccessfulRows int `json:"successfulRows"`
	ErrorRows      int `json:"errorRows"`
	DuplicateRows  int `json:"duplicateRows"`
	SkippedRows    int `json:"skippedRows"`
}

// ImportError is a row-level failure reported by the server
type ImportError struct {
	Row     int    `json:"row"` // 1-based line number
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValueString renders the offending raw value, empty when absent
func (e ImportError) ValueString() string {
	switch v := e.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; integral values print without a fraction
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

// ImportProgress mirrors the server job; refreshed by polling
type ImportProgress struct {
	ID        string        `json:"id"`
	Status    ImportStatus  `json:"status"`
	Stats     ImportStats   `json:"stats"`
	Errors    []ImportError `json:"errors"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
	Progress  float64       `json:"progress"`
	Message   string        `json:"message,omitempty"`
}

// ImportHistory is one entry of the server's append-only import log
type ImportHistory struct {
	ID        string        `json:"id" yaml:"id"`
	Type      ImportType    `json:"type" yaml:"type"`
	FileName  string        `json:"fileName" yaml:"fileName"`
	FileSize  int64         `json:"fileSize" yaml:"fileSize"`
	Status    ImportStatus  `json:"status" yaml:"status"`
	Stats     ImportStats   `json:"stats" yaml:"stats"`
	UserName  string        `json:"userName" yaml:"userName"`
	StartTime time.Time     `json:"startTime" yaml:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty" yaml:"endTime,omitempty"`
	Errors    []ImportError `json:"errors,omitempty" yaml:"errors,omitempty"`
	CanRevert bool          `json:"canRevert" yaml:"canRevert"`
}

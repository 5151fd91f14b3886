package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DownloadTask tracks one queued request inside the download service
type DownloadTask struct {
	ID         string
	Request    DownloadRequest
	State      State
	Percent    float64 // 0 to 100
	Message    string  // last localized progress message
	OutputPath string  // path to downloaded file
	Failure    FailureKind
	LastError  string    // localized failure message if any
	CreatedAt  time.Time // when the task was queued
	StartedAt  time.Time // when an orchestrator picked it up
	FinishedAt time.Time // when the outcome arrived
}

// Elapsed returns how long the task has been running, or ran in total
func (dt *DownloadTask) Elapsed() time.Duration {
	if dt.StartedAt.IsZero() {
		return 0
	}
	if dt.FinishedAt.IsZero() {
		return time.Since(dt.StartedAt)
	}
	return dt.FinishedAt.Sub(dt.StartedAt)
}

// GetElapsedString returns elapsed time formatted as mm:ss or hh:mm:ss
func (dt *DownloadTask) GetElapsedString() string {
	total := int(dt.Elapsed().Seconds())
	if total <= 0 {
		return "—"
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns the output name, the downloaded filename, or the URL
// in order of preference
func (dt *DownloadTask) GetDisplayTitle() string {
	if dt.Request.OutputName != "" {
		return dt.Request.OutputName
	}

	if dt.OutputPath != "" {
		// support both / and \ separators regardless of host OS
		name := dt.OutputPath
		if i := strings.LastIndexAny(name, `/\`); i >= 0 {
			name = name[i+1:]
		}
		if name != "" {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}

	return dt.Request.URL
}

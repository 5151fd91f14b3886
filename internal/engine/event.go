package engine

import "time"

// Status is the phase reported by a raw engine event
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
	StatusError       Status = "error"
)

// Event is a raw progress notification from an engine. Zero numeric values
// mean unknown.
type Event struct {
	Status             Status
	DownloadedBytes    int64
	TotalBytes         int64
	TotalBytesEstimate int64
	Speed              float64 // bytes per second
	ETA                time.Duration
	Filename           string
	Error              string
}

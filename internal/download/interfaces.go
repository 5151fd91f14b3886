package download

import (
	"context"

	"github.com/ytget/streamgrab/internal/model"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	SetUpdateCallback(func(*model.DownloadTask))
	AddTask(req model.DownloadRequest) (*model.DownloadTask, error)
	GetTask(id string) (*model.DownloadTask, bool)
	GetAllTasks() []*model.DownloadTask
	StopTask(id string) error

	// SetMaxParallelDownloads sets the maximum number of parallel downloads
	SetMaxParallelDownloads(max int)

	// Wait blocks until every queued task has finished or ctx is done
	Wait(ctx context.Context) error

	// Shutdown cancels running tasks and drops pending ones
	Shutdown()
}

// Recorder persists finished tasks
type Recorder interface {
	Record(ctx context.Context, task model.DownloadTask) error
}

var _ Downloader = (*Service)(nil)

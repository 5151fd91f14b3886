package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/streamgrab/internal/engine"
	"github.com/ytget/streamgrab/internal/logging"
	"github.com/ytget/streamgrab/internal/model"
)

// Parallelism limits
const (
	MinParallel     = 1
	MaxParallel     = 10
	DefaultParallel = 2
)

// RecordTimeout bounds a history write for one finished task
const RecordTimeout = 5 * time.Second

var (
	// ErrTaskNotFound is returned for an unknown task ID
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskNotActive is returned when stopping a finished task
	ErrTaskNotActive = errors.New("task is not active")
	// ErrDuplicateTask is returned when the same URL is already queued for
	// the same destination
	ErrDuplicateTask = errors.New("task already exists for URL")
	// ErrServiceClosed is returned by AddTask after Shutdown
	ErrServiceClosed = errors.New("download service is shut down")
)

// Service handles download operations
type Service struct {
	tasks       map[string]*model.DownloadTask
	order       []string // task IDs in insertion order
	pending     []*model.DownloadTask
	cancels     map[string]context.CancelFunc
	tasksMutex  sync.RWMutex
	maxParallel int
	activeCount int
	closed      bool
	wg          sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	factory  engine.Factory
	orchOpts []OrchestratorOption
	recorder Recorder
	logger   *slog.Logger
	onUpdate func(*model.DownloadTask) // callback for CLI updates
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger; orchestrators get it too
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
			s.orchOpts = append(s.orchOpts, WithLogger(logger))
		}
	}
}

// WithOrchestratorOptions passes options to every task orchestrator
func WithOrchestratorOptions(opts ...OrchestratorOption) ServiceOption {
	return func(s *Service) {
		s.orchOpts = append(s.orchOpts, opts...)
	}
}

// WithRecorder stores every finished task with rec
func WithRecorder(rec Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = rec
	}
}

// NewService creates a new download service
func NewService(factory engine.Factory, maxParallel int, opts ...ServiceOption) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		tasks:       make(map[string]*model.DownloadTask),
		cancels:     make(map[string]context.CancelFunc),
		maxParallel: clampParallel(maxParallel),
		ctx:         ctx,
		cancel:      cancel,
		factory:     factory,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetUpdateCallback sets the callback function for task updates. The callback
// receives a snapshot and may be called from several goroutines.
func (s *Service) SetUpdateCallback(callback func(*model.DownloadTask)) {
	s.tasksMutex.Lock()
	s.onUpdate = callback
	s.tasksMutex.Unlock()
}

// SetMaxParallelDownloads sets the maximum number of parallel downloads
func (s *Service) SetMaxParallelDownloads(max int) {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()
	s.maxParallel = clampParallel(max)
	s.scheduleLocked()
}

// AddTask queues a new download task
func (s *Service) AddTask(req model.DownloadRequest) (*model.DownloadTask, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	if s.closed {
		return nil, ErrServiceClosed
	}

	// Check for duplicate URLs
	for _, task := range s.tasks {
		if task.Request.URL == req.URL && task.Request.DestinationDir == req.DestinationDir && !task.State.IsFinished() {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, req.URL)
		}
	}

	task := &model.DownloadTask{
		ID:        generateTaskID(),
		Request:   req,
		State:     model.StatePending,
		CreatedAt: time.Now(),
	}
	s.tasks[task.ID] = task
	s.order = append(s.order, task.ID)
	s.pending = append(s.pending, task)
	s.wg.Add(1)
	s.logger.Info("task queued", "task", task.ID, "url", req.URL)

	snapshot := *task
	s.scheduleLocked()
	return &snapshot, nil
}

// GetTask returns a snapshot of a task by ID
func (s *Service) GetTask(id string) (*model.DownloadTask, bool) {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

// GetAllTasks returns snapshots of all tasks in the order they were added
func (s *Service) GetAllTasks() []*model.DownloadTask {
	s.tasksMutex.RLock()
	defer s.tasksMutex.RUnlock()

	tasks := make([]*model.DownloadTask, 0, len(s.order))
	for _, id := range s.order {
		snapshot := *s.tasks[id]
		tasks = append(tasks, &snapshot)
	}
	return tasks
}

// StopTask cancels a running task or drops a pending one
func (s *Service) StopTask(id string) error {
	s.tasksMutex.Lock()
	defer s.tasksMutex.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if task.State.IsFinished() {
		return fmt.Errorf("%w: %s", ErrTaskNotActive, task.State)
	}

	if cancel, running := s.cancels[id]; running {
		s.logger.Info("stopping task", "task", id)
		cancel()
		return nil
	}

	s.removePendingLocked(id)
	s.finishCancelledLocked(task)
	return nil
}

// Wait blocks until every queued task has finished or ctx is done
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels running tasks, drops pending ones and rejects new tasks
func (s *Service) Shutdown() {
	s.tasksMutex.Lock()
	s.closed = true
	for _, task := range s.pending {
		s.finishCancelledLocked(task)
	}
	s.pending = nil
	s.tasksMutex.Unlock()

	s.cancel()
}

// scheduleLocked starts pending tasks while capacity allows
func (s *Service) scheduleLocked() {
	for s.activeCount < s.maxParallel && len(s.pending) > 0 {
		task := s.pending[0]
		s.pending = s.pending[1:]

		ctx, cancel := context.WithCancel(s.ctx)
		s.cancels[task.ID] = cancel
		s.activeCount++
		task.StartedAt = time.Now()
		go s.startTask(ctx, task)
	}
}

// startTask runs one task on its own orchestrator
func (s *Service) startTask(ctx context.Context, task *model.DownloadTask) {
	defer s.finishTask(task)

	opts := append([]OrchestratorOption{}, s.orchOpts...)
	opts = append(opts, WithStateHook(func(st model.State) {
		s.tasksMutex.Lock()
		task.State = st
		s.tasksMutex.Unlock()
		s.notifyUpdate(task)
	}))
	orch := NewOrchestrator(s.factory, opts...)

	s.logger.Info("task started", "task", task.ID)
	for ev := range orch.Run(ctx, task.Request) {
		if ev.Progress != nil {
			s.tasksMutex.Lock()
			task.Percent = ev.Progress.Percent
			task.Message = ev.Progress.Message
			s.tasksMutex.Unlock()
			s.notifyUpdate(task)
		}
		if ev.Outcome != nil {
			s.applyOutcome(task, *ev.Outcome)
		}
	}
}

func (s *Service) applyOutcome(task *model.DownloadTask, out model.Outcome) {
	s.tasksMutex.Lock()
	task.FinishedAt = time.Now()
	if out.Succeeded() {
		task.State = model.StateSucceeded
		task.OutputPath = out.FilePath
		task.Percent = 100
	} else {
		task.State = model.StateFailed
		task.Failure = out.Failure.Kind
		task.LastError = out.Failure.Message
	}
	snapshot := *task
	s.tasksMutex.Unlock()

	if out.Succeeded() {
		s.logger.Info("task finished", "task", task.ID, "file", out.FilePath, "elapsed", snapshot.Elapsed())
	} else {
		s.logger.Error("task failed", "task", task.ID, "kind", string(out.Failure.Kind), "error", out.Failure)
	}
	s.notifyUpdate(task)
	s.record(snapshot)
}

// finishTask releases the slot of a task and starts the next pending one
func (s *Service) finishTask(task *model.DownloadTask) {
	s.tasksMutex.Lock()
	if cancel, ok := s.cancels[task.ID]; ok {
		cancel()
		delete(s.cancels, task.ID)
	}
	s.activeCount--
	s.scheduleLocked()
	s.tasksMutex.Unlock()

	s.wg.Done()
}

func (s *Service) removePendingLocked(id string) {
	for i, task := range s.pending {
		if task.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// finishCancelledLocked fails a task that never started
func (s *Service) finishCancelledLocked(task *model.DownloadTask) {
	task.State = model.StateFailed
	task.Failure = model.FailureUnexpected
	task.LastError = context.Canceled.Error()
	task.FinishedAt = time.Now()
	s.wg.Done()

	snapshot := *task
	if s.onUpdate != nil {
		go s.onUpdate(&snapshot)
	}
}

func (s *Service) record(task model.DownloadTask) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), RecordTimeout)
	defer cancel()
	if err := s.recorder.Record(ctx, task); err != nil {
		s.logger.Warn("failed to record task in history", "task", task.ID, "error", err)
	}
}

// notifyUpdate calls the update callback, if set, with a snapshot of task
func (s *Service) notifyUpdate(task *model.DownloadTask) {
	s.tasksMutex.RLock()
	callback := s.onUpdate
	snapshot := *task
	s.tasksMutex.RUnlock()

	if callback != nil {
		callback(&snapshot)
	}
}

func clampParallel(n int) int {
	switch {
	case n < MinParallel:
		return MinParallel
	case n > MaxParallel:
		return MaxParallel
	}
	return n
}

// generateTaskID generates a unique task ID
func generateTaskID() string {
	return "task-" + uuid.NewString()
}

package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ytget/streamgrab/internal/engine"
	"github.com/ytget/streamgrab/internal/format"
	"github.com/ytget/streamgrab/internal/l10n"
	"github.com/ytget/streamgrab/internal/logging"
	"github.com/ytget/streamgrab/internal/model"
	"github.com/ytget/streamgrab/internal/platform"
	"github.com/ytget/streamgrab/internal/progress"
)

// DefaultFilenameTemplate names files after the media title
const DefaultFilenameTemplate = "%(title)s.%(ext)s"

// extField is appended to a custom output name
const extField = ".%(ext)s"

var (
	// ErrBusy is returned when an orchestrator is asked to run a second
	// request while the first is still in progress
	ErrBusy = errors.New("orchestrator is already running a download")
	// ErrNoMetadata is reported when the engine returned neither info nor error
	ErrNoMetadata = errors.New("engine returned no metadata")
	// ErrPanic wraps a panic recovered from the engine
	ErrPanic = errors.New("engine panicked")
)

// Orchestrator runs one download request at a time through an engine,
// retrying once with a fallback format when the primary query is unavailable.
type Orchestrator struct {
	factory  engine.Factory
	loc      progress.Localizer
	logger   *slog.Logger
	template string
	onState  func(model.State)

	mu      sync.Mutex
	running bool
	state   model.State
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLocalizer sets the catalog used for progress and failure messages
func WithLocalizer(loc progress.Localizer) OrchestratorOption {
	return func(o *Orchestrator) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithFilenameTemplate overrides the yt-dlp output filename template
func WithFilenameTemplate(template string) OrchestratorOption {
	return func(o *Orchestrator) {
		if strings.TrimSpace(template) != "" {
			o.template = template
		}
	}
}

// WithStateHook registers a callback invoked on every state transition
func WithStateHook(fn func(model.State)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.onState = fn
	}
}

// NewOrchestrator creates an orchestrator that builds engines with factory
func NewOrchestrator(factory engine.Factory, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		factory:  factory,
		logger:   logging.Discard(),
		template: DefaultFilenameTemplate,
		state:    model.StatePending,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.loc == nil {
		o.loc = l10n.MustNew("en")
	}
	return o
}

// State returns the current state
func (o *Orchestrator) State() model.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes req on a new goroutine. The channel yields progress events in
// order, then exactly one outcome, and is then closed. Callers must drain it
// until it is closed, also after cancelling ctx: the outcome of a cancelled
// download is still delivered, and the forwarding goroutine exits only once
// every event has been received.
func (o *Orchestrator) Run(ctx context.Context, req model.DownloadRequest) <-chan model.Event {
	q := newEventQueue()
	go func() {
		out := o.Execute(ctx, req, func(percent float64, message string) {
			q.push(model.Event{Progress: &model.ProgressEvent{Percent: percent, Message: message}})
		})
		q.push(model.Event{Outcome: &out})
		q.close()
	}()
	return q.drain()
}

// Execute performs req synchronously and returns its outcome. sink may be nil.
func (o *Orchestrator) Execute(ctx context.Context, req model.DownloadRequest, sink progress.Sink) model.Outcome {
	if !o.begin() {
		return o.fail(model.FailureUnexpected, l10n.KeyErrorUnexpected, ErrBusy)
	}
	defer o.end()

	o.setState(model.StatePreparing)
	o.logger.Info("download started", "url", req.URL, "dir", req.DestinationDir,
		"quality", string(req.Quality), "codec", string(req.Codec))

	if err := req.Validate(); err != nil {
		return o.fail(model.FailureUnexpected, l10n.KeyErrorInvalidRequest, err)
	}
	if err := platform.CreateDirectoryIfNotExists(req.DestinationDir); err != nil {
		return o.fail(model.FailureUnexpected, l10n.KeyErrorUnexpected, err)
	}
	opts := o.baseOptions(req)

	o.setState(model.StateResolving)
	sel := format.Resolve(req.Quality, req.Codec)
	opts.Format = sel.Primary
	opts.PostProcessors = sel.PostProcessors
	if sink != nil {
		opts.ProgressHooks = append(opts.ProgressHooks, progress.NewTranslator(o.loc, o.logger).Hook(sink))
	}
	o.logger.Debug("engine options resolved", "format", opts.Format,
		"template", opts.OutputTemplate, "postprocessors", len(opts.PostProcessors))

	o.setState(model.StateFetching)
	eng, info, err := o.fetch(ctx, opts, req.URL)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrFormatUnavailable):
		o.setState(model.StateRetrying)
		o.logger.Warn("requested format is not available, retrying with fallback",
			"format", opts.Format, "fallback", sel.Fallback, "error", err)

		retry := opts.Clone()
		retry.Format = sel.Fallback
		eng, info, err = o.fetch(ctx, retry, req.URL)
		if err != nil {
			o.logger.Error("fallback download failed", "url", req.URL, "error", err)
			return o.fail(model.FailureFormatUnavailable, l10n.KeyErrorFormatUnavailable, err)
		}
	case errors.Is(err, ErrNoMetadata):
		return o.fail(model.FailureNoMetadataReturned, l10n.KeyErrorNoVideoInfo, err)
	case errors.Is(err, engine.ErrExtraction):
		return o.fail(model.FailureExtractionFailed, l10n.KeyErrorExtractionFailed, err)
	case errors.Is(err, engine.ErrDownload):
		return o.fail(model.FailureGenericDownloadFailed, l10n.KeyErrorDownloadFailed, err)
	default:
		return o.fail(model.FailureUnexpected, l10n.KeyErrorUnexpected, err)
	}

	o.setState(model.StateFinalizing)
	path := FinalPath(req.DestinationDir, eng.PrepareFilename(info), info.Ext)

	o.setState(model.StateSucceeded)
	o.logger.Info("download finished", "url", req.URL, "file", path)
	return model.Outcome{FilePath: path}
}

func (o *Orchestrator) baseOptions(req model.DownloadRequest) engine.Options {
	opts := engine.Options{
		OutputTemplate: filepath.Join(req.DestinationDir, o.filenameTemplate(req)),
		NoPlaylist:     true,
		Quiet:          true,
	}
	if ref := strings.TrimSpace(req.Referrer); ref != "" {
		opts.HTTPHeaders = map[string]string{
			engine.HeaderReferer:   ref,
			engine.HeaderUserAgent: engine.DesktopUserAgent,
		}
	}
	return opts
}

func (o *Orchestrator) filenameTemplate(req model.DownloadRequest) string {
	name := strings.TrimSpace(req.OutputName)
	if name == "" {
		return o.template
	}
	return filepath.Base(name) + extField
}

// fetch runs one engine call and turns a nil record or a panic into errors
func (o *Orchestrator) fetch(ctx context.Context, opts engine.Options, url string) (eng engine.Engine, info *engine.Info, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("engine panicked", "url", url, "panic", r)
			eng, info, err = nil, nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	eng = o.factory(opts)
	info, err = eng.ExtractInfo(ctx, url)
	if err != nil {
		o.logger.Error("engine call failed", "url", url, "format", opts.Format, "error", err)
		return nil, nil, err
	}
	if info == nil {
		o.logger.Error("engine returned no metadata", "url", url)
		return nil, nil, ErrNoMetadata
	}
	return eng, info, nil
}

// FinalPath joins dir with the base of filename, replacing its extension
// with ext when post-processing changed the container
func FinalPath(dir, filename, ext string) string {
	if ext != "" && !strings.HasSuffix(filename, ext) {
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + "." + ext
	}
	return filepath.Join(dir, filepath.Base(filename))
}

func (o *Orchestrator) fail(kind model.FailureKind, key string, cause error) model.Outcome {
	if !errors.Is(cause, ErrBusy) {
		o.setState(model.StateFailed)
	}
	msg := o.loc.Lookup(key, nil)
	o.logger.Error("download failed", "kind", string(kind), "error", cause)
	return model.Outcome{Failure: model.NewFailure(kind, msg, cause)}
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return false
	}
	o.running = true
	return true
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

func (o *Orchestrator) setState(s model.State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if o.onState != nil {
		o.onState(s)
	}
}

// eventQueue is an unbounded FIFO between the engine and the Run consumer,
// so a slow reader never stalls the engine's progress hooks
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []model.Event
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(ev model.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Signal()
}

// drain forwards queued events to the returned channel until the queue is
// closed and empty
func (q *eventQueue) drain() <-chan model.Event {
	ch := make(chan model.Event)
	go func() {
		defer close(ch)
		for {
			q.mu.Lock()
			for len(q.items) == 0 && !q.closed {
				q.cond.Wait()
			}
			if len(q.items) == 0 {
				q.mu.Unlock()
				return
			}
			ev := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			ch <- ev
		}
	}()
	return ch
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ytget/streamgrab/internal/config"
	"github.com/ytget/streamgrab/internal/download"
	"github.com/ytget/streamgrab/internal/engine"
	"github.com/ytget/streamgrab/internal/engine/dlp"
	"github.com/ytget/streamgrab/internal/engine/native"
	"github.com/ytget/streamgrab/internal/history"
	"github.com/ytget/streamgrab/internal/l10n"
	"github.com/ytget/streamgrab/internal/logging"
	"github.com/ytget/streamgrab/internal/manifest"
	"github.com/ytget/streamgrab/internal/model"
	"github.com/ytget/streamgrab/internal/platform"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppName = "streamgrab"

	// shutdownGrace is how long cancelled tasks get to report their outcome
	shutdownGrace = 10 * time.Second
	shortIDLength = 8
)

// cliOptions holds parsed command-line flags
type cliOptions struct {
	outputDir   string
	quality     string
	codec       string
	referrer    string
	jsonFile    string
	name        string
	probe       bool
	engineName  string
	configPath  string
	lang        string
	history     int
	reveal      bool
	parallel    int
	verbose     bool
	showVersion bool

	set  map[string]bool
	urls []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{set: make(map[string]bool)}

	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <url>...\n\nFlags:\n", AppName)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.outputDir, "o", "", "destination directory (default from config)")
	fs.StringVar(&opts.quality, "quality", "", "quality: best, 1080, 720, 480, mp3, m4a")
	fs.StringVar(&opts.codec, "codec", "", "preferred video codec: h264 or av1")
	fs.StringVar(&opts.referrer, "referrer", "", "Referer header sent with every request")
	fs.StringVar(&opts.jsonFile, "json", "", "player JSON export to take the stream URL from")
	fs.StringVar(&opts.name, "name", "", "output file name without extension")
	fs.BoolVar(&opts.probe, "probe", false, "list HLS variants instead of downloading")
	fs.StringVar(&opts.engineName, "engine", "", "fetch engine: ytdlp or native")
	fs.StringVar(&opts.configPath, "config", "", "config file (.toml or .yaml)")
	fs.StringVar(&opts.lang, "lang", "", "interface language: system, en, ru, pt")
	fs.IntVar(&opts.history, "history", 0, "show the latest N downloads and exit")
	fs.BoolVar(&opts.reveal, "reveal", false, "reveal finished files in the file manager")
	fs.IntVar(&opts.parallel, "parallel", 0, "maximum parallel downloads")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging to stderr")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	opts.urls = fs.Args()
	return opts, nil
}

// applyOverrides copies explicitly set flags into settings
func applyOverrides(settings *config.Settings, opts *cliOptions) {
	if opts.set["o"] {
		settings.SetDownloadDirectory(opts.outputDir)
	}
	if opts.set["quality"] {
		settings.SetQuality(model.ParseQuality(opts.quality))
	}
	if opts.set["codec"] {
		settings.SetCodec(model.ParseCodec(opts.codec))
	}
	if opts.set["engine"] {
		settings.SetEngine(opts.engineName)
	}
	if opts.set["lang"] {
		settings.SetLanguage(opts.lang)
	}
	if opts.set["parallel"] {
		settings.SetMaxParallelDownloads(opts.parallel)
	}
	if opts.set["reveal"] {
		settings.SetAutoRevealOnComplete(opts.reveal)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "%s v%s\n", AppName, version)
		return 0
	}

	configPath := opts.configPath
	if configPath == "" {
		if configPath, err = config.DefaultPath(); err != nil {
			fmt.Fprintf(stderr, "config: %v\n", err)
			return 1
		}
	}
	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	applyOverrides(settings, opts)
	values := settings.Values()

	catalog, err := l10n.New(settings.GetLanguage())
	if err != nil {
		fmt.Fprintf(stderr, "l10n: %v\n", err)
		return 1
	}

	logCfg := logging.Config{Dir: values.LogDir, Name: AppName, Level: logging.ParseLevel(values.LogLevel)}
	if opts.verbose {
		logCfg.Console = stderr
		logCfg.Level = slog.LevelDebug
	}
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 1
	}
	defer closer.Close()
	logger.Info("starting", "version", version, "config", configPath,
		"engine", settings.GetEngine(), "lang", catalog.Language())

	if opts.history > 0 {
		return showHistory(ctx, values.HistoryDB, opts.history, stdout, stderr)
	}

	requests, err := buildRequests(settings, opts, catalog, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(requests) == 0 {
		fmt.Fprintf(stderr, "Usage: %s [flags] <url>...\n", AppName)
		return 2
	}

	if opts.probe {
		return probeAll(ctx, requests, stdout, stderr, logger)
	}

	svcOpts := []download.ServiceOption{
		download.WithServiceLogger(logger),
		download.WithOrchestratorOptions(
			download.WithLocalizer(catalog),
			download.WithFilenameTemplate(settings.GetFilenameTemplate()),
		),
	}
	if values.HistoryDB != "" {
		db, err := history.Open(ctx, values.HistoryDB)
		if err != nil {
			logger.Warn("history disabled", "path", values.HistoryDB, "error", err)
		} else {
			defer db.Close()
			svcOpts = append(svcOpts, download.WithRecorder(history.NewRepository(db)))
		}
	}

	factory := engineFactory(settings.GetEngine(), values.YTDLPPath)
	svc := download.NewService(factory, settings.GetMaxParallelDownloads(), svcOpts...)
	svc.SetUpdateCallback(newPrinter(stdout).print)

	for _, req := range requests {
		if _, err := svc.AddTask(req); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", req.URL, err)
		}
	}

	if err := svc.Wait(ctx); err != nil {
		logger.Warn("interrupted, stopping downloads", "error", err)
		svc.Shutdown()
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		_ = svc.Wait(graceCtx)
		cancel()
	}

	return report(ctx, svc.GetAllTasks(), settings.GetAutoRevealOnComplete(), catalog, stdout, logger)
}

// buildRequests turns URLs or a JSON export into download requests
func buildRequests(settings *config.Settings, opts *cliOptions, catalog *l10n.Catalog, stdout io.Writer) ([]model.DownloadRequest, error) {
	base := model.DownloadRequest{
		DestinationDir: settings.GetDownloadDirectory(),
		Quality:        settings.GetQuality(),
		Codec:          settings.GetCodec(),
		Referrer:       opts.referrer,
		OutputName:     opts.name,
	}

	if opts.jsonFile == "" {
		reqs := make([]model.DownloadRequest, 0, len(opts.urls))
		for _, u := range opts.urls {
			req := base
			req.URL = u
			reqs = append(reqs, req)
		}
		return reqs, nil
	}

	doc, err := manifest.LoadFile(opts.jsonFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", catalog.Lookup(l10n.KeyErrorInvalidJSON, nil), err)
	}
	res := manifest.Locate(doc)
	if !res.Found() {
		return nil, fmt.Errorf("%s: %w", catalog.Lookup(l10n.KeyErrorManifestNotFound, nil), manifest.ErrManifestNotFound)
	}
	fmt.Fprintln(stdout, catalog.Lookup(l10n.KeyManifestLoaded, map[string]any{"Filename": opts.jsonFile}))

	req := base
	req.URL = res.ManifestURL
	if req.Referrer == "" {
		req.Referrer = res.Referrer
	}
	if req.OutputName == "" {
		req.OutputName = manifest.SuggestName(opts.jsonFile)
	}
	return []model.DownloadRequest{req}, nil
}

func engineFactory(name, ytdlpPath string) engine.Factory {
	if name == config.EngineNative {
		return native.NewFactory()
	}
	return dlp.NewFactory(ytdlpPath)
}

func probeAll(ctx context.Context, requests []model.DownloadRequest, stdout, stderr io.Writer, logger *slog.Logger) int {
	client := &http.Client{Timeout: manifest.DefaultProbeTimeout}
	code := 0
	for _, req := range requests {
		res, err := manifest.Probe(ctx, client, req.URL, req.Referrer)
		if err != nil {
			logger.Error("probe failed", "url", req.URL, "error", err)
			fmt.Fprintf(stderr, "%s: %v\n", req.URL, err)
			code = 1
			continue
		}
		fmt.Fprintln(stdout, req.URL)
		if !res.Master {
			fmt.Fprintf(stdout, "  media playlist: %d segments, target duration %.0fs\n", res.Segments, res.TargetDuration)
			continue
		}
		for _, v := range res.Variants {
			fmt.Fprintf(stdout, "  %8d bps  %-10s %-30s %s\n", v.Bandwidth, v.Resolution, v.Codecs, v.URI)
		}
	}
	return code
}

func showHistory(ctx context.Context, path string, limit int, stdout, stderr io.Writer) int {
	if path == "" {
		fmt.Fprintln(stderr, "history: no database configured")
		return 1
	}
	db, err := history.Open(ctx, path)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	defer db.Close()

	entries, err := history.NewRepository(db).Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(stderr, "history: %v\n", err)
		return 1
	}
	for _, e := range entries {
		result := e.FilePath
		if !e.Succeeded() {
			result = fmt.Sprintf("%s: %s", e.FailureKind, e.Error)
		}
		fmt.Fprintf(stdout, "%s  %-9s  %s  %s\n", e.FinishedAt.Format("2006-01-02 15:04"), e.State, e.URL, result)
	}
	return 0
}

// report prints final task results and returns the exit status
func report(ctx context.Context, tasks []*model.DownloadTask, reveal bool, catalog *l10n.Catalog, stdout io.Writer, logger *slog.Logger) int {
	code := 0
	for _, task := range tasks {
		if task.State != model.StateSucceeded {
			code = 1
			msg := task.LastError
			if msg == "" {
				msg = catalog.Lookup(l10n.KeyUnknown, nil)
			}
			fmt.Fprintf(stdout, "[%s] %s\n", shortID(task.ID), catalog.Lookup(l10n.KeyStatusError, map[string]any{"Error": msg}))
			continue
		}
		fmt.Fprintf(stdout, "[%s] %s (%s)\n", shortID(task.ID),
			catalog.Lookup(l10n.KeyStatusComplete, map[string]any{"Filename": task.OutputPath}), task.GetElapsedString())
		if reveal {
			if err := platform.OpenFileInManager(ctx, task.OutputPath); err != nil {
				logger.Warn("failed to reveal file", "file", task.OutputPath, "error", err)
			}
		}
	}
	return code
}

// printer writes one line per progress change, serialized across tasks
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	last map[string]string
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, last: make(map[string]string)}
}

func (p *printer) print(task *model.DownloadTask) {
	if task.State.IsFinished() {
		return
	}
	line := fmt.Sprintf("[%s] %5.1f%% %s", shortID(task.ID), task.Percent, task.Message)
	if task.Message == "" {
		line = fmt.Sprintf("[%s] %s %s", shortID(task.ID), task.State, task.Request.URL)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last[task.ID] == line {
		return
	}
	p.last[task.ID] = line
	fmt.Fprintln(p.w, strings.TrimRight(line, " "))
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "task-")
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

// Package dlp runs downloads through the yt-dlp executable using
// github.com/lrstanley/go-ytdlp.
package dlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/tidwall/gjson"

	"github.com/ytget/streamgrab/internal/engine"
)

// ProgressInterval is how often yt-dlp progress is forwarded to hooks
const ProgressInterval = 500 * time.Millisecond

// stderr fragments yt-dlp prints for the failures we classify
var (
	formatUnavailableMarkers = []string{
		"Requested format is not available",
	}
	extractionMarkers = []string{
		"Unsupported URL",
		"Unable to extract",
		"Unable to download webpage",
		"is not a valid URL",
		"ExtractorError",
		"Video unavailable",
		"Private video",
	}
)

// Engine is a yt-dlp engine bound to one set of options
type Engine struct {
	opts       engine.Options
	executable string
}

// NewFactory returns an engine.Factory; executable may be empty to use the
// yt-dlp found in PATH
func NewFactory(executable string) engine.Factory {
	return func(opts engine.Options) engine.Engine {
		return &Engine{opts: opts, executable: executable}
	}
}

// ExtractInfo runs yt-dlp for url and returns the printed info record
func (e *Engine) ExtractInfo(ctx context.Context, url string) (*engine.Info, error) {
	cmd := e.command()

	res, err := cmd.Run(ctx, url)
	if err != nil {
		var stderr string
		if res != nil {
			stderr = res.Stderr
		}
		return nil, Classify(err, stderr)
	}
	if res == nil {
		return nil, nil
	}

	info, err := ParseInfo(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrDownload, err)
	}
	if info == nil {
		return nil, nil
	}
	if pp, ok := e.opts.AudioTarget(); ok {
		info.Ext = pp.TargetCodec
	}
	return info, nil
}

// PrepareFilename returns the file name yt-dlp reported before post-processing
func (e *Engine) PrepareFilename(info *engine.Info) string {
	if info == nil {
		return ""
	}
	return info.Filename
}

func (e *Engine) command() *ytdlp.Command {
	cmd := ytdlp.New().
		Output(e.opts.OutputTemplate).
		PrintJSON()

	if e.executable != "" {
		cmd.SetExecutable(e.executable)
	}
	if e.opts.Format != "" {
		cmd.Format(e.opts.Format)
	}
	if e.opts.NoPlaylist {
		cmd.NoPlaylist()
	}
	if e.opts.Quiet {
		cmd.Quiet().NoWarnings()
	}
	for name, value := range e.opts.HTTPHeaders {
		cmd.AddHeaders(name + ":" + value)
	}
	if pp, ok := e.opts.AudioTarget(); ok {
		cmd.ExtractAudio().AudioFormat(pp.TargetCodec)
		if pp.TargetQuality != "" {
			cmd.AudioQuality(pp.TargetQuality + "K")
		}
	}
	if len(e.opts.ProgressHooks) > 0 {
		cmd.ProgressFunc(ProgressInterval, func(update ytdlp.ProgressUpdate) {
			e.opts.Emit(toEvent(update))
		})
	}
	return cmd
}

// toEvent converts a go-ytdlp update the same way the desktop service did:
// speed is averaged since the download started
func toEvent(update ytdlp.ProgressUpdate) engine.Event {
	ev := engine.Event{
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		ETA:             update.ETA(),
	}

	switch update.Status {
	case ytdlp.ProgressStatusFinished:
		ev.Status = engine.StatusFinished
	case ytdlp.ProgressStatusError:
		ev.Status = engine.StatusError
		ev.Error = "yt-dlp reported an error"
	default:
		ev.Status = engine.StatusDownloading
	}

	if !update.Started.IsZero() {
		if elapsed := time.Since(update.Started).Seconds(); elapsed > 0 {
			ev.Speed = float64(update.DownloadedBytes) / elapsed
		}
	}
	ev.Filename = update.Filename
	if ev.Filename == "" && update.Info != nil && update.Info.Filename != nil {
		ev.Filename = *update.Info.Filename
	}
	return ev
}

// ParseInfo reads the last JSON info record printed by yt-dlp. It returns
// nil when stdout carries no record.
func ParseInfo(stdout string) (*engine.Info, error) {
	var last string
	sc := bufio.NewScanner(strings.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "{") {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan output: %w", err)
	}
	if last == "" {
		return nil, nil
	}
	if !gjson.Valid(last) {
		return nil, errors.New("decode info: invalid JSON record")
	}

	rec := gjson.Parse(last)
	info := &engine.Info{
		Title:    rec.Get("title").String(),
		Ext:      rec.Get("ext").String(),
		Filename: rec.Get("filename").String(),
	}
	if info.Filename == "" {
		info.Filename = rec.Get("_filename").String()
	}
	// requested_downloads holds the merged output when formats were joined
	if reqs := rec.Get("requested_downloads").Array(); len(reqs) > 0 {
		if ext := reqs[len(reqs)-1].Get("ext").String(); ext != "" {
			info.Ext = ext
		}
	}
	return info, nil
}

// Classify maps a yt-dlp failure onto the engine sentinel errors
func Classify(err error, stderr string) error {
	text := stderr + "\n" + err.Error()
	switch {
	case containsAny(text, formatUnavailableMarkers):
		return fmt.Errorf("%w: %s", engine.ErrFormatUnavailable, lastLine(stderr, err))
	case containsAny(text, extractionMarkers):
		return fmt.Errorf("%w: %s", engine.ErrExtraction, lastLine(stderr, err))
	default:
		return fmt.Errorf("%w: %s", engine.ErrDownload, lastLine(stderr, err))
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// lastLine returns the last ERROR line of stderr, or err's text
func lastLine(stderr string, err error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); strings.HasPrefix(l, "ERROR:") {
			return l
		}
	}
	return err.Error()
}

// Package native downloads YouTube media in-process with
// github.com/ytget/ytdlp/v2, without an external yt-dlp binary.
//
// The library has no post-processing stage, so it cannot merge separate
// video and audio streams or transcode audio. Format queries are mapped
// to its single-stream selectors. Transcoding requests are rejected as
// unavailable formats unless the query is the plain "best" fallback, which
// downloads the best stream as-is and reports its real extension.
package native

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/streamgrab/internal/engine"
)

// Selector values understood by the library
const (
	SelectorBest = "best"
	ExtVideo     = "mp4"
	ExtAudio     = "m4a"
)

// Template fields substituted in output templates
const (
	fieldTitle = "%(title)s"
	fieldExt   = "%(ext)s"
)

// DefaultTimeout bounds the HTTP client used for metadata and media requests
const DefaultTimeout = 30 * time.Minute

var (
	heightRe = regexp.MustCompile(`height<=(\d+)`)
	unsafeRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

// Engine is an in-process engine bound to one set of options
type Engine struct {
	opts engine.Options
}

// NewFactory returns an engine.Factory backed by the native library
func NewFactory() engine.Factory {
	return func(opts engine.Options) engine.Engine {
		return &Engine{opts: opts}
	}
}

// ExtractInfo resolves metadata for url and downloads the selected stream
func (e *Engine) ExtractInfo(ctx context.Context, url string) (*engine.Info, error) {
	if err := CheckTranscode(e.opts); err != nil {
		return nil, err
	}

	selector, ext := Selector(e.opts.Format)
	dl := ytdlp.New().
		WithFormat(selector, ext).
		WithHTTPClient(e.httpClient())

	mediaURL, vi, err := dl.ResolveURL(ctx, url)
	if err != nil {
		return nil, Classify(err)
	}
	if vi == nil {
		return nil, nil
	}
	if chosen := ExtForURL(vi.Formats, mediaURL); chosen != "" {
		ext = chosen
	}

	path := Render(e.opts.OutputTemplate, vi.Title, ext)
	var total int64
	dl = dl.WithOutputPath(path).WithProgress(func(p ytdlp.Progress) {
		total = p.TotalSize
		e.opts.Emit(engine.Event{
			Status:          engine.StatusDownloading,
			DownloadedBytes: p.DownloadedSize,
			TotalBytes:      p.TotalSize,
			Filename:        path,
		})
	})
	if _, err := dl.Download(ctx, url); err != nil {
		e.opts.Emit(engine.Event{Status: engine.StatusError, Filename: path, Error: err.Error()})
		return nil, Classify(err)
	}
	e.opts.Emit(engine.Event{
		Status:          engine.StatusFinished,
		DownloadedBytes: total,
		TotalBytes:      total,
		Filename:        path,
	})

	return &engine.Info{Title: vi.Title, Ext: ext, Filename: path}, nil
}

// PrepareFilename returns the path the stream was written to
func (e *Engine) PrepareFilename(info *engine.Info) string {
	if info == nil {
		return ""
	}
	return info.Filename
}

func (e *Engine) httpClient() *http.Client {
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
		MaxIdleConns:      100,
		IdleConnTimeout:   90 * time.Second,
	}
	var rt http.RoundTripper = transport
	if len(e.opts.HTTPHeaders) > 0 {
		rt = &headerTransport{base: transport, headers: e.opts.HTTPHeaders}
	}
	return &http.Client{Transport: rt, Timeout: DefaultTimeout}
}

// headerTransport adds fixed headers to every outgoing request
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for name, value := range t.headers {
		req.Header.Set(name, value)
	}
	return t.base.RoundTrip(req)
}

// CheckTranscode rejects audio conversions the library cannot perform. The
// "best" query is accepted so a fallback attempt keeps the original stream.
func CheckTranscode(opts engine.Options) error {
	pp, ok := opts.AudioTarget()
	if !ok || pp.TargetCodec == ExtAudio {
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), SelectorBest) {
		return nil
	}
	return fmt.Errorf("%w: %s transcoding is not supported", engine.ErrFormatUnavailable, pp.TargetCodec)
}

// Selector maps a yt-dlp style format query onto a library selector and
// preferred extension
func Selector(query string) (string, string) {
	q := strings.ToLower(query)
	if m := heightRe.FindStringSubmatch(q); m != nil {
		return "height<=" + m[1], ExtVideo
	}
	if strings.HasPrefix(q, "bestaudio") {
		return SelectorBest, ExtAudio
	}
	return SelectorBest, ExtVideo
}

// ExtForURL finds the format whose itag appears in mediaURL and returns its
// file extension, or "" when none matches
func ExtForURL(formats []ytdlp.Format, mediaURL string) string {
	for _, f := range formats {
		if strings.Contains(mediaURL, "itag="+strconv.Itoa(f.Itag)+"&") ||
			strings.HasSuffix(mediaURL, "itag="+strconv.Itoa(f.Itag)) {
			return ExtFromMime(f.MimeType)
		}
	}
	return ""
}

// ExtFromMime returns the file extension for a media MIME type
func ExtFromMime(mime string) string {
	base := strings.TrimSpace(mime)
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "":
		return ExtVideo
	case "audio/mp4":
		return ExtAudio
	case "video/webm", "audio/webm":
		return "webm"
	}
	if _, sub, ok := strings.Cut(base, "/"); ok && sub != "" {
		return sub
	}
	return ExtVideo
}

// Render fills the title and extension fields of an output template
func Render(template, title, ext string) string {
	title = SanitizeTitle(title)
	return strings.NewReplacer(fieldTitle, title, fieldExt, ext).Replace(template)
}

// SanitizeTitle makes a title safe to use as a file name
func SanitizeTitle(title string) string {
	s := strings.TrimSpace(unsafeRe.ReplaceAllString(title, "_"))
	s = strings.Trim(s, ". ")
	if s == "" {
		return "video"
	}
	return s
}

var (
	formatMarkers     = []string{"no suitable format"}
	extractionMarkers = []string{
		"extract video id",
		"player response",
		"unavailable",
		"private",
		"age",
		"geo",
		"login",
		"parse formats",
	}
)

// Classify maps a library error onto the engine sentinel errors
func Classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, formatMarkers):
		return fmt.Errorf("%w: %v", engine.ErrFormatUnavailable, err)
	case strings.HasPrefix(msg, "download failed"):
		return fmt.Errorf("%w: %v", engine.ErrDownload, err)
	case containsAny(msg, extractionMarkers):
		return fmt.Errorf("%w: %v", engine.ErrExtraction, err)
	default:
		return fmt.Errorf("%w: %v", engine.ErrDownload, err)
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

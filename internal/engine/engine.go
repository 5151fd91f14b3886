package engine

import (
	"context"
	"errors"
	"maps"
	"slices"
)

// DesktopUserAgent is sent together with a Referer header
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Post-processor kinds
const (
	PostProcessorExtractAudio = "FFmpegExtractAudio"
)

// HTTP header names attached to engine requests
const (
	HeaderReferer   = "Referer"
	HeaderUserAgent = "User-Agent"
)

var (
	// ErrFormatUnavailable means the format query matched no stream
	ErrFormatUnavailable = errors.New("requested format is not available")
	// ErrExtraction means the engine could not extract metadata from the page
	ErrExtraction = errors.New("extraction failed")
	// ErrDownload means the media transfer itself failed
	ErrDownload = errors.New("download failed")
)

// PostProcessor is a directive applied after the raw stream is retrieved
type PostProcessor struct {
	Kind          string
	TargetCodec   string
	TargetQuality string // kbps
}

// Hook receives raw engine events
type Hook func(Event)

// Options configures a single engine invocation
type Options struct {
	OutputTemplate string
	Format         string
	PostProcessors []PostProcessor
	HTTPHeaders    map[string]string
	ProgressHooks  []Hook
	NoPlaylist     bool
	Quiet          bool
}

// Clone returns a deep copy so a retry can change the format without touching
// the options of the first attempt
func (o Options) Clone() Options {
	c := o
	c.PostProcessors = slices.Clone(o.PostProcessors)
	c.ProgressHooks = slices.Clone(o.ProgressHooks)
	if o.HTTPHeaders != nil {
		c.HTTPHeaders = maps.Clone(o.HTTPHeaders)
	}
	return c
}

// Emit delivers an event to every registered hook
func (o Options) Emit(ev Event) {
	for _, h := range o.ProgressHooks {
		if h != nil {
			h(ev)
		}
	}
}

// AudioTarget returns the codec of the audio extraction directive, if any
func (o Options) AudioTarget() (PostProcessor, bool) {
	for _, pp := range o.PostProcessors {
		if pp.Kind == PostProcessorExtractAudio && pp.TargetCodec != "" {
			return pp, true
		}
	}
	return PostProcessor{}, false
}

// Info is the metadata record returned by a finished engine run
type Info struct {
	Title string
	// Ext is the final container extension, after post-processing
	Ext string
	// Filename is the path computed before post-processing
	Filename string
}

// Engine performs one download for a fixed set of options
type Engine interface {
	// ExtractInfo downloads url and returns its metadata record. A nil record
	// with a nil error means the engine produced nothing.
	ExtractInfo(ctx context.Context, url string) (*Info, error)
	// PrepareFilename returns the output filename the engine computed for info
	PrepareFilename(info *Info) string
}

// Factory builds an engine bound to opts
type Factory func(opts Options) Engine

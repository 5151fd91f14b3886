package progress

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/streamgrab/internal/engine"
	"github.com/ytget/streamgrab/internal/l10n"
	"github.com/ytget/streamgrab/internal/logging"
)

type call struct {
	percent float64
	message string
}

func newTranslator(t *testing.T) *Translator {
	t.Helper()
	loc, err := l10n.New("en")
	require.NoError(t, err)
	return NewTranslator(loc, logging.Discard())
}

func TestFormatSize(t *testing.T) {
	tr := newTranslator(t)
	tests := []struct {
		bytes float64
		want  string
	}{
		{0, "0.00 B"},
		{500, "500.00 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1 << 40, "1.00 TB"},
		{1 << 50, "1.00 PB"},
		{1 << 60, "1024.00 PB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.FormatSize(tt.bytes))
	}
}

func TestFormatSizeRussianUnits(t *testing.T) {
	tr := NewTranslator(l10n.MustNew("ru"), nil)
	assert.Equal(t, "500.00 Б", tr.FormatSize(500))
	assert.Equal(t, "1.00 ГБ", tr.FormatSize(1024*1024*1024))
}

func TestFormatTime(t *testing.T) {
	tr := newTranslator(t)
	assert.Equal(t, "30 sec", tr.FormatTime(30))
	assert.Equal(t, "1 min 30 sec", tr.FormatTime(90))
	assert.Equal(t, "1 hr 1 min", tr.FormatTime(3661))
	assert.Equal(t, "59 min 59 sec", tr.FormatTime(3599))
	assert.Equal(t, "Unknown", tr.FormatTime(0))
}

func TestFormatSpeed(t *testing.T) {
	tr := newTranslator(t)
	assert.Equal(t, "2.00 MB/s", tr.FormatSpeed(2*1024*1024))
	assert.Equal(t, "Unknown", tr.FormatSpeed(0))
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name string
		ev   engine.Event
		want float64
	}{
		{"known total", engine.Event{DownloadedBytes: 50, TotalBytes: 200}, 25},
		{"estimate", engine.Event{DownloadedBytes: 50, TotalBytesEstimate: 100}, 50},
		{"total wins over estimate", engine.Event{DownloadedBytes: 50, TotalBytes: 100, TotalBytesEstimate: 1000}, 50},
		{"nothing known", engine.Event{DownloadedBytes: 50}, 0},
		{"negative total", engine.Event{DownloadedBytes: 50, TotalBytes: -1}, 0},
		{"estimate overshoot", engine.Event{DownloadedBytes: 150, TotalBytesEstimate: 100}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percent(tt.ev), 0.0001)
		})
	}
}

func TestHookSequence(t *testing.T) {
	tr := newTranslator(t)
	var calls []call
	hook := tr.Hook(func(p float64, m string) { calls = append(calls, call{p, m}) })

	hook(engine.Event{
		Status:          engine.StatusDownloading,
		DownloadedBytes: 512,
		TotalBytes:      1024,
		Speed:           1024,
		ETA:             90 * time.Second,
		Filename:        "/tmp/out/Video.f137.mp4",
	})
	hook(engine.Event{Status: engine.StatusError, Error: "HTTP Error 403: Forbidden"})
	hook(engine.Event{Status: engine.StatusFinished, Filename: "/tmp/out/Video.f137.mp4"})

	require.Len(t, calls, 3)
	assert.Equal(t, call{50, "Downloading: 50.0% - 1.00 KB/s - ETA: 1 min 30 sec"}, calls[0])
	assert.Equal(t, call{50, "Error: HTTP Error 403: Forbidden"}, calls[1])
	assert.Equal(t, call{100, "Processing file: Video.f137.mp4"}, calls[2])
}

func TestHookUnknownSpeedAndETA(t *testing.T) {
	tr := newTranslator(t)
	var got call
	hook := tr.Hook(func(p float64, m string) { got = call{p, m} })

	hook(engine.Event{Status: engine.StatusDownloading, DownloadedBytes: 10})
	assert.Equal(t, call{0, "Downloading: 0.0% - Unknown - ETA: Unknown"}, got)
}

func TestHookIgnoresUnknownStatus(t *testing.T) {
	tr := newTranslator(t)
	called := false
	hook := tr.Hook(func(float64, string) { called = true })

	hook(engine.Event{Status: engine.Status("post_processing")})
	assert.False(t, called)
}

type panicHandler struct{}

func (panicHandler) Enabled(context.Context, slog.Level) bool { return true }

func (panicHandler) Handle(context.Context, slog.Record) error { panic("disk full") }

func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h panicHandler) WithGroup(string) slog.Handler { return h }

func TestHookSurvivesBrokenLogger(t *testing.T) {
	tr := NewTranslator(l10n.MustNew("en"), slog.New(panicHandler{}))
	var calls int
	hook := tr.Hook(func(float64, string) { calls++ })

	assert.NotPanics(t, func() {
		hook(engine.Event{Status: engine.StatusDownloading, TotalBytes: 10, DownloadedBytes: 5})
		hook(engine.Event{Status: engine.StatusFinished, Filename: "a.mp4"})
	})
	assert.Equal(t, 2, calls)
}

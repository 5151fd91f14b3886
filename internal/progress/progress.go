// Package progress turns raw engine events into normalized (percent, message)
// pairs with localized units.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ytget/streamgrab/internal/engine"
	"github.com/ytget/streamgrab/internal/l10n"
)

const (
	unitStep       = 1024.0
	speedSuffix    = "/s"
	percentMax     = 100.0
	secondsPerMin  = 60
	secondsPerHour = 3600
)

// Sink receives normalized progress
type Sink func(percent float64, message string)

// Localizer renders user-facing messages
type Localizer interface {
	Lookup(key string, data map[string]any) string
}

// Translator builds engine hooks that feed a Sink
type Translator struct {
	loc    Localizer
	logger *slog.Logger
}

// NewTranslator creates a translator; logger may be nil
func NewTranslator(loc Localizer, logger *slog.Logger) *Translator {
	return &Translator{loc: loc, logger: logger}
}

// Hook returns an engine hook for one download. The hook remembers the last
// reported percent so error events can repeat it.
func (t *Translator) Hook(sink Sink) engine.Hook {
	var last float64
	return func(ev engine.Event) {
		switch ev.Status {
		case engine.StatusDownloading:
			last = Percent(ev)
			t.log(slog.LevelDebug, "download progress",
				"file", filepath.Base(ev.Filename), "percent", last, "speed", ev.Speed, "eta", ev.ETA)
			sink(last, t.loc.Lookup(l10n.KeyStatusDownloading, map[string]any{
				"Progress": fmt.Sprintf("%.1f", last),
				"Speed":    t.FormatSpeed(ev.Speed),
				"ETA":      t.FormatTime(int(ev.ETA.Seconds())),
			}))
		case engine.StatusFinished:
			name := filepath.Base(ev.Filename)
			last = percentMax
			t.log(slog.LevelInfo, "file download finished, post-processing started", "file", name)
			sink(last, t.loc.Lookup(l10n.KeyStatusProcessing, map[string]any{"Filename": name}))
		case engine.StatusError:
			t.log(slog.LevelError, "engine reported error", "error", ev.Error)
			sink(last, t.loc.Lookup(l10n.KeyStatusError, map[string]any{"Error": ev.Error}))
		default:
			t.log(slog.LevelDebug, "ignored engine event", "status", string(ev.Status))
		}
	}
}

// Percent computes completion from known or estimated totals, 0 if neither
// is positive
func Percent(ev engine.Event) float64 {
	var p float64
	switch {
	case ev.TotalBytes > 0:
		p = float64(ev.DownloadedBytes) / float64(ev.TotalBytes) * percentMax
	case ev.TotalBytesEstimate > 0:
		p = float64(ev.DownloadedBytes) / float64(ev.TotalBytesEstimate) * percentMax
	}
	return min(max(p, 0), percentMax)
}

// FormatSize renders a byte count with two decimals on the B..PB ladder
func (t *Translator) FormatSize(bytes float64) string {
	units := []string{l10n.KeyUnitBytes, l10n.KeyUnitKB, l10n.KeyUnitMB, l10n.KeyUnitGB, l10n.KeyUnitTB}
	for _, unit := range units {
		if bytes < unitStep {
			return fmt.Sprintf("%.2f %s", bytes, t.loc.Lookup(unit, nil))
		}
		bytes /= unitStep
	}
	return fmt.Sprintf("%.2f %s", bytes, t.loc.Lookup(l10n.KeyUnitPB, nil))
}

// FormatSpeed renders a throughput, or the unknown placeholder
func (t *Translator) FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return t.loc.Lookup(l10n.KeyUnknown, nil)
	}
	return t.FormatSize(bytesPerSecond) + speedSuffix
}

// FormatTime renders seconds as "N sec", "M min S sec" or "H hr M min"
func (t *Translator) FormatTime(seconds int) string {
	switch {
	case seconds <= 0:
		return t.loc.Lookup(l10n.KeyUnknown, nil)
	case seconds < secondsPerMin:
		return t.loc.Lookup(l10n.KeyTimeSeconds, map[string]any{"Seconds": seconds})
	case seconds < secondsPerHour:
		return t.loc.Lookup(l10n.KeyTimeMinutesSeconds, map[string]any{
			"Minutes": seconds / secondsPerMin,
			"Seconds": seconds % secondsPerMin,
		})
	default:
		return t.loc.Lookup(l10n.KeyTimeHoursMinutes, map[string]any{
			"Hours":   seconds / secondsPerHour,
			"Minutes": seconds % secondsPerHour / secondsPerMin,
		})
	}
}

// log never lets a broken handler abort translation
func (t *Translator) log(level slog.Level, msg string, args ...any) {
	if t.logger == nil {
		return
	}
	defer func() { _ = recover() }()
	t.logger.Log(context.Background(), level, msg, args...)
}

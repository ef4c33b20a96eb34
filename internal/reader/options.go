package reader

import (
	"log/slog"

	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/zoom"
)

// StatsRecorder is the interface accepted by the readers for counting what
// happened to each entry. The pipeline's Stats implements it.
type StatsRecorder interface {
	RecordDecoded(pos danmaku.Position)
	RecordIgnored()
	RecordUnknownType(mode int64)
	RecordInvalid()
	RecordBlocked(pos danmaku.Position)
}

type nopStats struct{}

func (nopStats) RecordDecoded(danmaku.Position) {}
func (nopStats) RecordIgnored()                 {}
func (nopStats) RecordUnknownType(int64)        {}
func (nopStats) RecordInvalid()                 {}
func (nopStats) RecordBlocked(danmaku.Position) {}

// Options configures a single read.
type Options struct {
	// FontSize is the configured base font size; normal comment sizes are
	// scaled by FontSize/25.
	FontSize float64
	// Zoom maps special comment coordinates into stage space.
	Zoom  zoom.Factor
	Block danmaku.BlockOptions
	// Log receives per-entry warnings. Nil means slog.Default().
	Log *slog.Logger
	// Stats receives per-entry counts. Nil disables counting.
	Stats StatsRecorder
}

func (o Options) logger(format string) *slog.Logger {
	l := o.Log
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "reader", "format", format)
}

func (o Options) stats() StatsRecorder {
	if o.Stats == nil {
		return nopStats{}
	}
	return o.Stats
}

// scaledSize converts a raw source size to output pixels.
func (o Options) scaledSize(raw int64) float64 {
	return float64(raw) * o.FontSize / 25
}

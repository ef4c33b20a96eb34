package ass

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/zoom"
)

// StyleName is the single style every Dialogue line refers to.
const StyleName = "biliass"

// Writer accumulates an ASS script in memory. It is not safe for
// concurrent use; the layout phase drives it sequentially.
type Writer struct {
	log            *slog.Logger
	opts           danmaku.ConversionOptions
	zoom           zoom.Factor
	bottomReserved uint
	buf            strings.Builder
}

// NewWriter creates a Writer for the given options. factor maps special
// comment coordinates and font sizes onto the stage. If log is nil,
// slog.Default() is used.
func NewWriter(opts danmaku.ConversionOptions, factor zoom.Factor, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{
		log:            log.With("component", "ass-writer"),
		opts:           opts,
		zoom:           factor,
		bottomReserved: opts.BottomReserved(),
	}
}

// WriteHeader appends the script info, the style definition and the
// events format line.
func (w *Writer) WriteHeader() {
	alpha := opacityAlpha(w.opts.TextOpacity)
	outline := math.Max(w.opts.FontSize/25, 1)
	width, height := w.opts.StageWidth, w.opts.StageHeight

	fmt.Fprintf(&w.buf, `[Script Info]
; Script generated by biliass (based on Danmaku2ASS)
; https://github.com/yutto-dev/yutto/tree/main/packages/biliass
Script Updated By: biliass (https://github.com/yutto-dev/yutto/tree/main/packages/biliass)
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
Aspect Ratio: %d:%d
Collisions: Normal
WrapStyle: 2
ScaledBorderAndShadow: yes
YCbCr Matrix: TV.601

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: %s, %s, %.0f, &H%02XFFFFFF, &H%02XFFFFFF, &H%02X000000, &H%02X000000, 0, 0, 0, 0, 100, 100, 0.00, 0.00, 1, %.0f, 0, 7, 0, 0, 0, 0

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`,
		width, height, width, height,
		StyleName, w.opts.FontFace, w.opts.FontSize,
		alpha, alpha, alpha, alpha,
		outline,
	)
}

// WriteNormal appends the Dialogue line of a non-special comment placed at
// row.
func (w *Writer) WriteNormal(c *danmaku.Comment, row int) error {
	p, err := c.Normal()
	if err != nil {
		return err
	}

	width := w.opts.StageWidth
	var tags strings.Builder
	var duration float64
	switch c.Position {
	case danmaku.Bottom:
		fmt.Fprintf(&tags, `\an8\pos(%d, %d)`, width/2, row)
		duration = w.opts.DurationStill
	case danmaku.Top:
		fmt.Fprintf(&tags, `\an2\pos(%d, %d)`, width/2, w.topRow(row))
		duration = w.opts.DurationStill
	case danmaku.Reversed:
		fmt.Fprintf(&tags, `\move(%d, %d, %d, %d)`, negLength(p.Width), row, width, row)
		duration = w.opts.DurationMarquee
	default:
		fmt.Fprintf(&tags, `\move(%d, %d, %d, %d)`, width, row, negLength(p.Width), row)
		duration = w.opts.DurationMarquee
	}
	if d := c.Size - w.opts.FontSize; d <= -1 || d >= 1 {
		fmt.Fprintf(&tags, `\fs%.0f`, c.Size)
	}
	w.writeColor(&tags, c.Color)

	fmt.Fprintf(&w.buf, "Dialogue: 2,%s,%s,%s,,0000,0000,0000,,{%s}%s\n",
		FormatTimestamp(c.Timeline),
		FormatTimestamp(c.Timeline+duration),
		StyleName,
		tags.String(),
		Escape(c.Content),
	)
	return nil
}

// topRow converts a row counted from the top into the baseline of a
// bottom-anchored line.
func (w *Writer) topRow(row int) int {
	return int(w.opts.StageHeight) - int(w.bottomReserved) - row
}

func negLength(width float64) int {
	return -int(math.Ceil(width))
}

func (w *Writer) writeColor(tags *strings.Builder, color uint32) {
	if color == 0xFFFFFF {
		return
	}
	fmt.Fprintf(tags, `\c&H%s&`, ConvertColor(color, w.opts.StageWidth, w.opts.StageHeight))
	if color == 0x000000 {
		tags.WriteString(`\3c&HFFFFFF&`)
	}
}

// WriteSpecial appends the animated Dialogue line of a special comment.
func (w *Writer) WriteSpecial(c *danmaku.Comment) error {
	p, err := c.Special()
	if err != nil {
		return err
	}

	width := float64(w.opts.StageWidth)
	height := float64(w.opts.StageHeight)
	from := FlashRotation(w.log, float64(p.RotateY), float64(p.RotateZ), p.FromX, p.FromY, width, height)
	to := FlashRotation(w.log, float64(p.RotateY), float64(p.RotateZ), p.ToX, p.ToY, width, height)

	var tags strings.Builder
	fmt.Fprintf(&tags, `\org(%d, %d)`, w.opts.StageWidth/2, w.opts.StageHeight/2)
	if from.X == to.X && from.Y == to.Y {
		fmt.Fprintf(&tags, `\pos(%.0f, %.0f)`, from.X, from.Y)
	} else {
		fmt.Fprintf(&tags, `\move(%.0f, %.0f, %.0f, %.0f, %d, %d)`,
			from.X, from.Y, to.X, to.Y, p.Delay, p.Delay+p.Duration)
	}
	writeRotation(&tags, from)
	if p.FromX != p.ToX || p.FromY != p.ToY {
		fmt.Fprintf(&tags, `\t(%d, %d, `, p.Delay, p.Delay+p.Duration)
		writeRotation(&tags, to)
		tags.WriteString(")")
	}
	if p.FontFace != "" {
		tags.WriteString(`\fn` + Escape(p.FontFace))
	}
	fmt.Fprintf(&tags, `\fs%.0f`, c.Size*w.zoom.Scale)
	w.writeColor(&tags, c.Color)

	lifetimeMs := p.Lifetime * 1000
	switch {
	case p.FromAlpha == p.ToAlpha:
		fmt.Fprintf(&tags, `\alpha&H%02X`, p.FromAlpha)
	case p.FromAlpha == 255 && p.ToAlpha == 0:
		fmt.Fprintf(&tags, `\fad(%.0f,0)`, lifetimeMs)
	case p.FromAlpha == 0 && p.ToAlpha == 255:
		fmt.Fprintf(&tags, `\fad(0, %.0f)`, lifetimeMs)
	default:
		fmt.Fprintf(&tags, `\fade(%d, %d, %d, 0, %.0f, %.0f, %.0f)`,
			p.FromAlpha, p.ToAlpha, p.ToAlpha, lifetimeMs, lifetimeMs, lifetimeMs)
	}
	if !p.Border {
		tags.WriteString(`\bord0`)
	}

	fmt.Fprintf(&w.buf, "Dialogue: -1,%s,%s,%s,,0,0,0,,{%s}%s\n",
		FormatTimestamp(c.Timeline),
		FormatTimestamp(c.Timeline+p.Lifetime),
		StyleName,
		tags.String(),
		Escape(c.Content),
	)
	return nil
}

func writeRotation(tags *strings.Builder, t Transform) {
	fmt.Fprintf(tags, `\frx%.0f\fry%.0f\frz%.0f\fscx%.0f\fscy%.0f`,
		t.RotX, t.RotY, t.RotZ, t.ScaleX, t.ScaleY)
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// String returns the accumulated script.
func (w *Writer) String() string {
	return w.buf.String()
}

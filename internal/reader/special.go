package reader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/zoom"
)

// Positional fields of a special comment body.
const (
	argFromX    = 0
	argFromY    = 1
	argAlpha    = 2
	argLifetime = 3
	argText     = 4
	argRotateZ  = 5
	argRotateY  = 6
	argToX      = 7
	argToY      = 8
	argDuration = 9
	argDelay    = 10
	argBorder   = 11
	argFontFace = 12
)

const (
	defaultAlpha    = "1-1"
	defaultLifetime = 4500
	defaultFontFace = "sans-serif"
)

// args walks the positional fields of a special comment. The first field
// error sticks; later lookups return their defaults.
type args struct {
	items []gjson.Result
	err   error
}

type fieldParser[T any] func(v gjson.Result, def T) (T, error)

func arg[T any](a *args, idx int, name string, def T, parse fieldParser[T]) T {
	if a.err != nil || idx >= len(a.items) {
		return def
	}
	v, err := parse(a.items[idx], def)
	if err != nil {
		a.err = &danmaku.ParseError{
			Format: danmaku.FormatSpecial,
			Field:  name,
			Index:  -1,
			Offset: -1,
			Err:    err,
		}
		return def
	}
	return v
}

func fieldType(v gjson.Result, want string) error {
	return fmt.Errorf("%w: want %s, got %s", danmaku.ErrFieldType, want, v.Type)
}

func parseFloat(v gjson.Result, def float64) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return def, nil
		}
		return f, nil
	case gjson.Null:
		return def, nil
	}
	return def, fieldType(v, "number")
}

func parseInt(v gjson.Result, def int64) (int64, error) {
	f, err := parseFloat(v, float64(def))
	if err != nil {
		return def, err
	}
	return truncate(f), nil
}

// parseString accepts strings and the literal text of numbers.
func parseString(v gjson.Result, def string) (string, error) {
	switch v.Type {
	case gjson.String:
		return v.Str, nil
	case gjson.Number:
		return v.Raw, nil
	case gjson.Null:
		return def, nil
	}
	return def, fieldType(v, "string")
}

// parseBorder treats false, 0 and "false" as off.
func parseBorder(v gjson.Result, def bool) (bool, error) {
	switch v.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.Number:
		return v.Num != 0, nil
	case gjson.String:
		return v.Str != "false", nil
	case gjson.Null:
		return def, nil
	}
	return def, fieldType(v, "boolean")
}

// truncate converts toward zero, saturating at the int64 range. NaN is 0.
func truncate(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// alphaByte converts an opacity in [0,1] to an ASS alpha byte, where 0 is
// opaque. Out-of-range opacities saturate.
func alphaByte(opacity float64) uint8 {
	v := math.Round(opacity * 255)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 255
	case v >= 255:
		return 0
	}
	return 255 - uint8(v)
}

// parseAlpha splits a "from-to" opacity pair. An unparsable start is 1, an
// unparsable end falls back to the start and a missing end is 1.
func parseAlpha(pair string) (from, to uint8) {
	parts := strings.Split(pair, "-")
	fromOpacity, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		fromOpacity = 1
	}
	toOpacity := 1.0
	if len(parts) > 1 {
		toOpacity, err = strconv.ParseFloat(parts[1], 64)
		if err != nil {
			toOpacity = fromOpacity
		}
	}
	return alphaByte(fromOpacity), alphaByte(toOpacity)
}

// ParseSpecial decodes the JSON array body of a special comment. It returns
// the display text with "/n" escapes expanded and the animation payload
// with positions mapped through factor.
//
// Errors are *danmaku.ParseError values wrapping ErrInvalidJSON,
// ErrNotArray, ErrMissingText or ErrFieldType.
func ParseSpecial(content string, factor zoom.Factor) (string, danmaku.SpecialPayload, error) {
	fail := func(field string, err error) (string, danmaku.SpecialPayload, error) {
		return "", danmaku.SpecialPayload{}, &danmaku.ParseError{
			Format: danmaku.FormatSpecial,
			Field:  field,
			Index:  -1,
			Offset: -1,
			Err:    err,
		}
	}

	if !gjson.Valid(content) {
		return fail("", danmaku.ErrInvalidJSON)
	}
	root := gjson.Parse(content)
	if !root.IsArray() {
		return fail("", danmaku.ErrNotArray)
	}
	a := &args{items: root.Array()}

	if len(a.items) <= argText || a.items[argText].Type != gjson.String {
		return fail("text", danmaku.ErrMissingText)
	}
	text := UnescapeNewline(a.items[argText].Str)

	fromX := arg(a, argFromX, "from_x", 0, parseFloat)
	fromY := arg(a, argFromY, "from_y", 0, parseFloat)
	toX := arg(a, argToX, "to_x", fromX, parseFloat)
	toY := arg(a, argToY, "to_y", fromY, parseFloat)
	alpha := arg(a, argAlpha, "alpha", defaultAlpha, parseString)
	rotateZ := arg(a, argRotateZ, "rotate_z", 0, parseInt)
	rotateY := arg(a, argRotateY, "rotate_y", 0, parseInt)
	lifetime := arg(a, argLifetime, "lifetime", defaultLifetime, parseFloat)
	duration := arg(a, argDuration, "duration", truncate(lifetime*1000), parseInt)
	delay := arg(a, argDelay, "delay", 0, parseInt)
	border := arg(a, argBorder, "border", true, parseBorder)
	fontFace := arg(a, argFontFace, "font_face", defaultFontFace, parseString)
	if a.err != nil {
		return "", danmaku.SpecialPayload{}, a.err
	}

	fromAlpha, toAlpha := parseAlpha(alpha)
	return text, danmaku.SpecialPayload{
		RotateY:   rotateY,
		RotateZ:   rotateZ,
		FromX:     factor.Position(fromX, false),
		FromY:     factor.Position(fromY, true),
		ToX:       factor.Position(toX, false),
		ToY:       factor.Position(toY, true),
		FromAlpha: fromAlpha,
		ToAlpha:   toAlpha,
		Delay:     delay,
		Duration:  duration,
		Lifetime:  lifetime,
		FontFace:  fontFace,
		Border:    border,
	}, nil
}

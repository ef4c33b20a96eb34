package danmaku

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// BlockOptions selects comments to drop. Position toggles are applied by
// the readers before an entry's body is decoded; Colorful and the keyword
// patterns are applied after all inputs are merged.
//
// Values are copied, never mutated: WithKeywords returns a new value.
type BlockOptions struct {
	Top      bool
	Bottom   bool
	Scroll   bool
	Reversed bool
	Special  bool
	// Colorful drops every comment that is not pure white.
	Colorful bool

	keywords []*regexp.Regexp
}

// WithKeywords returns a copy of o that also drops comments whose content
// matches any of patterns. Empty patterns are ignored. An invalid pattern
// yields a *ConfigError wrapping ErrInvalidPattern.
func (o BlockOptions) WithKeywords(patterns ...string) (BlockOptions, error) {
	compiled := make([]*regexp.Regexp, 0, len(o.keywords)+len(patterns))
	compiled = append(compiled, o.keywords...)
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return BlockOptions{}, &ConfigError{
				Field: "block_keyword_patterns",
				Value: p,
				Err:   fmt.Errorf("%w: %v", ErrInvalidPattern, err),
			}
		}
		compiled = append(compiled, re)
	}
	o.keywords = compiled
	return o, nil
}

// Blocks reports whether comments at pos are dropped before parsing.
func (o BlockOptions) Blocks(pos Position) bool {
	switch pos {
	case Top:
		return o.Top
	case Bottom:
		return o.Bottom
	case Scroll:
		return o.Scroll
	case Reversed:
		return o.Reversed
	case Special:
		return o.Special
	}
	return false
}

// HasKeywords reports whether any keyword pattern is configured.
func (o BlockOptions) HasKeywords() bool {
	return len(o.keywords) > 0
}

// MatchesKeyword reports whether content matches a keyword pattern.
func (o BlockOptions) MatchesKeyword(content string) bool {
	for _, re := range o.keywords {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// ConversionOptions configures stage geometry, typography and timing of a
// conversion run.
type ConversionOptions struct {
	StageWidth  uint
	StageHeight uint
	// DisplayRegionRatio is the fraction of the stage height usable by
	// comments; the rest is reserved at the bottom.
	DisplayRegionRatio float64
	FontFace           string
	FontSize           float64
	// TextOpacity is in [0,1]; 1 is opaque.
	TextOpacity     float64
	DurationMarquee float64
	DurationStill   float64
	// ReduceComments drops comments that find no free row instead of
	// force-placing them.
	ReduceComments bool
}

// DefaultConversionOptions returns the defaults of the command line tool
// for a width×height stage.
func DefaultConversionOptions(width, height uint) ConversionOptions {
	return ConversionOptions{
		StageWidth:         width,
		StageHeight:        height,
		DisplayRegionRatio: 1,
		FontFace:           "sans-serif",
		FontSize:           25,
		TextOpacity:        1,
		DurationMarquee:    5,
		DurationStill:      5,
	}
}

// BottomReserved returns the number of pixel rows kept free at the bottom
// of the stage.
func (o ConversionOptions) BottomReserved() uint {
	r := float64(o.StageHeight) * (1 - o.DisplayRegionRatio)
	if r <= 0 || math.IsNaN(r) {
		return 0
	}
	if r > float64(o.StageHeight) {
		return o.StageHeight
	}
	return uint(r)
}

// Validate returns a *ConfigError for the first invalid field.
func (o ConversionOptions) Validate() error {
	bad := func(field, value, why string) error {
		return &ConfigError{Field: field, Value: value, Err: fmt.Errorf("%w: %s", ErrInvalidOption, why)}
	}
	ftoa := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

	switch {
	case o.StageWidth == 0:
		return bad("stage_width", "0", "must be positive")
	case o.StageHeight == 0:
		return bad("stage_height", "0", "must be positive")
	case !(o.DisplayRegionRatio >= 0 && o.DisplayRegionRatio <= 1):
		return bad("display_region_ratio", ftoa(o.DisplayRegionRatio), "must be within [0, 1]")
	case !(o.FontSize > 0):
		return bad("font_size", ftoa(o.FontSize), "must be positive")
	case !(o.TextOpacity >= 0 && o.TextOpacity <= 1):
		return bad("text_opacity", ftoa(o.TextOpacity), "must be within [0, 1]")
	case !(o.DurationMarquee > 0):
		return bad("duration_marquee", ftoa(o.DurationMarquee), "must be positive")
	case !(o.DurationStill > 0):
		return bad("duration_still", ftoa(o.DurationStill), "must be positive")
	}
	return nil
}

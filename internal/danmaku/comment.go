package danmaku

import (
	"cmp"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Position selects both the layout strategy and the markup shape of a
// comment. The numeric order is part of the sort key, and the first four
// values index the per-category row pools.
type Position int

const (
	Scroll Position = iota
	Bottom
	Top
	Reversed
	Special
)

// RowCategories is the number of positions that go through row layout.
const RowCategories = 4

func (p Position) String() string {
	switch p {
	case Scroll:
		return "scroll"
	case Bottom:
		return "bottom"
	case Top:
		return "top"
	case Reversed:
		return "reversed"
	case Special:
		return "special"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

// IsMoving reports whether comments at this position travel horizontally.
func (p Position) IsMoving() bool {
	return p == Scroll || p == Reversed
}

// PositionFromMode maps a source type code to a Position. ok is false for
// codes that do not describe a renderable comment; ignored is true for the
// scripted code 8, which callers drop silently.
func PositionFromMode(mode int64) (pos Position, ok bool, ignored bool) {
	switch mode {
	case 1:
		return Scroll, true, false
	case 4:
		return Top, true, false
	case 5:
		return Bottom, true, false
	case 6:
		return Reversed, true, false
	case 7:
		return Special, true, false
	case 8:
		return 0, false, true
	default:
		return 0, false, false
	}
}

// Payload is the position-dependent part of a Comment. It is implemented
// only by NormalPayload and SpecialPayload.
type Payload interface {
	payloadKind() string
}

// NormalPayload holds the estimated pixel dimensions of the rendered text.
// The estimate is monospace: height is lines×size and width is the rune
// count of the longest line ×size.
type NormalPayload struct {
	Height float64
	Width  float64
}

func (NormalPayload) payloadKind() string { return "normal" }

// SpecialPayload holds decoded animation parameters of a scripted comment.
// Coordinates are already mapped into stage space.
type SpecialPayload struct {
	RotateY int64
	RotateZ int64

	FromX float64
	FromY float64
	ToX   float64
	ToY   float64

	// 0 is fully opaque, 255 fully transparent.
	FromAlpha uint8
	ToAlpha   uint8

	Delay    int64   // ms before the motion starts
	Duration int64   // ms of active motion
	Lifetime float64 // seconds on screen

	FontFace string
	Border   bool
}

func (SpecialPayload) payloadKind() string { return "special" }

// Comment is one decoded danmaku entry.
type Comment struct {
	// Timeline is the playback time in seconds at which the comment appears.
	Timeline float64
	// Timestamp is the unix submission time; used only as a sort tie-break.
	Timestamp uint64
	// Seq increases with decode order within one input.
	Seq      uint64
	Content  string
	Position Position
	// Color is 0xRRGGBB.
	Color uint32
	// Size is the font size in output pixels for normal comments and the raw
	// source size for special comments.
	Size    float64
	Payload Payload
}

// NewNormal builds a non-special comment and computes its text metrics from
// content and size.
func NewNormal(timeline float64, timestamp, seq uint64, content string, pos Position, color uint32, size float64) Comment {
	return Comment{
		Timeline:  timeline,
		Timestamp: timestamp,
		Seq:       seq,
		Content:   content,
		Position:  pos,
		Color:     color,
		Size:      size,
		Payload: NormalPayload{
			Height: float64(strings.Count(content, "\n")+1) * size,
			Width:  float64(LongestLine(content)) * size,
		},
	}
}

// NewSpecial builds a special comment around an already decoded payload.
func NewSpecial(timeline float64, timestamp, seq uint64, content string, color uint32, size float64, data SpecialPayload) Comment {
	return Comment{
		Timeline:  timeline,
		Timestamp: timestamp,
		Seq:       seq,
		Content:   content,
		Position:  Special,
		Color:     color,
		Size:      size,
		Payload:   data,
	}
}

// Normal returns the normal payload, or ErrPayloadMismatch if the comment is
// special or its payload does not agree with its position.
func (c *Comment) Normal() (NormalPayload, error) {
	p, ok := c.Payload.(NormalPayload)
	if !ok || c.Position == Special {
		return NormalPayload{}, c.mismatch("normal")
	}
	return p, nil
}

// Special returns the special payload, or ErrPayloadMismatch.
func (c *Comment) Special() (SpecialPayload, error) {
	p, ok := c.Payload.(SpecialPayload)
	if !ok || c.Position != Special {
		return SpecialPayload{}, c.mismatch("special")
	}
	return p, nil
}

// Validate checks that the payload tag agrees with the position.
func (c *Comment) Validate() error {
	if c.Position == Special {
		_, err := c.Special()
		return err
	}
	_, err := c.Normal()
	return err
}

func (c *Comment) mismatch(want string) error {
	got := "nil"
	if c.Payload != nil {
		got = c.Payload.payloadKind()
	}
	return fmt.Errorf("%w: comment %d at %s wants %s payload, has %s",
		ErrPayloadMismatch, c.Seq, c.Position, want, got)
}

// LongestLine returns the rune count of the longest newline-separated line.
func LongestLine(s string) int {
	longest := 0
	for line := range strings.SplitSeq(s, "\n") {
		if n := utf8.RuneCountInString(line); n > longest {
			longest = n
		}
	}
	return longest
}

// Compare orders comments by timeline, timestamp, sequence, content,
// position, color and size, in that order. It is antisymmetric, so it can
// drive a deterministic sort of merged shards.
func Compare(a, b *Comment) int {
	if c := cmp.Compare(a.Timeline, b.Timeline); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	if c := strings.Compare(a.Content, b.Content); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Color, b.Color); c != 0 {
		return c
	}
	return cmp.Compare(a.Size, b.Size)
}

package ass

import (
	"fmt"
	"math"
	"strings"
)

// FormatTimestamp formats seconds as H:MM:SS.CC, CC being hundredths.
// Negative times clamp to zero.
func FormatTimestamp(seconds float64) string {
	cs := int64(math.Round(seconds * 100))
	if cs < 0 {
		cs = 0
	}
	hour := cs / 360000
	cs %= 360000
	minute := cs / 6000
	cs %= 6000
	second := cs / 100
	cs %= 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hour, minute, second, cs)
}

var braceEscaper = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`)

// figureSpace survives renderer whitespace collapsing.
const figureSpace = "\u2007"

// Escape makes s safe as Dialogue text: override braces and backslashes
// are escaped, edge spaces of each line become figure spaces, and lines
// are joined with the \N hard break.
func Escape(s string) string {
	lines := strings.Split(braceEscaper.Replace(s), "\n")
	for i, line := range lines {
		line = keepEdgeSpaces(line)
		if line == "" {
			line = " "
		}
		lines[i] = line
	}
	return strings.Join(lines, `\N`)
}

func keepEdgeSpaces(line string) string {
	trimmed := strings.Trim(line, " ")
	if len(trimmed) == len(line) {
		return line
	}
	left := len(line) - len(strings.TrimLeft(line, " "))
	right := len(line) - len(strings.TrimRight(line, " "))
	return strings.Repeat(figureSpace, left) + trimmed + strings.Repeat(figureSpace, right)
}

// Stages at or above this size get BT.601 to BT.709 correction.
const (
	colorReferenceWidth  = 1280
	colorReferenceHeight = 576
)

// ConvertColor formats 0xRRGGBB as the BBGGRR hex used by ASS colour tags.
// For stages of at least the reference resolution the colour is also
// corrected from BT.601 to BT.709, since the renderer assumes the former.
// Black and white are returned verbatim.
func ConvertColor(rgb uint32, width, height uint) string {
	switch rgb {
	case 0x000000:
		return "000000"
	case 0xFFFFFF:
		return "FFFFFF"
	}
	r := float64((rgb >> 16) & 0xFF)
	g := float64((rgb >> 8) & 0xFF)
	b := float64(rgb & 0xFF)
	if width < colorReferenceWidth && height < colorReferenceHeight {
		return fmt.Sprintf("%02X%02X%02X", int(b), int(g), int(r))
	}
	return fmt.Sprintf("%02X%02X%02X",
		clipByte(r*0.00956384088080656+g*0.03217254540203729+b*0.95826361371715607),
		clipByte(r*-0.10493933142075390+g*1.17231478191855154+b*-0.06737545049779757),
		clipByte(r*0.91348912373987645+g*0.07858536372532510+b*0.00792551253479842),
	)
}

func clipByte(x float64) int {
	switch {
	case x > 255:
		return 255
	case x < 0:
		return 0
	default:
		return int(math.Round(x))
	}
}

// opacityAlpha converts an opacity in [0,1] to an ASS alpha byte, where 0
// is opaque.
func opacityAlpha(opacity float64) uint8 {
	v := math.Round(opacity * 255)
	switch {
	case v <= 0:
		return 255
	case v >= 255:
		return 0
	default:
		return 255 - uint8(v)
	}
}

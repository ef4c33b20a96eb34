package reader

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zsiec/biliass/internal/danmaku"
)

// Field positions inside the p attribute of a version 1.0 <d> element.
const (
	pTime = iota
	pMode
	pSize
	pColor
	pTimestamp
	pMinFields
)

var (
	xmlDecl     = regexp.MustCompile(`^\s*<\?xml\s([^?]*)\?>`)
	declVersion = regexp.MustCompile(`\bversion\s*=\s*["']([^"']*)["']`)
	declCharset = regexp.MustCompile(`\bencoding\s*=\s*["']([^"']*)["']`)
)

type declaration struct {
	present  bool
	version  string
	encoding string
}

func scanDeclaration(b []byte) declaration {
	m := xmlDecl.FindSubmatch(b)
	if m == nil {
		return declaration{}
	}
	d := declaration{present: true}
	if v := declVersion.FindSubmatch(m[1]); v != nil {
		d.version = string(v[1])
	}
	if e := declCharset.FindSubmatch(m[1]); e != nil {
		d.encoding = string(e[1])
	}
	return d
}

// decodeText transcodes an XML document to UTF-8. A byte order mark wins
// over the declared encoding; without either the input is taken as UTF-8
// and invalid sequences become U+FFFD.
func decodeText(data []byte) (string, error) {
	fallback := unicode.UTF8.NewDecoder()
	if label := scanDeclaration(data).encoding; label != "" {
		enc, name := charset.Lookup(label)
		if enc == nil {
			return "", &danmaku.DecodeError{
				Format: danmaku.FormatXML,
				Offset: -1,
				Err:    fmt.Errorf("unsupported encoding %q", label),
			}
		}
		if name != "utf-8" {
			fallback = enc.NewDecoder()
		}
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", &danmaku.DecodeError{Format: danmaku.FormatXML, Offset: -1, Err: err}
	}
	return string(out), nil
}

// ReadXML decodes a danmaku XML document.
//
// The document must carry an XML declaration before the first <d> element.
// Version "1.0" is decoded; version "2.0" is recognized but unsupported and
// fails the whole input, as does any other version. Each <d> element counts
// toward sequence numbering, including elements that are skipped.
func ReadXML(data []byte, opts Options) ([]danmaku.Comment, error) {
	log := opts.logger(danmaku.FormatXML)

	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	text = xmlCharacters(Sanitize(text))

	decl := scanDeclaration([]byte(text))
	if decl.present {
		switch decl.version {
		case "1.0":
		case "2.0":
			return nil, versionError(danmaku.ErrUnsupportedVersion, decl.version)
		case "":
			return nil, versionError(danmaku.ErrNoVersion, "")
		default:
			return nil, versionError(danmaku.ErrUnknownVersion, decl.version)
		}
	}

	dec := xml.NewDecoder(strings.NewReader(text))
	// The text is already UTF-8 whatever the declaration says.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		comments []danmaku.Comment
		seq      uint64
	)
	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &danmaku.DecodeError{Format: danmaku.FormatXML, Offset: dec.InputOffset(), Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "d" {
			continue
		}
		if !decl.present {
			return nil, &danmaku.ParseError{
				Format: danmaku.FormatXML,
				Field:  "version",
				Index:  int64(seq),
				Offset: offset,
				Err:    danmaku.ErrNoVersion,
			}
		}

		content, hasText, err := elementText(dec)
		if err != nil {
			return nil, &danmaku.DecodeError{Format: danmaku.FormatXML, Offset: dec.InputOffset(), Err: err}
		}
		e := xmlEntry{
			seq:     seq,
			offset:  offset,
			start:   start,
			content: content,
			hasText: hasText,
		}
		seq++

		c, keep, err := e.parse(opts)
		if err != nil {
			if errors.Is(err, danmaku.ErrUnknownType) {
				opts.stats().RecordUnknownType(e.mode)
			} else {
				opts.stats().RecordInvalid()
			}
			log.Warn("skipping comment", "index", e.seq, "offset", offset, "error", err)
			continue
		}
		if keep {
			opts.stats().RecordDecoded(c.Position)
			comments = append(comments, c)
		}
	}

	log.Debug("xml read", "elements", seq, "comments", len(comments))
	return comments, nil
}

// xmlCharacters replaces the noncharacters U+FFFE and U+FFFF, which the
// tokenizer rejects outright, so one bad comment body cannot fail the
// document.
func xmlCharacters(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\uFFFE' || r == '\uFFFF' {
			return utf8.RuneError
		}
		return r
	}, s)
}

func versionError(err error, version string) error {
	return &danmaku.ParseError{
		Format: danmaku.FormatXML,
		Field:  "version",
		Index:  -1,
		Offset: -1,
		Err:    fmt.Errorf("%w: %q", err, version),
	}
}

// elementText consumes tokens up to the end of the element just started and
// returns its direct character data.
func elementText(dec *xml.Decoder) (string, bool, error) {
	var (
		b       strings.Builder
		hasText bool
	)
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return "", false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				b.Write(t)
				hasText = true
			}
		}
	}
	return b.String(), hasText, nil
}

type xmlEntry struct {
	seq     uint64
	offset  int64
	start   xml.StartElement
	content string
	hasText bool
	mode    int64
}

func (e *xmlEntry) fail(field string, err error) error {
	return &danmaku.ParseError{
		Format: danmaku.FormatXML,
		Field:  field,
		Index:  int64(e.seq),
		Offset: e.offset,
		Err:    err,
	}
}

func (e *xmlEntry) attr(name string) (string, bool) {
	for _, a := range e.start.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// parse decodes one <d> element. keep is false for entries that are
// dropped without being an error: scripted entries and blocked positions.
func (e *xmlEntry) parse(opts Options) (c danmaku.Comment, keep bool, err error) {
	raw, ok := e.attr("p")
	if !ok {
		return c, false, e.fail("p", danmaku.ErrMissingAttribute)
	}
	if !e.hasText {
		return c, false, e.fail("text", danmaku.ErrMissingText)
	}
	fields := strings.Split(raw, ",")
	if len(fields) < pMinFields {
		return c, false, e.fail("p", fmt.Errorf("%w: %q has %d, want %d", danmaku.ErrTooFewFields, raw, len(fields), pMinFields))
	}

	// Codes are matched as exact decimal text; "01" and "+1" are unknown.
	mode, err := strconv.ParseInt(fields[pMode], 10, 64)
	if err != nil || strconv.FormatInt(mode, 10) != fields[pMode] {
		return c, false, e.fail("type", fmt.Errorf("%w: %q", danmaku.ErrUnknownType, fields[pMode]))
	}
	e.mode = mode
	pos, ok, ignored := danmaku.PositionFromMode(mode)
	if ignored {
		opts.stats().RecordIgnored()
		return c, false, nil
	}
	if !ok {
		return c, false, e.fail("type", fmt.Errorf("%w: %d", danmaku.ErrUnknownType, mode))
	}

	timeline, err := strconv.ParseFloat(fields[pTime], 64)
	if err != nil {
		return c, false, e.fail("time", err)
	}
	timestamp, err := strconv.ParseUint(fields[pTimestamp], 10, 64)
	if err != nil {
		return c, false, e.fail("timestamp", err)
	}
	if opts.Block.Blocks(pos) {
		opts.stats().RecordBlocked(pos)
		return c, false, nil
	}
	color, err := strconv.ParseUint(fields[pColor], 10, 32)
	if err != nil {
		return c, false, e.fail("color", err)
	}
	size, err := strconv.ParseInt(fields[pSize], 10, 32)
	if err != nil {
		return c, false, e.fail("size", err)
	}

	if pos != danmaku.Special {
		return danmaku.NewNormal(timeline, timestamp, e.seq, UnescapeNewline(e.content),
			pos, uint32(color), opts.scaledSize(size)), true, nil
	}
	text, data, err := ParseSpecial(e.content, opts.Zoom)
	if err != nil {
		return c, false, e.fail("special", err)
	}
	return danmaku.NewSpecial(timeline, timestamp, e.seq, text, uint32(color), float64(size), data), true, nil
}

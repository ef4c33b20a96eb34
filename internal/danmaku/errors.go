package danmaku

import (
	"errors"
	"fmt"
)

// Sentinel errors for conversion failures. Callers distinguish them with
// errors.Is; the typed errors below wrap them with location context.
var (
	ErrNoVersion          = errors.New("danmaku: comment element before XML version declaration")
	ErrUnknownVersion     = errors.New("danmaku: unknown XML version")
	ErrUnsupportedVersion = errors.New("danmaku: XML version not supported")
	ErrTooFewFields       = errors.New("danmaku: too few fields")
	ErrMissingAttribute   = errors.New("danmaku: missing attribute")
	ErrMissingText        = errors.New("danmaku: missing comment text")
	ErrUnknownType        = errors.New("danmaku: unknown comment type")
	ErrNotArray           = errors.New("danmaku: special comment is not an array")
	ErrInvalidJSON        = errors.New("danmaku: special comment is not valid JSON")
	ErrFieldType          = errors.New("danmaku: unexpected field type")
	ErrPayloadMismatch    = errors.New("danmaku: payload does not match position")
	ErrInvalidPattern     = errors.New("danmaku: invalid keyword pattern")
	ErrInvalidOption      = errors.New("danmaku: invalid option")
)

// Input formats named in errors.
const (
	FormatXML      = "xml"
	FormatProtobuf = "protobuf"
	FormatSpecial  = "special"
)

// DecodeError reports an envelope that could not be decoded at all: bytes
// that are not a valid protobuf message or a malformed XML token stream.
// It is fatal to the whole input.
type DecodeError struct {
	Format string
	// Offset is the byte position of the failure, or -1 if unknown.
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("danmaku: decode %s at byte %d: %v", e.Format, e.Offset, e.Err)
	}
	return fmt.Sprintf("danmaku: decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ParseError reports a structurally valid input whose content could not be
// interpreted. Readers return it for whole-input failures and log it for
// per-entry failures before skipping the entry.
type ParseError struct {
	Format string
	Field  string
	// Index is the entry number within the input, or -1 for whole-input errors.
	Index int64
	// Offset is the byte position, or -1 if unknown.
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	msg := "danmaku: parse " + e.Format
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (entry %d", e.Index)
		if e.Offset >= 0 {
			msg += fmt.Sprintf(", byte %d", e.Offset)
		}
		msg += ")"
	} else if e.Offset >= 0 {
		msg += fmt.Sprintf(" (byte %d)", e.Offset)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigError reports an invalid option, detected before any parsing.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("danmaku: config %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Package dmproto decodes the danmaku segment messages served by the
// bilibili comment API: DmSegMobileReply, a list of DanmakuElem entries,
// and DmWebViewReply, whose segment configuration tells how many segments
// a video has.
//
// The schema is a fixed external contract, so the codec works directly on
// the protobuf wire format. Unknown fields are skipped.
package dmproto

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a known field arrives with a wire type that
// does not match the schema.
var ErrWireType = errors.New("dmproto: unexpected wire type")

// ErrInvalidUTF8 is returned when a string field is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("dmproto: invalid UTF-8 in string field")

// FieldError locates a decoding failure inside a message.
type FieldError struct {
	Message string
	Field   protowire.Number
	// Offset is the byte position of the failing field within the buffer
	// passed to the top-level decode function.
	Offset int
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("dmproto: %s field %d at byte %d: %v", e.Message, e.Field, e.Offset, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// DanmakuElem is one comment entry.
type DanmakuElem struct {
	ID        int64
	Progress  int32 // ms into the video
	Mode      int32
	FontSize  int32
	Color     uint32
	MidHash   string
	Content   string
	Ctime     int64 // unix seconds
	Weight    int32
	Action    string
	Pool      int32
	IDStr     string
	Attr      int32
	Animation string
}

// DmSegMobileReply is one segment of comments.
type DmSegMobileReply struct {
	Elems []DanmakuElem
	State int32
}

// Field numbers of DmSegMobileReply.
const (
	segElems protowire.Number = 1
	segState protowire.Number = 2
)

// Field numbers of DanmakuElem.
const (
	elemID        protowire.Number = 1
	elemProgress  protowire.Number = 2
	elemMode      protowire.Number = 3
	elemFontSize  protowire.Number = 4
	elemColor     protowire.Number = 5
	elemMidHash   protowire.Number = 6
	elemContent   protowire.Number = 7
	elemCtime     protowire.Number = 8
	elemWeight    protowire.Number = 9
	elemAction    protowire.Number = 10
	elemPool      protowire.Number = 11
	elemIDStr     protowire.Number = 12
	elemAttr      protowire.Number = 13
	elemAnimation protowire.Number = 22
)

// Field numbers of DmWebViewReply and DmSegConfig.
const (
	viewSegConfig protowire.Number = 4
	segConfTotal  protowire.Number = 2
)

// fieldFunc handles one field of a message. b holds exactly the field's
// value bytes for length-delimited fields, or is nil for varints.
type fieldFunc func(num protowire.Number, typ protowire.Type, v uint64, b []byte) error

// walk iterates the fields of a message, calling fn for varint and
// length-delimited fields and skipping everything else. base is the offset
// of buf within the top-level buffer, for error reporting.
func walk(message string, buf []byte, base int, fn fieldFunc) error {
	for off := 0; off < len(buf); {
		num, typ, n := protowire.ConsumeTag(buf[off:])
		if n < 0 {
			return &FieldError{Message: message, Offset: base + off, Err: protowire.ParseError(n)}
		}
		start := off
		off += n

		var err error
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(buf[off:])
			if m < 0 {
				return &FieldError{Message: message, Field: num, Offset: base + start, Err: protowire.ParseError(m)}
			}
			off += m
			err = fn(num, typ, v, nil)
		case protowire.BytesType:
			b, m := protowire.ConsumeBytes(buf[off:])
			if m < 0 {
				return &FieldError{Message: message, Field: num, Offset: base + start, Err: protowire.ParseError(m)}
			}
			err = fn(num, typ, 0, b)
			if fe, ok := err.(*FieldError); ok {
				// nested message errors already carry their own offset
				fe.Offset += base + off + (m - len(b))
				return fe
			}
			off += m
		default:
			m := protowire.ConsumeFieldValue(num, typ, buf[off:])
			if m < 0 {
				return &FieldError{Message: message, Field: num, Offset: base + start, Err: protowire.ParseError(m)}
			}
			off += m
			err = fn(num, typ, 0, nil)
		}
		if err != nil {
			return &FieldError{Message: message, Field: num, Offset: base + start, Err: err}
		}
	}
	return nil
}

func expect(typ, want protowire.Type) error {
	if typ != want {
		return fmt.Errorf("%w: got %d, want %d", ErrWireType, typ, want)
	}
	return nil
}

func str(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// UnmarshalSegment decodes a DmSegMobileReply.
func UnmarshalSegment(buf []byte) (*DmSegMobileReply, error) {
	reply := &DmSegMobileReply{}
	err := walk("DmSegMobileReply", buf, 0, func(num protowire.Number, typ protowire.Type, v uint64, b []byte) error {
		switch num {
		case segElems:
			if err := expect(typ, protowire.BytesType); err != nil {
				return err
			}
			elem, err := unmarshalElem(b)
			if err != nil {
				return err
			}
			reply.Elems = append(reply.Elems, elem)
		case segState:
			if err := expect(typ, protowire.VarintType); err != nil {
				return err
			}
			reply.State = int32(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func unmarshalElem(buf []byte) (DanmakuElem, error) {
	var e DanmakuElem
	err := walk("DanmakuElem", buf, 0, func(num protowire.Number, typ protowire.Type, v uint64, b []byte) error {
		var err error
		switch num {
		case elemID, elemProgress, elemMode, elemFontSize, elemColor, elemCtime, elemWeight, elemPool, elemAttr:
			if err := expect(typ, protowire.VarintType); err != nil {
				return err
			}
		case elemMidHash, elemContent, elemAction, elemIDStr, elemAnimation:
			if err := expect(typ, protowire.BytesType); err != nil {
				return err
			}
		}
		switch num {
		case elemID:
			e.ID = int64(v)
		case elemProgress:
			e.Progress = int32(v)
		case elemMode:
			e.Mode = int32(v)
		case elemFontSize:
			e.FontSize = int32(v)
		case elemColor:
			e.Color = uint32(v)
		case elemMidHash:
			e.MidHash, err = str(b)
		case elemContent:
			e.Content, err = str(b)
		case elemCtime:
			e.Ctime = int64(v)
		case elemWeight:
			e.Weight = int32(v)
		case elemAction:
			e.Action, err = str(b)
		case elemPool:
			e.Pool = int32(v)
		case elemIDStr:
			e.IDStr, err = str(b)
		case elemAttr:
			e.Attr = int32(v)
		case elemAnimation:
			e.Animation, err = str(b)
		}
		return err
	})
	return e, err
}

// SegmentCount decodes a DmWebViewReply and returns the total number of
// comment segments declared in its segment configuration. A reply without
// a segment configuration yields 0.
func SegmentCount(buf []byte) (int64, error) {
	var total int64
	err := walk("DmWebViewReply", buf, 0, func(num protowire.Number, typ protowire.Type, _ uint64, b []byte) error {
		if num != viewSegConfig {
			return nil
		}
		if err := expect(typ, protowire.BytesType); err != nil {
			return err
		}
		return walk("DmSegConfig", b, 0, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) error {
			if num != segConfTotal {
				return nil
			}
			if err := expect(typ, protowire.VarintType); err != nil {
				return err
			}
			total = int64(v)
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

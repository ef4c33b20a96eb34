// Package dmprototest builds wire-format danmaku messages for tests.
package dmprototest

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/zsiec/biliass/internal/dmproto"
)

// Field numbers of the fixed bilibili schema.
const (
	SegElems protowire.Number = 1
	segState protowire.Number = 2

	elemID        protowire.Number = 1
	elemProgress  protowire.Number = 2
	ElemMode      protowire.Number = 3
	elemFontSize  protowire.Number = 4
	elemColor     protowire.Number = 5
	elemMidHash   protowire.Number = 6
	ElemContent   protowire.Number = 7
	elemCtime     protowire.Number = 8
	elemWeight    protowire.Number = 9
	elemAction    protowire.Number = 10
	elemPool      protowire.Number = 11
	elemIDStr     protowire.Number = 12
	elemAttr      protowire.Number = 13
	elemAnimation protowire.Number = 22

	viewSegConfig   protowire.Number = 4
	segConfPageSize protowire.Number = 1
	segConfTotal    protowire.Number = 2
)

// Segment encodes a DmSegMobileReply. Zero-valued scalar fields are
// omitted, as proto3 does.
func Segment(r *dmproto.DmSegMobileReply) []byte {
	var buf []byte
	for i := range r.Elems {
		buf = protowire.AppendTag(buf, SegElems, protowire.BytesType)
		buf = protowire.AppendBytes(buf, Elem(&r.Elems[i]))
	}
	return appendVarint(buf, segState, uint64(int64(r.State)))
}

// Elems encodes a segment holding elems.
func Elems(elems ...dmproto.DanmakuElem) []byte {
	return Segment(&dmproto.DmSegMobileReply{Elems: elems})
}

// Elem encodes one DanmakuElem.
func Elem(e *dmproto.DanmakuElem) []byte {
	var buf []byte
	buf = appendVarint(buf, elemID, uint64(e.ID))
	buf = appendVarint(buf, elemProgress, uint64(int64(e.Progress)))
	buf = appendVarint(buf, ElemMode, uint64(int64(e.Mode)))
	buf = appendVarint(buf, elemFontSize, uint64(int64(e.FontSize)))
	buf = appendVarint(buf, elemColor, uint64(e.Color))
	buf = appendString(buf, elemMidHash, e.MidHash)
	buf = appendString(buf, ElemContent, e.Content)
	buf = appendVarint(buf, elemCtime, uint64(e.Ctime))
	buf = appendVarint(buf, elemWeight, uint64(int64(e.Weight)))
	buf = appendString(buf, elemAction, e.Action)
	buf = appendVarint(buf, elemPool, uint64(int64(e.Pool)))
	buf = appendString(buf, elemIDStr, e.IDStr)
	buf = appendVarint(buf, elemAttr, uint64(int64(e.Attr)))
	buf = appendString(buf, elemAnimation, e.Animation)
	return buf
}

// WebView encodes a DmWebViewReply carrying only the segment
// configuration.
func WebView(pageSize, total int64) []byte {
	var conf []byte
	conf = appendVarint(conf, segConfPageSize, uint64(pageSize))
	conf = appendVarint(conf, segConfTotal, uint64(total))

	buf := protowire.AppendTag(nil, viewSegConfig, protowire.BytesType)
	return protowire.AppendBytes(buf, conf)
}

func appendVarint(buf []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendString(buf []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, s)
}

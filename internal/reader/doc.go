// Package reader turns raw danmaku inputs into danmaku.Comment values.
//
// Two envelopes are supported: the XML document served by the legacy
// comment API and the protobuf DmSegMobileReply segment. Both funnel into
// the same per-entry rules: position toggles are applied before an entry's
// body is decoded, type 8 (scripted) entries are dropped silently, unknown
// types and malformed entries are logged and skipped, and special (type 7)
// bodies are decoded by ParseSpecial.
//
// Entry-level failures never abort a read. Envelope-level failures are
// returned as *danmaku.DecodeError or *danmaku.ParseError.
package reader

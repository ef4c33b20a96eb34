// Package ass renders danmaku comments as Advanced SubStation Alpha
// markup: the script header, one Dialogue line per placed comment, and
// the animation tags of special comments.
//
// The scalar helpers ([FormatTimestamp], [Escape], [ConvertColor],
// [FlashRotation]) produce exactly the numeric and textual forms the
// renderer expects and are usable on their own.
package ass

package reader

import (
	"errors"

	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/dmproto"
)

// ReadProtobuf decodes one DmSegMobileReply segment. An envelope that is not
// a valid message fails with *danmaku.DecodeError; entries are then handled
// one by one and the entry index is the sequence number.
func ReadProtobuf(data []byte, opts Options) ([]danmaku.Comment, error) {
	log := opts.logger(danmaku.FormatProtobuf)
	stats := opts.stats()

	reply, err := dmproto.UnmarshalSegment(data)
	if err != nil {
		offset := int64(-1)
		var fe *dmproto.FieldError
		if errors.As(err, &fe) {
			offset = int64(fe.Offset)
		}
		return nil, &danmaku.DecodeError{Format: danmaku.FormatProtobuf, Offset: offset, Err: err}
	}

	comments := make([]danmaku.Comment, 0, len(reply.Elems))
	for i := range reply.Elems {
		elem := &reply.Elems[i]
		pos, ok, ignored := danmaku.PositionFromMode(int64(elem.Mode))
		switch {
		case ignored:
			stats.RecordIgnored()
			continue
		case !ok:
			stats.RecordUnknownType(int64(elem.Mode))
			log.Warn("unknown comment type", "index", i, "mode", elem.Mode)
			continue
		case opts.Block.Blocks(pos):
			stats.RecordBlocked(pos)
			continue
		}

		timeline := float64(elem.Progress) / 1000
		timestamp := uint64(elem.Ctime)
		seq := uint64(i)

		if pos != danmaku.Special {
			content := UnescapeNewline(Sanitize(elem.Content))
			c := danmaku.NewNormal(timeline, timestamp, seq, content, pos, elem.Color, opts.scaledSize(int64(elem.FontSize)))
			stats.RecordDecoded(pos)
			comments = append(comments, c)
			continue
		}

		text, data, err := ParseSpecial(Sanitize(elem.Content), opts.Zoom)
		if err != nil {
			stats.RecordInvalid()
			log.Warn("skipping special comment", "index", i, "error", err, "content", elem.Content)
			continue
		}
		stats.RecordDecoded(pos)
		comments = append(comments, danmaku.NewSpecial(timeline, timestamp, seq, text, elem.Color, float64(elem.FontSize), data))
	}

	log.Debug("protobuf read", "elems", len(reply.Elems), "comments", len(comments))
	return comments, nil
}

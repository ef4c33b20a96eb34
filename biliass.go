// Package biliass converts bilibili danmaku into Advanced SubStation Alpha
// subtitles.
//
// Inputs are either XML documents from the legacy comment API or protobuf
// DmSegMobileReply segments. Several inputs of one format can be converted
// together; they are decoded in parallel and merged into one script.
//
//	opts := biliass.DefaultConversionOptions(1920, 1080)
//	script, err := biliass.XMLToASS(ctx, [][]byte{xmlData}, opts, biliass.BlockOptions{})
package biliass

import (
	"context"

	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/dmproto"
	"github.com/zsiec/biliass/internal/pipeline"
	"github.com/zsiec/biliass/internal/reader"
)

type (
	ConversionOptions = danmaku.ConversionOptions
	BlockOptions      = danmaku.BlockOptions
	DecodeError       = danmaku.DecodeError
	ParseError        = danmaku.ParseError
	ConfigError       = danmaku.ConfigError
	Stats             = pipeline.Snapshot
)

// Sentinel errors, for use with errors.Is.
var (
	ErrNoVersion          = danmaku.ErrNoVersion
	ErrUnknownVersion     = danmaku.ErrUnknownVersion
	ErrUnsupportedVersion = danmaku.ErrUnsupportedVersion
	ErrInvalidPattern     = danmaku.ErrInvalidPattern
	ErrInvalidOption      = danmaku.ErrInvalidOption
)

// DefaultConversionOptions returns the command line defaults for a
// width×height stage.
func DefaultConversionOptions(width, height uint) ConversionOptions {
	return danmaku.DefaultConversionOptions(width, height)
}

// XMLToASS converts XML danmaku documents.
func XMLToASS(ctx context.Context, inputs [][]byte, opts ConversionOptions, block BlockOptions) (string, error) {
	return pipeline.Convert(ctx, inputs, reader.ReadXML, opts, block)
}

// ProtobufToASS converts protobuf danmaku segments.
func ProtobufToASS(ctx context.Context, inputs [][]byte, opts ConversionOptions, block BlockOptions) (string, error) {
	return pipeline.Convert(ctx, inputs, reader.ReadProtobuf, opts, block)
}

// ProtobufToASSWithStats is ProtobufToASS that also reports what happened
// to the comments.
func ProtobufToASSWithStats(ctx context.Context, inputs [][]byte, opts ConversionOptions, block BlockOptions) (string, Stats, error) {
	return pipeline.ConvertWithStats(ctx, inputs, reader.ReadProtobuf, opts, block)
}

// XMLToASSWithStats is XMLToASS that also reports what happened to the
// comments.
func XMLToASSWithStats(ctx context.Context, inputs [][]byte, opts ConversionOptions, block BlockOptions) (string, Stats, error) {
	return pipeline.ConvertWithStats(ctx, inputs, reader.ReadXML, opts, block)
}

// SegmentCount returns the number of protobuf comment segments a video has,
// read from a DmWebViewReply message.
func SegmentCount(data []byte) (int64, error) {
	n, err := dmproto.SegmentCount(data)
	if err != nil {
		return 0, &DecodeError{Format: danmaku.FormatProtobuf, Offset: -1, Err: err}
	}
	return n, nil
}

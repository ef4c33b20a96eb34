package reader

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/zoom"
)

var identity = zoom.Factor{Scale: 1}

func TestParseSpecial(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		factor   zoom.Factor
		wantText string
		want     danmaku.SpecialPayload
	}{
		{
			name:     "all fields",
			content:  `[0.5, 0.5, "1-0", 3, "hi/nthere", 15, 30, 0.5, 0.5, 1000, 100, false, "SimHei"]`,
			factor:   identity,
			wantText: "hi\nthere",
			want: danmaku.SpecialPayload{
				RotateY: 30, RotateZ: 15,
				FromX: 445.5, FromY: 294.5, ToX: 445.5, ToY: 294.5,
				FromAlpha: 0, ToAlpha: 255,
				Delay: 100, Duration: 1000, Lifetime: 3,
				FontFace: "SimHei", Border: false,
			},
		},
		{
			name:     "defaults",
			content:  `[10, 20, null, null, "x"]`,
			factor:   identity,
			wantText: "x",
			want: danmaku.SpecialPayload{
				FromX: 10, FromY: 20, ToX: 10, ToY: 20,
				Duration: 4500000, Lifetime: 4500,
				FontFace: "sans-serif", Border: true,
			},
		},
		{
			name:     "numeric strings and fallbacks",
			content:  `["10", "bad", "0.5-x", "2", "t", "30.9"]`,
			factor:   identity,
			wantText: "t",
			want: danmaku.SpecialPayload{
				RotateZ: 30,
				FromX:   10, ToX: 10,
				FromAlpha: 127, ToAlpha: 127,
				Duration: 2000, Lifetime: 2,
				FontFace: "sans-serif", Border: true,
			},
		},
		{
			name:     "single alpha keeps end opaque",
			content:  `[0, 0, "0", 1, "a"]`,
			factor:   identity,
			wantText: "a",
			want: danmaku.SpecialPayload{
				FromAlpha: 255, ToAlpha: 0,
				Duration: 1000, Lifetime: 1,
				FontFace: "sans-serif", Border: true,
			},
		},
		{
			name:     "zoomed with offsets",
			content:  `[100, 0.5, "1-1", 1, "z", 0, 0, 200, 10]`,
			factor:   zoom.Factor{Scale: 2, OffsetX: 10, OffsetY: 5},
			wantText: "z",
			want: danmaku.SpecialPayload{
				FromX: 210, FromY: 594, ToX: 410, ToY: 25,
				Duration: 1000, Lifetime: 1,
				FontFace: "sans-serif", Border: true,
			},
		},
		{
			name:     "border string",
			content:  `[0, 0, "1-1", 1, "b", 0, 0, 0, 0, 0, 0, "false", 12]`,
			factor:   identity,
			wantText: "b",
			want: danmaku.SpecialPayload{
				Lifetime: 1,
				FontFace: "12", Border: false,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			text, got, err := ParseSpecial(tt.content, tt.factor)
			if err != nil {
				t.Fatalf("ParseSpecial: %v", err)
			}
			if text != tt.wantText {
				t.Errorf("text: got %q, want %q", text, tt.wantText)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSpecialErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		target  error
		field   string
	}{
		{"not json", `[0, 0, "1-1"`, danmaku.ErrInvalidJSON, ""},
		{"object", `{"text": "x"}`, danmaku.ErrNotArray, ""},
		{"too short", `[1, 2, 3]`, danmaku.ErrMissingText, "text"},
		{"text not string", `[1, 2, 3, 4, 5]`, danmaku.ErrMissingText, "text"},
		{"array coordinate", `[[1], 0, "1-1", 4, "x"]`, danmaku.ErrFieldType, "from_x"},
		{"boolean alpha", `[0, 0, true, 4, "x"]`, danmaku.ErrFieldType, "alpha"},
		{"object delay", `[0, 0, "1-1", 4, "x", 0, 0, 0, 0, 0, {}]`, danmaku.ErrFieldType, "delay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := ParseSpecial(tt.content, identity)
			if !errors.Is(err, tt.target) {
				t.Fatalf("got %v, want %v", err, tt.target)
			}
			var pe *danmaku.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("got %T, want *danmaku.ParseError", err)
			}
			if pe.Format != danmaku.FormatSpecial || pe.Field != tt.field {
				t.Errorf("got format %q field %q, want %q %q", pe.Format, pe.Field, danmaku.FormatSpecial, tt.field)
			}
		})
	}
}

func TestAlphaByte(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want uint8
	}{
		{1, 0},
		{0, 255},
		{0.5, 127},
		{2, 0},
		{-1, 255},
	}
	for _, tt := range tests {
		if got := alphaByte(tt.in); got != tt.want {
			t.Errorf("alphaByte(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

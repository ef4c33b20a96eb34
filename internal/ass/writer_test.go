package ass

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/zoom"
)

func newTestWriter() *Writer {
	return NewWriter(danmaku.DefaultConversionOptions(1920, 1080), zoom.Factor{Scale: 1}, nil)
}

func TestWriteHeader(t *testing.T) {
	t.Parallel()

	opts := danmaku.DefaultConversionOptions(1920, 1080)
	opts.FontSize = 50
	opts.TextOpacity = 0.8
	w := NewWriter(opts, zoom.Factor{Scale: 1}, nil)
	w.WriteHeader()
	got := w.String()

	for _, want := range []string{
		"[Script Info]\n",
		"PlayResX: 1920\nPlayResY: 1080\nAspect Ratio: 1920:1080\n",
		"Style: biliass, sans-serif, 50, &H33FFFFFF, &H33FFFFFF, &H33000000, &H33000000, 0, 0, 0, 0, 100, 100, 0.00, 0.00, 1, 2, 0, 7, 0, 0, 0, 0\n",
		"[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("header missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "Effect, Text\n") {
		t.Error("header should end with the events format line")
	}
}

func TestWriteNormal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    danmaku.Comment
		row  int
		want string
	}{
		{
			name: "scroll",
			c:    danmaku.NewNormal(1.5, 0, 0, "hi", danmaku.Scroll, 0xFFFFFF, 25),
			row:  0,
			want: `Dialogue: 2,0:00:01.50,0:00:06.50,biliass,,0000,0000,0000,,{\move(1920, 0, -50, 0)}hi` + "\n",
		},
		{
			name: "reversed",
			c:    danmaku.NewNormal(1.5, 0, 0, "hi", danmaku.Reversed, 0xFFFFFF, 25),
			row:  10,
			want: `Dialogue: 2,0:00:01.50,0:00:06.50,biliass,,0000,0000,0000,,{\move(-50, 10, 1920, 10)}hi` + "\n",
		},
		{
			name: "bottom",
			c:    danmaku.NewNormal(2, 0, 0, "b", danmaku.Bottom, 0xFFFFFF, 25),
			row:  10,
			want: `Dialogue: 2,0:00:02.00,0:00:07.00,biliass,,0000,0000,0000,,{\an8\pos(960, 10)}b` + "\n",
		},
		{
			name: "top counts from bottom",
			c:    danmaku.NewNormal(2, 0, 0, "t", danmaku.Top, 0xFFFFFF, 25),
			row:  10,
			want: `Dialogue: 2,0:00:02.00,0:00:07.00,biliass,,0000,0000,0000,,{\an2\pos(960, 1070)}t` + "\n",
		},
		{
			name: "size and color overrides",
			c:    danmaku.NewNormal(0, 0, 0, "x", danmaku.Scroll, 0xFF0000, 30),
			row:  0,
			want: `Dialogue: 2,0:00:00.00,0:00:05.00,biliass,,0000,0000,0000,,{\move(1920, 0, -30, 0)\fs30\c&H0200E9&}x` + "\n",
		},
		{
			name: "black gets white outline",
			c:    danmaku.NewNormal(0, 0, 0, "x", danmaku.Scroll, 0x000000, 25.5),
			row:  0,
			want: `Dialogue: 2,0:00:00.00,0:00:05.00,biliass,,0000,0000,0000,,{\move(1920, 0, -26, 0)\c&H000000&\3c&HFFFFFF&}x` + "\n",
		},
		{
			name: "escaped multi-line text",
			c:    danmaku.NewNormal(0, 0, 0, "{a}\nb", danmaku.Scroll, 0xFFFFFF, 25),
			row:  0,
			want: `Dialogue: 2,0:00:00.00,0:00:05.00,biliass,,0000,0000,0000,,{\move(1920, 0, -75, 0)}\{a\}\Nb` + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWriter()
			if err := w.WriteNormal(&tt.c, tt.row); err != nil {
				t.Fatalf("WriteNormal: %v", err)
			}
			if diff := cmp.Diff(tt.want, w.String()); diff != "" {
				t.Errorf("line mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteNormalRejectsSpecial(t *testing.T) {
	t.Parallel()

	w := newTestWriter()
	c := danmaku.NewSpecial(0, 0, 0, "x", 0xFFFFFF, 25, danmaku.SpecialPayload{})
	if err := w.WriteNormal(&c, 0); !errors.Is(err, danmaku.ErrPayloadMismatch) {
		t.Errorf("got %v, want ErrPayloadMismatch", err)
	}
	if w.Len() != 0 {
		t.Error("nothing should be written on error")
	}
}

func specialWriter() *Writer {
	return NewWriter(danmaku.DefaultConversionOptions(891, 589), zoom.Factor{Scale: 1}, nil)
}

func TestWriteSpecialStatic(t *testing.T) {
	t.Parallel()

	w := specialWriter()
	c := danmaku.NewSpecial(2, 0, 0, "弹幕", 0xFFFFFF, 25, danmaku.SpecialPayload{
		FromX: 100, FromY: 50, ToX: 100, ToY: 50,
		Lifetime: 4.5, Duration: 4500,
		FontFace: "sans-serif", Border: true,
	})
	if err := w.WriteSpecial(&c); err != nil {
		t.Fatalf("WriteSpecial: %v", err)
	}
	want := `Dialogue: -1,0:00:02.00,0:00:06.50,biliass,,0,0,0,,{\org(445, 294)\pos(100, 50)\frx0\fry0\frz0\fscx100\fscy100\fnsans-serif\fs25\alpha&H00}弹幕` + "\n"
	if diff := cmp.Diff(want, w.String()); diff != "" {
		t.Errorf("line mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSpecialMoving(t *testing.T) {
	t.Parallel()

	w := specialWriter()
	c := danmaku.NewSpecial(0, 0, 0, "go", 0xFFFFFF, 25, danmaku.SpecialPayload{
		FromX: 100, FromY: 50, ToX: 200, ToY: 50,
		FromAlpha: 255, ToAlpha: 0,
		Delay: 100, Duration: 1000, Lifetime: 3,
		FontFace: "SimHei", Border: false,
	})
	if err := w.WriteSpecial(&c); err != nil {
		t.Fatalf("WriteSpecial: %v", err)
	}
	want := `Dialogue: -1,0:00:00.00,0:00:03.00,biliass,,0,0,0,,{\org(445, 294)\move(100, 50, 200, 50, 100, 1100)` +
		`\frx0\fry0\frz0\fscx100\fscy100\t(100, 1100, \frx0\fry0\frz0\fscx100\fscy100)` +
		`\fnSimHei\fs25\fad(3000,0)\bord0}go` + "\n"
	if diff := cmp.Diff(want, w.String()); diff != "" {
		t.Errorf("line mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteSpecialAlphaForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to uint8
		want     string
	}{
		{0, 255, `\fad(0, 2000)`},
		{64, 64, `\alpha&H40`},
		{0, 128, `\fade(0, 128, 128, 0, 2000, 2000, 2000)`},
	}
	for _, tt := range tests {
		w := specialWriter()
		c := danmaku.NewSpecial(0, 0, 0, "a", 0xFFFFFF, 25, danmaku.SpecialPayload{
			FromAlpha: tt.from, ToAlpha: tt.to, Lifetime: 2, Border: true,
		})
		if err := w.WriteSpecial(&c); err != nil {
			t.Fatalf("WriteSpecial: %v", err)
		}
		if !strings.Contains(w.String(), tt.want) {
			t.Errorf("alpha %d→%d: %q missing from %q", tt.from, tt.to, tt.want, w.String())
		}
	}
}

func TestWriteSpecialRejectsNormal(t *testing.T) {
	t.Parallel()

	w := specialWriter()
	c := danmaku.NewNormal(0, 0, 0, "x", danmaku.Top, 0xFFFFFF, 25)
	if err := w.WriteSpecial(&c); !errors.Is(err, danmaku.ErrPayloadMismatch) {
		t.Errorf("got %v, want ErrPayloadMismatch", err)
	}
}

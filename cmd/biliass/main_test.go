package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zsiec/biliass/internal/dmproto"
	"github.com/zsiec/biliass/internal/dmproto/dmprototest"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<i>
	<d p="1,1,25,16777215,1700000000">hello</d>
	<d p="2,5,25,16711680,1700000001">剧透</d>
</i>`

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		w, h    uint
		wantErr bool
	}{
		{"1920x1080", 1920, 1080, false},
		{"640x360", 640, 360, false},
		{"1920", 0, 0, true},
		{"ax1", 0, 0, true},
		{"1x-1", 0, 0, true},
	}
	for _, tt := range tests {
		w, h, err := parseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if w != tt.w || h != tt.h {
			t.Errorf("parseSize(%q) = %d, %d; want %d, %d", tt.in, w, h, tt.w, tt.h)
		}
	}
}

func TestConvertToStdout(t *testing.T) {
	in := writeTemp(t, "dm.xml", []byte(sampleXML))
	out, err := run(t, "-s", "1280x720", in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out, "[Script Info]\n") {
		t.Errorf("unexpected output start: %q", out[:min(len(out), 40)])
	}
	if strings.Count(out, "Dialogue:") != 2 {
		t.Errorf("want 2 dialogue lines in %q", out)
	}
}

func TestConvertToFile(t *testing.T) {
	in := writeTemp(t, "dm.xml", []byte(sampleXML))
	outPath := filepath.Join(t.TempDir(), "dm.ass")
	if _, err := run(t, "-s", "1280x720", "--filter", "剧透", "-o", outPath, in); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\xef\xbb\xbf[Script Info]\r\n")) {
		t.Errorf("file should start with a BOM and use CRLF: %q", data[:min(len(data), 20)])
	}
	if bytes.Contains(bytes.ReplaceAll(data, []byte("\r\n"), nil), []byte("\n")) {
		t.Error("found a bare LF")
	}
	if n := bytes.Count(data, []byte("Dialogue:")); n != 1 {
		t.Errorf("got %d dialogue lines, want 1 after filtering", n)
	}
}

func TestConvertProtobuf(t *testing.T) {
	seg := &dmproto.DmSegMobileReply{Elems: []dmproto.DanmakuElem{
		{Progress: 500, Mode: 4, FontSize: 25, Color: 0xFFFFFF, Content: "top"},
	}}
	in := writeTemp(t, "seg.bin", dmprototest.Segment(seg))
	out, err := run(t, "-s", "1280x720", "-f", "protobuf", "--block-colorful", in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, `{\an2\pos(640, 720)}top`) {
		t.Errorf("missing top comment in %q", out)
	}
}

func TestConvertErrors(t *testing.T) {
	in := writeTemp(t, "dm.xml", []byte(sampleXML))
	tests := []struct {
		name string
		args []string
	}{
		{"no size", []string{in}},
		{"bad size", []string{"-s", "big", in}},
		{"bad format", []string{"-s", "1x1", "-f", "json", in}},
		{"bad filter", []string{"-s", "100x100", "--filter", "(", in}},
		{"bad ratio", []string{"-s", "100x100", "--display-region-ratio", "2", in}},
		{"missing file", []string{"-s", "100x100", filepath.Join(t.TempDir(), "nope.xml")}},
		{"no files", []string{"-s", "100x100"}},
	}
	for _, tt := range tests {
		if _, err := run(t, tt.args...); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestConvertWithConfig(t *testing.T) {
	cfg := writeTemp(t, "biliass.yaml", []byte("stage:\n  width: 800\n  height: 600\nblock:\n  bottom: true\n"))
	in := writeTemp(t, "dm.xml", []byte(sampleXML))
	out, err := run(t, "--config", cfg, in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "PlayResX: 800\nPlayResY: 600\n") {
		t.Error("stage size from config not applied")
	}
	if strings.Count(out, "Dialogue:") != 1 {
		t.Errorf("bottom comment should be blocked: %q", out)
	}
}

func TestMeta(t *testing.T) {
	in := writeTemp(t, "view.bin", dmprototest.WebView(360000, 7))
	out, err := run(t, "meta", in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(out) != "7" {
		t.Errorf("got %q, want 7", out)
	}
}

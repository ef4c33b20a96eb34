package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zsiec/biliass/internal/danmaku"
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts, block, err := Default().Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if diff := cmp.Diff(danmaku.DefaultConversionOptions(1920, 1080), opts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if block.HasKeywords() || block.Colorful {
		t.Errorf("default config should block nothing: %+v", block)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
stage:
  width: 1280
  height: 720
font:
  face: SimHei
durations:
  marquee: 8
display_region_ratio: 0.8
reduce: true
block:
  top: true
  colorful: true
  keywords: ["^233+$"]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	opts, block, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}

	want := danmaku.DefaultConversionOptions(1280, 720)
	want.FontFace = "SimHei"
	want.DurationMarquee = 8
	want.DisplayRegionRatio = 0.8
	want.ReduceComments = true
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if !block.Top || !block.Colorful || block.Bottom {
		t.Errorf("unexpected block toggles: %+v", block)
	}
	if !block.MatchesKeyword("2333") || block.MatchesKeyword("23a") {
		t.Error("keyword pattern not applied")
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("stage:\n  depth: 3\n")); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty document should yield defaults (-want +got):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{EnvFont: "Noto Sans CJK", EnvFontSize: "32"}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Font.Face != "Noto Sans CJK" || cfg.Font.Size != 32 {
		t.Errorf("got %+v", cfg.Font)
	}

	env[EnvFontSize] = "big"
	err := Default().applyEnv(func(k string) string { return env[k] })
	var ce *danmaku.ConfigError
	if !errors.As(err, &ce) || ce.Field != EnvFontSize {
		t.Errorf("got %v, want *danmaku.ConfigError on %s", err, EnvFontSize)
	}
}

func TestOptionsValidation(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.DisplayRegionRatio = 1.5
	_, _, err := cfg.Options()
	if !errors.Is(err, danmaku.ErrInvalidOption) {
		t.Errorf("got %v, want ErrInvalidOption", err)
	}

	cfg = Default()
	cfg.Block.Keywords = []string{"("}
	_, _, err = cfg.Options()
	if !errors.Is(err, danmaku.ErrInvalidPattern) {
		t.Errorf("got %v, want ErrInvalidPattern", err)
	}
}

func TestKeywordFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "filter.txt")
	if err := os.WriteFile(path, []byte("剧透\n\n  ^前方高能$  \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadKeywordFile(path)
	if err != nil {
		t.Fatalf("ReadKeywordFile: %v", err)
	}
	if diff := cmp.Diff([]string{"剧透", "^前方高能$"}, got); diff != "" {
		t.Errorf("patterns (-want +got):\n%s", diff)
	}

	cfg := Default()
	cfg.Block.KeywordFiles = []string{path}
	_, block, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if !block.MatchesKeyword("有剧透") || !block.MatchesKeyword("前方高能") {
		t.Error("keyword file patterns not applied")
	}

	cfg.Block.KeywordFiles = []string{filepath.Join(dir, "missing.txt")}
	_, _, err = cfg.Options()
	var ce *danmaku.ConfigError
	if !errors.As(err, &ce) || ce.Field != "keyword_files" {
		t.Errorf("got %v, want *danmaku.ConfigError on keyword_files", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biliass.yaml")
	if err := os.WriteFile(path, []byte("font:\n  size: 40\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvFont, "Env Font")
	t.Setenv(EnvFontSize, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Font.Size != 40 || cfg.Font.Face != "Env Font" {
		t.Errorf("got %+v", cfg.Font)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

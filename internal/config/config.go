// Package config loads the command line tool's settings from a YAML file
// and the environment and turns them into conversion options.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zsiec/biliass/internal/danmaku"
)

// Environment variables that override the file.
const (
	EnvFont     = "BILIASS_FONT"
	EnvFontSize = "BILIASS_FONT_SIZE"
)

// Config is the on-disk configuration.
type Config struct {
	Stage              StageConfig    `yaml:"stage"`
	Font               FontConfig     `yaml:"font"`
	Durations          DurationConfig `yaml:"durations"`
	DisplayRegionRatio float64        `yaml:"display_region_ratio"`
	Opacity            float64        `yaml:"opacity"`
	Reduce             bool           `yaml:"reduce"`
	Block              BlockConfig    `yaml:"block"`
}

// StageConfig is the output canvas size.
type StageConfig struct {
	Width  uint `yaml:"width"`
	Height uint `yaml:"height"`
}

type FontConfig struct {
	Face string  `yaml:"face"`
	Size float64 `yaml:"size"`
}

// DurationConfig holds on-screen times in seconds.
type DurationConfig struct {
	Marquee float64 `yaml:"marquee"`
	Still   float64 `yaml:"still"`
}

// BlockConfig selects comments to drop.
type BlockConfig struct {
	Top      bool `yaml:"top"`
	Bottom   bool `yaml:"bottom"`
	Scroll   bool `yaml:"scroll"`
	Reversed bool `yaml:"reversed"`
	Special  bool `yaml:"special"`
	Colorful bool `yaml:"colorful"`
	// Keywords are regular expressions matched against comment text.
	Keywords []string `yaml:"keywords"`
	// KeywordFiles list files holding one expression per line.
	KeywordFiles []string `yaml:"keyword_files"`
}

// Default returns the settings of the command line tool without a
// configuration file.
func Default() *Config {
	d := danmaku.DefaultConversionOptions(1920, 1080)
	return &Config{
		Stage: StageConfig{Width: d.StageWidth, Height: d.StageHeight},
		Font:  FontConfig{Face: d.FontFace, Size: d.FontSize},
		Durations: DurationConfig{
			Marquee: d.DurationMarquee,
			Still:   d.DurationStill,
		},
		DisplayRegionRatio: d.DisplayRegionRatio,
		Opacity:            d.TextOpacity,
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults. Unknown keys are an
// error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvFont); v != "" {
		c.Font.Face = v
	}
	if v := getenv(EnvFontSize); v != "" {
		size, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &danmaku.ConfigError{Field: EnvFontSize, Value: v, Err: fmt.Errorf("%w: %v", danmaku.ErrInvalidOption, err)}
		}
		c.Font.Size = size
	}
	return nil
}

// Options converts the configuration into validated conversion and block
// options, loading keyword files from disk.
func (c *Config) Options() (danmaku.ConversionOptions, danmaku.BlockOptions, error) {
	opts := danmaku.ConversionOptions{
		StageWidth:         c.Stage.Width,
		StageHeight:        c.Stage.Height,
		DisplayRegionRatio: c.DisplayRegionRatio,
		FontFace:           c.Font.Face,
		FontSize:           c.Font.Size,
		TextOpacity:        c.Opacity,
		DurationMarquee:    c.Durations.Marquee,
		DurationStill:      c.Durations.Still,
		ReduceComments:     c.Reduce,
	}
	if err := opts.Validate(); err != nil {
		return danmaku.ConversionOptions{}, danmaku.BlockOptions{}, err
	}

	patterns := append([]string(nil), c.Block.Keywords...)
	for _, path := range c.Block.KeywordFiles {
		more, err := ReadKeywordFile(path)
		if err != nil {
			return danmaku.ConversionOptions{}, danmaku.BlockOptions{}, err
		}
		patterns = append(patterns, more...)
	}
	block, err := danmaku.BlockOptions{
		Top:      c.Block.Top,
		Bottom:   c.Block.Bottom,
		Scroll:   c.Block.Scroll,
		Reversed: c.Block.Reversed,
		Special:  c.Block.Special,
		Colorful: c.Block.Colorful,
	}.WithKeywords(patterns...)
	if err != nil {
		return danmaku.ConversionOptions{}, danmaku.BlockOptions{}, err
	}
	return opts, block, nil
}

// ReadKeywordFile returns the non-blank lines of path, trimmed of
// surrounding whitespace.
func ReadKeywordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &danmaku.ConfigError{Field: "keyword_files", Value: path, Err: err}
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			patterns = append(patterns, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &danmaku.ConfigError{Field: "keyword_files", Value: path, Err: err}
	}
	return patterns, nil
}

// Command biliass converts bilibili danmaku files into an ASS subtitle
// script.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zsiec/biliass/internal/config"
	"github.com/zsiec/biliass/internal/dmproto"
	"github.com/zsiec/biliass/internal/pipeline"
	"github.com/zsiec/biliass/internal/reader"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		slog.Error("biliass failed", "error", err)
		os.Exit(1)
	}
}

type flags struct {
	output      string
	size        string
	font        string
	fontSize    float64
	alpha       float64
	marquee     float64
	still       float64
	filters     []string
	filterFiles []string
	ratio       float64
	reduce      bool
	format      string
	configPath  string
	debug       bool
	stats       bool

	blockTop, blockBottom, blockScroll, blockReversed, blockSpecial, blockColorful bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "biliass [flags] FILE...",
		Short:         "bilibili ASS danmaku converter",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(stderr, f.debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, f, args, stdout)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	fl.StringVarP(&f.size, "size", "s", "", "stage size in pixels, WIDTHxHEIGHT")
	fl.StringVar(&f.font, "font", "sans-serif", "font face")
	fl.Float64Var(&f.fontSize, "fontsize", 25, "default font size")
	fl.Float64VarP(&f.alpha, "alpha", "a", 1, "text opacity")
	fl.Float64Var(&f.marquee, "duration-marquee", 5, "seconds a scrolling comment is displayed")
	fl.Float64Var(&f.still, "duration-still", 5, "seconds a still comment is displayed")
	fl.StringArrayVar(&f.filters, "filter", nil, "regular expression; matching comments are dropped (repeatable)")
	fl.StringArrayVar(&f.filterFiles, "filter-file", nil, "file with one regular expression per line (repeatable)")
	fl.Float64Var(&f.ratio, "display-region-ratio", 1, "fraction of the stage height used by comments")
	fl.BoolVarP(&f.reduce, "reduce", "r", false, "drop comments when the stage is full")
	fl.StringVarP(&f.format, "format", "f", "xml", "input format: xml or protobuf")
	fl.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fl.BoolVar(&f.stats, "stats", false, "log conversion statistics")
	fl.BoolVar(&f.blockTop, "block-top", false, "drop top comments")
	fl.BoolVar(&f.blockBottom, "block-bottom", false, "drop bottom comments")
	fl.BoolVar(&f.blockScroll, "block-scroll", false, "drop scrolling comments")
	fl.BoolVar(&f.blockReversed, "block-reversed", false, "drop reversed comments")
	fl.BoolVar(&f.blockSpecial, "block-special", false, "drop special comments")
	fl.BoolVar(&f.blockColorful, "block-colorful", false, "drop comments that are not white")
	cmd.PersistentFlags().BoolVar(&f.debug, "debug", os.Getenv("BILIASS_DEBUG") != "", "debug logging")

	cmd.AddCommand(newMetaCmd(stdout))
	return cmd
}

func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// parseSize parses WIDTHxHEIGHT.
func parseSize(s string) (uint, uint, error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid stage size %q: want WIDTHxHEIGHT", s)
	}
	w, err := strconv.ParseUint(ws, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid stage width %q: %w", ws, err)
	}
	h, err := strconv.ParseUint(hs, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid stage height %q: %w", hs, err)
	}
	return uint(w), uint(h), nil
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed

	if changed("size") {
		w, h, err := parseSize(f.size)
		if err != nil {
			return nil, err
		}
		cfg.Stage = config.StageConfig{Width: w, Height: h}
	} else if f.configPath == "" {
		return nil, errors.New("stage size is required: pass --size WIDTHxHEIGHT or a config file")
	}
	if changed("font") {
		cfg.Font.Face = f.font
	}
	if changed("fontsize") {
		cfg.Font.Size = f.fontSize
	}
	if changed("alpha") {
		cfg.Opacity = f.alpha
	}
	if changed("duration-marquee") {
		cfg.Durations.Marquee = f.marquee
	}
	if changed("duration-still") {
		cfg.Durations.Still = f.still
	}
	if changed("display-region-ratio") {
		cfg.DisplayRegionRatio = f.ratio
	}
	if changed("reduce") {
		cfg.Reduce = f.reduce
	}

	b := &cfg.Block
	b.Keywords = append(b.Keywords, f.filters...)
	b.KeywordFiles = append(b.KeywordFiles, f.filterFiles...)
	b.Top = b.Top || f.blockTop
	b.Bottom = b.Bottom || f.blockBottom
	b.Scroll = b.Scroll || f.blockScroll
	b.Reversed = b.Reversed || f.blockReversed
	b.Special = b.Special || f.blockSpecial
	b.Colorful = b.Colorful || f.blockColorful
	return cfg, nil
}

func readerFor(format string) (pipeline.Reader, error) {
	switch format {
	case "xml":
		return reader.ReadXML, nil
	case "protobuf":
		return reader.ReadProtobuf, nil
	}
	return nil, fmt.Errorf("unknown input format %q: want xml or protobuf", format)
}

func runConvert(cmd *cobra.Command, f *flags, files []string, stdout io.Writer) error {
	read, err := readerFor(f.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	opts, block, err := cfg.Options()
	if err != nil {
		return err
	}

	inputs := make([][]byte, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		inputs = append(inputs, data)
	}

	log := slog.Default().With("format", f.format)
	p := pipeline.New(read, opts, block, pipeline.WithLogger(log))
	out, err := p.Run(cmd.Context(), inputs)
	if err != nil {
		return err
	}
	if f.stats {
		snap := p.Stats().Snapshot()
		log.Info("conversion stats",
			"inputs", snap.Inputs,
			"written", snap.Written(),
			"forced", snap.Forced,
			"dropped", snap.Dropped,
			"invalid", snap.Invalid,
			"unknown_type", snap.UnknownType,
			"filtered", snap.KeywordFiltered+snap.ColorFiltered,
		)
	}

	if f.output == "" {
		_, err := io.WriteString(stdout, out)
		return err
	}
	return writeFile(f.output, out)
}

// writeFile writes the script the way players on every platform accept it:
// UTF-8 with a byte order mark and CRLF line endings.
func writeFile(path, script string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	w := transform.NewWriter(file, unicode.UTF8BOM.NewEncoder())
	if _, err := io.WriteString(w, strings.ReplaceAll(script, "\n", "\r\n")); err != nil {
		return err
	}
	return w.Close()
}

func newMetaCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "meta FILE",
		Short: "Print the number of comment segments declared by a DmWebViewReply file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			n, err := dmproto.SegmentCount(data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, n)
			return err
		},
	}
}

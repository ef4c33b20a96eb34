// Package pipeline orchestrates a conversion run: it decodes input shards
// in parallel, merges and filters the comments, sorts them into a total
// order and drives the row-layout engine and the ASS writer over the
// result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/biliass/internal/ass"
	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/layout"
	"github.com/zsiec/biliass/internal/reader"
	"github.com/zsiec/biliass/internal/zoom"
)

// Reader decodes one input shard. reader.ReadXML and reader.ReadProtobuf
// are Readers.
type Reader func(data []byte, opts reader.Options) ([]danmaku.Comment, error)

// checkEvery is how many comments are laid out between context checks.
const checkEvery = 1024

// Pipeline converts batches of shards of one format into an ASS script.
// A Pipeline may run several batches, sequentially or concurrently; its
// statistics accumulate across runs.
type Pipeline struct {
	log     *slog.Logger
	read    Reader
	opts    danmaku.ConversionOptions
	block   danmaku.BlockOptions
	zoom    *zoom.Cache
	stats   *Stats
	workers int
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithZoomCache replaces the process-wide zoom factor cache.
func WithZoomCache(c *zoom.Cache) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.zoom = c
		}
	}
}

// WithWorkers bounds the number of shards decoded at once. Values below 1
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// New creates a Pipeline decoding shards with read.
func New(read Reader, opts danmaku.ConversionOptions, block danmaku.BlockOptions, options ...Option) *Pipeline {
	p := &Pipeline{
		log:   slog.Default(),
		read:  read,
		opts:  opts,
		block: block,
		zoom:  zoom.Default(),
		stats: NewStats(),
	}
	for _, o := range options {
		o(p)
	}
	if p.workers < 1 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	p.log = p.log.With("component", "pipeline")
	return p
}

// Stats returns the collector fed by every run of this Pipeline.
func (p *Pipeline) Stats() *Stats {
	return p.stats
}

// Run converts inputs into one ASS script. Each input is decoded
// independently; a fatal error in any input fails the whole batch and no
// output is returned.
func (p *Pipeline) Run(ctx context.Context, inputs [][]byte) (string, error) {
	if err := p.opts.Validate(); err != nil {
		return "", err
	}
	factor := p.zoom.Get(zoom.ReferencePlayer, zoom.Size{Width: p.opts.StageWidth, Height: p.opts.StageHeight})

	comments, err := p.decode(ctx, inputs, factor)
	if err != nil {
		return "", err
	}
	comments = p.filter(comments)
	// Stable: comments equal on every key keep input order.
	slices.SortStableFunc(comments, func(a, b danmaku.Comment) int {
		return danmaku.Compare(&a, &b)
	})

	out, err := p.render(ctx, comments, factor)
	if err != nil {
		return "", err
	}
	p.log.Debug("conversion finished",
		"inputs", len(inputs),
		"comments", len(comments),
		"bytes", len(out))
	return out, nil
}

// decode fans the inputs out to the reader. Every goroutine writes only its
// own slot of results, so concatenation order is the input order.
func (p *Pipeline) decode(ctx context.Context, inputs [][]byte, factor zoom.Factor) ([]danmaku.Comment, error) {
	ropts := reader.Options{
		FontSize: p.opts.FontSize,
		Zoom:     factor,
		Block:    p.block,
		Log:      p.log,
		Stats:    p.stats,
	}

	results := make([][]danmaku.Comment, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			comments, err := p.read(in, ropts)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			results[i] = comments
			p.stats.RecordInput()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}

// filter applies the keyword and colorful filters to the merged comments.
func (p *Pipeline) filter(comments []danmaku.Comment) []danmaku.Comment {
	if p.block.HasKeywords() {
		comments = slices.DeleteFunc(comments, func(c danmaku.Comment) bool {
			if p.block.MatchesKeyword(c.Content) {
				p.stats.RecordKeywordFiltered()
				return true
			}
			return false
		})
	}
	if p.block.Colorful {
		comments = slices.DeleteFunc(comments, func(c danmaku.Comment) bool {
			if c.Color != 0xFFFFFF {
				p.stats.RecordColorFiltered()
				return true
			}
			return false
		})
	}
	return comments
}

// render lays out and writes the sorted comments in order.
func (p *Pipeline) render(ctx context.Context, comments []danmaku.Comment, factor zoom.Factor) (string, error) {
	w := ass.NewWriter(p.opts, factor, p.log)
	w.WriteHeader()
	rows := layout.New(comments, p.opts)

	for i := range comments {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		c := &comments[i]
		if c.Position == danmaku.Special {
			if err := w.WriteSpecial(c); err != nil {
				return "", err
			}
			p.stats.RecordSpecial()
			continue
		}

		placement, ok, err := rows.Place(i)
		if err != nil {
			return "", err
		}
		if !ok {
			p.stats.RecordDropped()
			continue
		}
		if err := w.WriteNormal(c, placement.Row); err != nil {
			return "", err
		}
		p.stats.RecordPlaced(placement.Forced)
	}
	return w.String(), nil
}

// Convert runs a single batch with a fresh Pipeline.
func Convert(ctx context.Context, inputs [][]byte, read Reader, opts danmaku.ConversionOptions, block danmaku.BlockOptions, options ...Option) (string, error) {
	return New(read, opts, block, options...).Run(ctx, inputs)
}

// ConvertWithStats is Convert that also returns the run's statistics.
func ConvertWithStats(ctx context.Context, inputs [][]byte, read Reader, opts danmaku.ConversionOptions, block danmaku.BlockOptions, options ...Option) (string, Snapshot, error) {
	p := New(read, opts, block, options...)
	out, err := p.Run(ctx, inputs)
	return out, p.Stats().Snapshot(), err
}

// Package zoom maps the legacy reference player canvas onto an output
// stage with "fit" semantics (uniform scale plus letterbox or pillarbox
// offset), and memoizes the result per (source, target) pair.
package zoom

import (
	"log/slog"
	"sync"
)

// Size is a canvas size in pixels.
type Size struct {
	Width  uint
	Height uint
}

// ReferencePlayer is the canvas size of the 2021 flex web player that
// special comment coordinates are authored against.
var ReferencePlayer = Size{Width: 891, Height: 589}

// Factor converts a reference-canvas point to stage space:
// x' = Scale*x + OffsetX, y' = Scale*y + OffsetY.
type Factor struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Compute returns the factor fitting source into target. A zero dimension
// yields the identity factor.
func Compute(source, target Size) Factor {
	if source.Width == 0 || source.Height == 0 || target.Height == 0 {
		return Factor{Scale: 1}
	}
	sw, sh := float64(source.Width), float64(source.Height)
	tw, th := float64(target.Width), float64(target.Height)
	sourceAspect := sw / sh
	targetAspect := tw / th

	switch {
	case targetAspect < sourceAspect: // narrower: letterbox
		return Factor{Scale: tw / sw, OffsetY: (th - tw/sourceAspect) / 2}
	case targetAspect > sourceAspect: // wider: pillarbox
		return Factor{Scale: th / sh, OffsetX: (tw - th*sourceAspect) / 2}
	default:
		return Factor{Scale: tw / sw}
	}
}

// Position maps one reference-canvas coordinate into stage space. Values
// below 1 are fractions of the reference dimension, anything else is an
// absolute reference pixel.
func (f Factor) Position(v float64, vertical bool) float64 {
	dim, offset := float64(ReferencePlayer.Width), f.OffsetX
	if vertical {
		dim, offset = float64(ReferencePlayer.Height), f.OffsetY
	}
	if v < 1 {
		return f.Scale*v*dim + offset
	}
	return f.Scale*v + offset
}

type key struct {
	source Size
	target Size
}

// Cache memoizes Compute. It is safe for concurrent use.
type Cache struct {
	log     *slog.Logger
	mu      sync.RWMutex
	entries map[key]Factor
}

// NewCache creates an empty cache. If log is nil, slog.Default() is used.
func NewCache(log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		log:     log.With("component", "zoom-cache"),
		entries: make(map[key]Factor),
	}
}

// Get returns the memoized factor for (source, target), computing it on
// first use.
func (c *Cache) Get(source, target Size) Factor {
	k := key{source, target}

	c.mu.RLock()
	f, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		return f
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.entries[k]; ok {
		return f
	}
	f = Compute(source, target)
	c.entries[k] = f
	c.log.Debug("zoom factor computed",
		"source", source, "target", target,
		"scale", f.Scale, "offset_x", f.OffsetX, "offset_y", f.OffsetY)
	return f
}

// Len returns the number of memoized pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var (
	defaultOnce  sync.Once
	defaultCache *Cache
)

// Default returns the process-wide cache.
func Default() *Cache {
	defaultOnce.Do(func() {
		defaultCache = NewCache(nil)
	})
	return defaultCache
}

// ForStage returns the memoized factor mapping the reference player onto a
// stage of width×height.
func ForStage(width, height uint) Factor {
	return Default().Get(ReferencePlayer, Size{Width: width, Height: height})
}

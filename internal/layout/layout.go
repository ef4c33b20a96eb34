// Package layout assigns non-special comments to pixel rows so that
// comments visible at the same time do not overlap.
//
// Each of the four row categories (scroll, bottom, top, reversed) owns a
// column of one slot per usable pixel row. A slot holds the index of the
// comment that last claimed it, into the sorted comment slice the Engine
// was built over. Placement is greedy and depends only on comments placed
// earlier, so the caller must feed comments in sorted order.
package layout

import (
	"fmt"
	"math"

	"github.com/zsiec/biliass/internal/danmaku"
)

const vacant = -1

// Placement is the outcome of a successful Place call.
type Placement struct {
	// Row is the top pixel row for bottom, scroll and reversed comments and
	// the row counted from the bottom of the display region for top
	// comments.
	Row int
	// Forced is true when no collision-free row existed and the comment was
	// put on a vacant row or over the oldest occupant.
	Forced bool
}

// Engine holds the row occupancy of one conversion run. It is not safe for
// concurrent use.
type Engine struct {
	comments []danmaku.Comment
	rows     [danmaku.RowCategories][]int

	width   float64
	usable  int // stage height minus the bottom reservation
	marquee float64
	still   float64
	reduce  bool
}

// New creates an Engine over comments, which must stay unmodified while the
// Engine is in use.
func New(comments []danmaku.Comment, opts danmaku.ConversionOptions) *Engine {
	usable := int(opts.StageHeight) - int(opts.BottomReserved())
	e := &Engine{
		comments: comments,
		width:    float64(opts.StageWidth),
		usable:   usable,
		marquee:  opts.DurationMarquee,
		still:    opts.DurationStill,
		reduce:   opts.ReduceComments,
	}
	for i := range e.rows {
		slots := make([]int, usable+1)
		for j := range slots {
			slots[j] = vacant
		}
		e.rows[i] = slots
	}
	return e
}

// Place finds a row for comments[idx] and claims it. ok is false when the
// engine reduces comments and no collision-free row exists; the comment
// must then be dropped.
func (e *Engine) Place(idx int) (p Placement, ok bool, err error) {
	c := &e.comments[idx]
	size, err := c.Normal()
	if err != nil {
		return Placement{}, false, err
	}
	if c.Position < 0 || int(c.Position) >= danmaku.RowCategories {
		return Placement{}, false, fmt.Errorf("layout: comment %d has no row category: %s", idx, c.Position)
	}
	slots := e.rows[c.Position]

	limit := float64(e.usable) - size.Height
	for row := 0; float64(row) <= limit; {
		free := e.freeRows(slots, c, size, row)
		if float64(free) >= size.Height {
			e.mark(slots, idx, row, size.Height)
			return Placement{Row: row}, true, nil
		}
		row += max(free, 1)
	}

	if e.reduce {
		return Placement{}, false, nil
	}
	row := e.alternativeRow(slots, size.Height)
	e.mark(slots, idx, row, size.Height)
	return Placement{Row: row, Forced: true}, true, nil
}

// freeRows counts consecutive rows from row, up to the comment's height,
// that no earlier comment still needs.
func (e *Engine) freeRows(slots []int, c *danmaku.Comment, size danmaku.NormalPayload, row int) int {
	blocks := e.blocksStatic
	if c.Position.IsMoving() {
		blocks = e.movingPredicate(c, size)
	}

	free := 0
	occupant := vacant
	for ; row < e.usable && float64(free) < size.Height; row++ {
		if s := slots[row]; s != occupant {
			occupant = s
			if s != vacant && blocks(&e.comments[s], c) {
				break
			}
		}
		free++
	}
	return free
}

// blocksStatic reports whether a top or bottom occupant is still on screen.
func (e *Engine) blocksStatic(occ, c *danmaku.Comment) bool {
	return occ.Timeline+e.still > c.Timeline
}

// movingPredicate returns the collision test for a scroll or reversed
// comment c. An occupant blocks if it entered too late for c to stay
// behind it, or if it has not fully entered the stage yet when c appears.
func (e *Engine) movingPredicate(c *danmaku.Comment, size danmaku.NormalPayload) func(occ, c *danmaku.Comment) bool {
	threshold := c.Timeline - e.marquee
	if d := size.Width + e.width; d != 0 {
		threshold = c.Timeline - e.marquee*(1-e.width/d)
	}
	return func(occ, cur *danmaku.Comment) bool {
		if occ.Timeline > threshold {
			return true
		}
		occWidth := occ.Payload.(danmaku.NormalPayload).Width
		d := occWidth + e.width
		if d == 0 {
			return false
		}
		return occ.Timeline+occWidth*e.marquee/d > cur.Timeline
	}
}

// alternativeRow returns the first vacant row, or the row whose occupant
// appeared earliest.
func (e *Engine) alternativeRow(slots []int, height float64) int {
	best := 0
	n := e.usable - int(math.Ceil(height))
	for row := 0; row < n; row++ {
		s := slots[row]
		if s == vacant {
			return row
		}
		if e.comments[s].Timeline < e.comments[slots[best]].Timeline {
			best = row
		}
	}
	return best
}

func (e *Engine) mark(slots []int, idx, row int, height float64) {
	end := min(row+int(math.Ceil(height)), len(slots))
	for i := row; i < end; i++ {
		slots[i] = idx
	}
}

package pipeline

import (
	"sync/atomic"

	"github.com/zsiec/biliass/internal/danmaku"
	"github.com/zsiec/biliass/internal/reader"
)

// Compile-time interface check.
var _ reader.StatsRecorder = (*Stats)(nil)

// Snapshot is a point-in-time copy of the counters of a Stats collector.
type Snapshot struct {
	Inputs  int64            `json:"inputs"`
	Decoded map[string]int64 `json:"decoded"`
	Blocked map[string]int64 `json:"blocked,omitempty"`
	Ignored int64            `json:"ignored"`
	// UnknownType counts entries whose type code maps to no position.
	UnknownType     int64 `json:"unknownType"`
	Invalid         int64 `json:"invalid"`
	KeywordFiltered int64 `json:"keywordFiltered"`
	ColorFiltered   int64 `json:"colorFiltered"`
	Placed          int64 `json:"placed"`
	Forced          int64 `json:"forced"`
	Dropped         int64 `json:"dropped"`
	Special         int64 `json:"special"`
}

// Written returns the number of Dialogue lines emitted.
func (s Snapshot) Written() int64 {
	return s.Placed + s.Special
}

// Stats accumulates conversion counters with atomic operations. It
// implements reader.StatsRecorder, so the shard readers report into it
// concurrently.
type Stats struct {
	inputs      atomic.Int64
	decoded     [danmaku.Special + 1]atomic.Int64
	blocked     [danmaku.Special + 1]atomic.Int64
	ignored     atomic.Int64
	unknownType atomic.Int64
	invalid     atomic.Int64

	keywordFiltered atomic.Int64
	colorFiltered   atomic.Int64

	placed  atomic.Int64
	forced  atomic.Int64
	dropped atomic.Int64
	special atomic.Int64
}

// NewStats returns a zeroed collector.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) RecordInput() { s.inputs.Add(1) }

func (s *Stats) RecordDecoded(pos danmaku.Position) {
	if pos >= 0 && int(pos) < len(s.decoded) {
		s.decoded[pos].Add(1)
	}
}

func (s *Stats) RecordBlocked(pos danmaku.Position) {
	if pos >= 0 && int(pos) < len(s.blocked) {
		s.blocked[pos].Add(1)
	}
}

func (s *Stats) RecordIgnored()          { s.ignored.Add(1) }
func (s *Stats) RecordUnknownType(int64) { s.unknownType.Add(1) }
func (s *Stats) RecordInvalid()          { s.invalid.Add(1) }
func (s *Stats) RecordKeywordFiltered()  { s.keywordFiltered.Add(1) }
func (s *Stats) RecordColorFiltered()    { s.colorFiltered.Add(1) }
func (s *Stats) RecordDropped()          { s.dropped.Add(1) }
func (s *Stats) RecordSpecial()          { s.special.Add(1) }

// RecordPlaced counts a normal comment written to a row; forced marks a
// placement that overlaps an earlier comment.
func (s *Stats) RecordPlaced(forced bool) {
	s.placed.Add(1)
	if forced {
		s.forced.Add(1)
	}
}

// Snapshot returns the current counter values. Positions that never
// occurred are omitted from the per-position maps.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Inputs:          s.inputs.Load(),
		Decoded:         make(map[string]int64),
		Blocked:         make(map[string]int64),
		Ignored:         s.ignored.Load(),
		UnknownType:     s.unknownType.Load(),
		Invalid:         s.invalid.Load(),
		KeywordFiltered: s.keywordFiltered.Load(),
		ColorFiltered:   s.colorFiltered.Load(),
		Placed:          s.placed.Load(),
		Forced:          s.forced.Load(),
		Dropped:         s.dropped.Load(),
		Special:         s.special.Load(),
	}
	for pos := range s.decoded {
		if n := s.decoded[pos].Load(); n > 0 {
			snap.Decoded[danmaku.Position(pos).String()] = n
		}
		if n := s.blocked[pos].Load(); n > 0 {
			snap.Blocked[danmaku.Position(pos).String()] = n
		}
	}
	return snap
}

// Package ledger tracks per-participant end-by-end scoring state.
package ledger

import (
	"errors"
	"fmt"

	"archery-scoring-service/internal/scoring"
)

// ErrIndexOutOfRange reports an end or arrow index outside the ledger's
// fixed dimensions. It indicates a caller bug and is never swallowed.
var ErrIndexOutOfRange = errors.New("ledger: index out of range")

// End is a fixed-size group of arrows shot together, numbered from 1.
type End struct {
	Number int             `json:"number"`
	Arrows []scoring.Arrow `json:"arrows"`
}

// NewEnd builds an empty end of the given width.
func NewEnd(number, arrowsPerEnd int) End {
	return End{Number: number, Arrows: make([]scoring.Arrow, arrowsPerEnd)}
}

// Summary is the derived view of one end. It is computed, never stored.
type Summary struct {
	Total      int  `json:"total"`
	Tens       int  `json:"tens"`
	CenterHits int  `json:"centerHits"`
	Complete   bool `json:"complete"`
}

// Summary derives totals and completeness for the end. Unscored arrows
// contribute nothing and mark the end incomplete.
func (e End) Summary() Summary {
	s := Summary{Complete: true}
	for _, a := range e.Arrows {
		if !a.Scored() {
			s.Complete = false
			continue
		}
		s.Total += a.Value()
		if a.IsTen() {
			s.Tens++
		}
		if a.IsCenterHit() {
			s.CenterHits++
		}
	}
	return s
}

// HighestRank returns the tie-break rank of the best arrow in the end.
func (e End) HighestRank() int {
	best := 0
	for _, a := range e.Arrows {
		if r := a.Rank(); r > best {
			best = r
		}
	}
	return best
}

// Ledger is one participant's ordered sequence of ends. Ends are
// append-structured: they are mutated in place while a card is open but
// never removed or reordered.
type Ledger struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	Ends        []End  `json:"ends"`
}

// New builds a ledger with totalEnds empty ends of arrowsPerEnd arrows.
func New(name, affiliation string, totalEnds, arrowsPerEnd int) *Ledger {
	l := &Ledger{Name: name, Affiliation: affiliation, Ends: make([]End, totalEnds)}
	for i := range l.Ends {
		l.Ends[i] = NewEnd(i+1, arrowsPerEnd)
	}
	return l
}

// SetArrow records one arrow. Indexes are zero-based; out-of-range
// indexes fail with ErrIndexOutOfRange.
func (l *Ledger) SetArrow(endIndex, arrowIndex int, a scoring.Arrow) error {
	if endIndex < 0 || endIndex >= len(l.Ends) {
		return fmt.Errorf("%w: end %d of %d", ErrIndexOutOfRange, endIndex, len(l.Ends))
	}
	end := &l.Ends[endIndex]
	if arrowIndex < 0 || arrowIndex >= len(end.Arrows) {
		return fmt.Errorf("%w: arrow %d of %d", ErrIndexOutOfRange, arrowIndex, len(end.Arrows))
	}
	end.Arrows[arrowIndex] = a
	return nil
}

// EndAt returns the end at the given zero-based index.
func (l *Ledger) EndAt(endIndex int) (End, error) {
	if endIndex < 0 || endIndex >= len(l.Ends) {
		return End{}, fmt.Errorf("%w: end %d of %d", ErrIndexOutOfRange, endIndex, len(l.Ends))
	}
	return l.Ends[endIndex], nil
}

// EndSummary derives totals for the end at the given zero-based index.
func (l *Ledger) EndSummary(endIndex int) (Summary, error) {
	e, err := l.EndAt(endIndex)
	if err != nil {
		return Summary{}, err
	}
	return e.Summary(), nil
}

// RunningTotal sums the totals of all complete ends up to and including
// uptoEndIndex. An incomplete end contributes zero without halting
// summation: a scorer may back-fill a skipped end, and later complete
// ends still count. Out-of-range indexes clamp rather than fail.
func (l *Ledger) RunningTotal(uptoEndIndex int) int {
	if uptoEndIndex >= len(l.Ends) {
		uptoEndIndex = len(l.Ends) - 1
	}
	total := 0
	for i := 0; i <= uptoEndIndex; i++ {
		if s := l.Ends[i].Summary(); s.Complete {
			total += s.Total
		}
	}
	return total
}

// Complete reports whether every end has all arrows scored.
func (l *Ledger) Complete() bool {
	for _, e := range l.Ends {
		if !e.Summary().Complete {
			return false
		}
	}
	return true
}

// Totals aggregates the whole card: total, tens, and center hits over
// complete ends only, with Complete set iff every end is complete.
func (l *Ledger) Totals() Summary {
	agg := Summary{Complete: true}
	for _, e := range l.Ends {
		s := e.Summary()
		if !s.Complete {
			agg.Complete = false
			continue
		}
		agg.Total += s.Total
		agg.Tens += s.Tens
		agg.CenterHits += s.CenterHits
	}
	return agg
}

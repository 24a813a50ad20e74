// Package match accumulates set points for a two-sided match and
// resolves winners, including shoot-offs and judge overrides.
package match

import (
	"errors"
	"fmt"

	"archery-scoring-service/internal/ledger"
)

// Status is the match lifecycle state.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusShootOff Status = "SHOOT_OFF"
	StatusResolved Status = "RESOLVED"
)

// Side identifies one of the two sides of a match.
type Side int

const (
	SideA Side = iota
	SideB
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// ErrInvalidState reports an operation that is not legal in the
// engine's current state. It indicates a caller bug.
var ErrInvalidState = errors.New("match: invalid state")

// ErrIncompleteEnd reports a set scored before both sides finished it.
var ErrIncompleteEnd = errors.New("match: incomplete end")

// Config fixes the match format. The defaults are the team format:
// four regulation sets, first side to five set points wins.
type Config struct {
	PointsToWin    int
	RegulationSets int
}

func (c Config) withDefaults() Config {
	if c.PointsToWin <= 0 {
		c.PointsToWin = 5
	}
	if c.RegulationSets <= 0 {
		c.RegulationSets = 4
	}
	return c
}

// SetResult is the points awarded for one scored set.
type SetResult struct {
	Set     int `json:"set"`
	APoints int `json:"aPoints"`
	BPoints int `json:"bPoints"`
}

// Engine is the per-match state machine. One engine is owned by one
// scorecard and is not safe for concurrent use.
type Engine struct {
	cfg Config

	status     Status
	points     [2]int
	setsScored int

	shootOffScored bool
	pendingJudge   bool

	winner    Side
	hasWinner bool
}

// NewEngine builds an open match with the given format.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults(), status: StatusOpen}
}

// ScoreSet records one regulation set from both sides' completed ends
// and accumulates set points: 2/0 to the higher total, 1/1 on a tie.
// The match resolves the moment either side reaches the points
// threshold; further sets fail with ErrInvalidState.
func (e *Engine) ScoreSet(a, b ledger.End) (SetResult, error) {
	if e.status != StatusOpen {
		return SetResult{}, fmt.Errorf("%w: match is %s", ErrInvalidState, e.status)
	}
	if e.setsScored >= e.cfg.RegulationSets {
		return SetResult{}, fmt.Errorf("%w: all %d regulation sets scored", ErrInvalidState, e.cfg.RegulationSets)
	}

	as, bs := a.Summary(), b.Summary()
	if !as.Complete || !bs.Complete {
		return SetResult{}, fmt.Errorf("%w: set %d", ErrIncompleteEnd, e.setsScored+1)
	}

	res := SetResult{Set: e.setsScored + 1}
	switch {
	case as.Total > bs.Total:
		res.APoints = 2
	case bs.Total > as.Total:
		res.BPoints = 2
	default:
		res.APoints, res.BPoints = 1, 1
	}
	e.points[SideA] += res.APoints
	e.points[SideB] += res.BPoints
	e.setsScored++

	e.checkRegulation()
	return res, nil
}

// checkRegulation runs after every scored set, in set order, so a
// later set is never evaluated once the match has resolved.
func (e *Engine) checkRegulation() {
	switch {
	case e.points[SideA] >= e.cfg.PointsToWin:
		e.resolve(SideA)
	case e.points[SideB] >= e.cfg.PointsToWin:
		e.resolve(SideB)
	case e.setsScored == e.cfg.RegulationSets:
		if e.points[SideA] == e.points[SideB] {
			e.status = StatusShootOff
		} else if e.points[SideA] > e.points[SideB] {
			e.resolve(SideA)
		} else {
			e.resolve(SideB)
		}
	}
}

// ScoreShootOff records the single shoot-off end for both sides.
// Resolution order: higher total wins; equal totals fall to the single
// highest arrow, where a center hit outranks a plain 10; equal highest
// arrows leave the match in SHOOT_OFF awaiting a judge override.
func (e *Engine) ScoreShootOff(a, b ledger.End) error {
	if e.status != StatusShootOff {
		return fmt.Errorf("%w: match is %s", ErrInvalidState, e.status)
	}
	if e.shootOffScored {
		return fmt.Errorf("%w: shoot-off already scored", ErrInvalidState)
	}

	as, bs := a.Summary(), b.Summary()
	if !as.Complete || !bs.Complete {
		return fmt.Errorf("%w: shoot-off", ErrIncompleteEnd)
	}
	e.shootOffScored = true

	switch {
	case as.Total > bs.Total:
		e.resolve(SideA)
	case bs.Total > as.Total:
		e.resolve(SideB)
	default:
		ar, br := a.HighestRank(), b.HighestRank()
		switch {
		case ar > br:
			e.resolve(SideA)
		case br > ar:
			e.resolve(SideB)
		default:
			e.pendingJudge = true
		}
	}
	return nil
}

// ApplyJudgeOverride awards the match to side. It is legal only in the
// exact state where a scored shoot-off remained tied after the arrow
// comparison.
func (e *Engine) ApplyJudgeOverride(side Side) error {
	if !e.pendingJudge {
		return fmt.Errorf("%w: no tied shoot-off awaiting a judge call", ErrInvalidState)
	}
	e.pendingJudge = false
	e.resolve(side)
	return nil
}

func (e *Engine) resolve(side Side) {
	e.winner = side
	e.hasWinner = true
	e.status = StatusResolved
}

// Status returns the lifecycle state.
func (e *Engine) Status() Status { return e.status }

// Points returns the accumulated set points per side.
func (e *Engine) Points() (a, b int) {
	return e.points[SideA], e.points[SideB]
}

// Winner returns the winning side once the match has resolved.
func (e *Engine) Winner() (Side, bool) {
	return e.winner, e.hasWinner
}

// PendingJudgeCall reports whether a tied shoot-off awaits an override.
func (e *Engine) PendingJudgeCall() bool { return e.pendingJudge }

// SetsScored returns how many regulation sets have been recorded.
func (e *Engine) SetsScored() int { return e.setsScored }

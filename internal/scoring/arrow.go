// Package scoring models individual arrow values and their arithmetic.
package scoring

import (
	"encoding/json"
	"strconv"
)

// Kind discriminates the closed set of arrow score variants.
type Kind int

const (
	// KindUnscored marks an arrow that has not been entered yet. It is
	// distinct from a miss: an unscored arrow leaves its end incomplete.
	KindUnscored Kind = iota
	KindMiss
	KindNumeric
	KindCenterHit
)

// Arrow is one arrow's recorded score. The zero value is unscored.
type Arrow struct {
	Kind Kind
	// N is the ring value, meaningful only when Kind is KindNumeric.
	N int
}

// Unscored returns the not-yet-entered sentinel.
func Unscored() Arrow { return Arrow{Kind: KindUnscored} }

// Miss returns the zero-scoring miss sentinel ("M" on a scorecard).
func Miss() Arrow { return Arrow{Kind: KindMiss} }

// X returns the center-hit sentinel, worth 10 points and distinguished
// from a plain 10 for tie-breaking.
func X() Arrow { return Arrow{Kind: KindCenterHit} }

// Number returns a numeric arrow clamped to the 0-10 scoring range.
func Number(n int) Arrow {
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return Arrow{Kind: KindNumeric, N: n}
}

// Parse converts scorecard input into an Arrow. Empty and unrecognized
// input parse to unscored; callers establish completeness before asking
// for a value, so Parse never fails.
func Parse(raw string) Arrow {
	switch raw {
	case "":
		return Unscored()
	case "X", "x":
		return X()
	case "M", "m":
		return Miss()
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 10 {
		return Unscored()
	}
	return Number(n)
}

// String renders the scorecard token for the arrow. Parse(a.String())
// round-trips for every arrow.
func (a Arrow) String() string {
	switch a.Kind {
	case KindCenterHit:
		return "X"
	case KindMiss:
		return "M"
	case KindNumeric:
		return strconv.Itoa(a.N)
	default:
		return ""
	}
}

// Value is the arrow's point contribution. Unscored and missed arrows
// contribute zero.
func (a Arrow) Value() int {
	switch a.Kind {
	case KindCenterHit:
		return 10
	case KindNumeric:
		return a.N
	default:
		return 0
	}
}

// Scored reports whether the arrow has been entered at all.
func (a Arrow) Scored() bool { return a.Kind != KindUnscored }

// IsCenterHit reports whether the arrow is the center-hit sentinel.
func (a Arrow) IsCenterHit() bool { return a.Kind == KindCenterHit }

// IsTen reports whether the arrow counts toward the tens column, which
// includes both the center-hit sentinel and a plain numeric 10.
func (a Arrow) IsTen() bool {
	return a.Kind == KindCenterHit || (a.Kind == KindNumeric && a.N == 10)
}

// Rank orders arrows for shoot-off tie-breaking. A center hit outranks a
// plain numeric 10 even though both score 10 points.
func (a Arrow) Rank() int {
	r := a.Value() * 10
	if a.Kind == KindCenterHit {
		r++
	}
	return r
}

// MarshalJSON encodes the arrow as its scorecard token so persisted
// ledgers and sync payloads carry "X"/"M"/""/digits.
func (a Arrow) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a scorecard token or a bare number.
func (a *Arrow) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Parse(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Number(n)
	return nil
}

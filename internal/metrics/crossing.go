package metrics

import (
	"fmt"
	"math"
)

// Direction is the sense of a step transition.
type Direction int

const (
	Rising Direction = iota
	Falling
)

func (d Direction) String() string {
	if d == Falling {
		return "falling"
	}
	return "rising"
}

// DirectionOf classifies a transition from start to final. A zero-size step
// counts as rising.
func DirectionOf(start, final float64) Direction {
	if final < start {
		return Falling
	}
	return Rising
}

// Level returns start + fraction*(final-start).
func Level(start, final, fraction float64) float64 {
	return start + fraction*(final-start)
}

// FirstCrossing returns the first index whose value is at or beyond threshold
// in the given direction.
func FirstCrossing(values []float64, threshold float64, dir Direction) (int, bool) {
	for i, v := range values {
		if beyond(v, threshold, dir) {
			return i, true
		}
	}
	return -1, false
}

// LastOutsideBand returns the last index with |v-centre| > tol.
func LastOutsideBand(values []float64, centre, tol float64) (int, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if math.Abs(values[i]-centre) > tol {
			return i, true
		}
	}
	return -1, false
}

// Extremum returns the index of the global max (rising) or min (falling),
// first occurrence on ties.
func Extremum(values []float64, dir Direction) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if dir == Rising && values[i] > values[best] {
			best = i
		}
		if dir == Falling && values[i] < values[best] {
			best = i
		}
	}
	return best
}

func beyond(v, threshold float64, dir Direction) bool {
	if dir == Falling {
		return v <= threshold
	}
	return v >= threshold
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "rising":
		*d = Rising
	case "falling":
		*d = Falling
	default:
		return fmt.Errorf("metrics: unknown direction %q", text)
	}
	return nil
}

// Package segment decomposes a motion time series into velocity plateaus:
// maximal frame ranges where the joint-velocity magnitude stays below a
// threshold long enough to count as an effectively static pose. One
// representative frame per plateau becomes a waypoint of the replay program.
package segment

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Policy selects the representative frame within a plateau.
type Policy string

const (
	PolicyFirst    Policy = "first"
	PolicyMidpoint Policy = "midpoint"
	PolicyLast     Policy = "last"
)

// Config holds the segmentation parameters. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// VelocityThreshold is the per-frame velocity magnitude (in the input's
	// units per frame) below which motion counts as static.
	VelocityThreshold float64
	// WindowSize is the minimum number of consecutive static frames for a
	// run to qualify as a plateau. Shorter runs are transient, not static.
	WindowSize int
	// Policy picks the representative frame (default midpoint).
	Policy Policy
}

// DefaultConfig returns the standard segmentation parameters.
func DefaultConfig() Config {
	return Config{
		VelocityThreshold: 0.03,
		WindowSize:        15,
		Policy:            PolicyMidpoint,
	}
}

// Plateau is a maximal run of static frames. Start and End are inclusive
// frame indices; Rep is the representative frame selected by the policy.
type Plateau struct {
	Start int
	End   int
	Rep   int
}

// Detect computes the plateau decomposition of a (frames x width) motion
// matrix. Velocities are finite differences between consecutive rows
// (uniform frame spacing assumed), reduced to a per-frame magnitude by the
// Euclidean norm across columns, in that fixed order, so identical inputs
// always yield identical plateaus.
//
// Fewer than two frames, a nil matrix or a zero-width matrix yield no
// plateaus rather than an error.
func Detect(m *mat.Dense, cfg Config) []Plateau {
	if m == nil {
		return nil
	}
	frames, width := m.Dims()
	if frames < 2 || width == 0 {
		return nil
	}

	vel := VelocityMagnitude(m)

	var plateaus []Plateau
	runStart := -1
	flush := func(end int) {
		// A static run over vel[runStart..end-1] covers frames
		// runStart..end inclusive.
		if runStart < 0 {
			return
		}
		start := runStart
		runStart = -1
		if end-start+1 < cfg.WindowSize {
			return
		}
		plateaus = append(plateaus, Plateau{
			Start: start,
			End:   end,
			Rep:   representative(start, end, frames, cfg.Policy),
		})
	}

	for i, v := range vel {
		if v < cfg.VelocityThreshold {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(frames - 1)

	return plateaus
}

// VelocityMagnitude computes the motion signal Detect thresholds: element i
// is the Euclidean norm of the row-wise difference between frames i and i+1.
// Returns nil for inputs with fewer than two frames or zero columns.
func VelocityMagnitude(m *mat.Dense) []float64 {
	if m == nil {
		return nil
	}
	frames, width := m.Dims()
	if frames < 2 || width == 0 {
		return nil
	}
	vel := make([]float64, frames-1)
	diff := make([]float64, width)
	for i := 0; i < frames-1; i++ {
		for j := 0; j < width; j++ {
			diff[j] = m.At(i+1, j) - m.At(i, j)
		}
		vel[i] = floats.Norm(diff, 2)
	}
	return vel
}

func representative(start, end, frames int, policy Policy) int {
	var rep int
	switch policy {
	case PolicyFirst:
		rep = start
	case PolicyLast:
		rep = end
	default:
		rep = (start + end) / 2
	}
	if rep < 0 {
		rep = 0
	}
	if rep >= frames {
		rep = frames - 1
	}
	return rep
}

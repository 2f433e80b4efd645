package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// pickAndPlace builds a 40-frame single-joint trajectory: motion from frame 0
// to 10, a hold at frames 10-25, motion to frame 30, and a final hold at
// frames 30-39.
func pickAndPlace() *mat.Dense {
	m := mat.NewDense(40, 1, nil)
	val := 0.0
	for i := 0; i < 40; i++ {
		m.Set(i, 0, val)
		moving := i < 10 || (i >= 25 && i < 30)
		if moving {
			val += 1.0
		}
	}
	return m
}

func TestDetect_PickAndPlace(t *testing.T) {
	cfg := Config{VelocityThreshold: 0.03, WindowSize: 10, Policy: PolicyMidpoint}

	plateaus := Detect(pickAndPlace(), cfg)

	require.Len(t, plateaus, 2)
	assert.Equal(t, Plateau{Start: 10, End: 25, Rep: 17}, plateaus[0])
	assert.Equal(t, Plateau{Start: 30, End: 39, Rep: 34}, plateaus[1])
}

func TestDetect_InfiniteThresholdSpansEpisode(t *testing.T) {
	cfg := Config{VelocityThreshold: math.Inf(1), WindowSize: 10, Policy: PolicyMidpoint}

	plateaus := Detect(pickAndPlace(), cfg)

	require.Len(t, plateaus, 1)
	assert.Equal(t, Plateau{Start: 0, End: 39, Rep: 19}, plateaus[0])
}

func TestDetect_WindowFiltersShortRuns(t *testing.T) {
	// The second hold spans 10 frames, the first 16. A window of 11 keeps
	// only the first; a window of 17 keeps none.
	cfg := Config{VelocityThreshold: 0.03, WindowSize: 11, Policy: PolicyMidpoint}
	plateaus := Detect(pickAndPlace(), cfg)
	require.Len(t, plateaus, 1)
	assert.Equal(t, 10, plateaus[0].Start)

	cfg.WindowSize = 17
	assert.Empty(t, Detect(pickAndPlace(), cfg))
}

func TestDetect_WindowMonotonicity(t *testing.T) {
	cfg := Config{VelocityThreshold: 0.03, Policy: PolicyMidpoint}

	prev := math.MaxInt
	for _, window := range []int{2, 5, 10, 11, 16, 17, 40} {
		cfg.WindowSize = window
		n := len(Detect(pickAndPlace(), cfg))
		assert.LessOrEqual(t, n, prev, "window %d", window)
		prev = n
	}
}

func TestDetect_Policies(t *testing.T) {
	tests := []struct {
		policy Policy
		rep    int
	}{
		{PolicyFirst, 10},
		{PolicyMidpoint, 17},
		{PolicyLast, 25},
	}

	for _, tt := range tests {
		cfg := Config{VelocityThreshold: 0.03, WindowSize: 10, Policy: tt.policy}
		plateaus := Detect(pickAndPlace(), cfg)
		require.NotEmpty(t, plateaus, "policy %s", tt.policy)
		assert.Equal(t, tt.rep, plateaus[0].Rep, "policy %s", tt.policy)
	}
}

func TestDetect_DegenerateInputs(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, Detect(nil, cfg))
	assert.Empty(t, Detect(mat.NewDense(1, 3, nil), cfg))
}

func TestDetect_Deterministic(t *testing.T) {
	cfg := Config{VelocityThreshold: 0.03, WindowSize: 10, Policy: PolicyMidpoint}

	first := Detect(pickAndPlace(), cfg)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Detect(pickAndPlace(), cfg))
	}
}

func TestVelocityMagnitude(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		0, 0,
		3, 4,
		3, 4,
	})

	vel := VelocityMagnitude(m)

	require.Len(t, vel, 2)
	assert.InDelta(t, 5.0, vel[0], 1e-12)
	assert.InDelta(t, 0.0, vel[1], 1e-12)

	assert.Nil(t, VelocityMagnitude(nil))
	assert.Nil(t, VelocityMagnitude(mat.NewDense(1, 2, nil)))
}

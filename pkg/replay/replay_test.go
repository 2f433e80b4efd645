package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafnium49/phosphobot/pkg/program"
)

// fakeArm records every call in order.
type fakeArm struct {
	mu      sync.Mutex
	calls   []string
	moveErr error
}

func (f *fakeArm) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeArm) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeArm) MoveJoints(_ context.Context, joints []float64) error {
	f.record(fmt.Sprintf("move %v", joints))
	return f.moveErr
}

func (f *fakeArm) SetGripper(_ context.Context, value float64) error {
	f.record(fmt.Sprintf("gripper %v", value))
	return nil
}

func (f *fakeArm) Enable(context.Context) error {
	f.record("enable")
	return nil
}

func (f *fakeArm) Disable(context.Context) error {
	f.record("disable")
	return nil
}

func testArtifact(cmds ...program.Command) *program.Artifact {
	return &program.Artifact{
		Header: program.Header{
			SourceDataset: "org/name",
			ActorMapping: []program.ActorRole{
				{Actor: "left", Role: "primary", Arm: "so101_left"},
			},
			ContentHash: strings.Repeat("ab", 32),
		},
		Commands: cmds,
	}
}

func newTestRunner(t *testing.T, a *program.Artifact, arm Mover) *Runner {
	t.Helper()
	r, err := NewRunner(Config{
		Artifact:  a,
		Arms:      map[string]Mover{"so101_left": arm},
		StepDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return r
}

func TestNewRunner_MissingArm(t *testing.T) {
	a := testArtifact(
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 17, Values: []float64{1}},
	)

	_, err := NewRunner(Config{Artifact: a, Arms: map[string]Mover{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "so101_left")
}

func TestNewRunner_IgnoresActorsWithoutCommands(t *testing.T) {
	// A two-actor mapping over a single-actor episode leaves the secondary
	// entry with zero commands; replaying must not demand its arm.
	a := testArtifact(
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 17, Values: []float64{1}},
	)
	a.Header.ActorMapping = append(a.Header.ActorMapping,
		program.ActorRole{Actor: "right", Role: "secondary", Arm: "so101_right"})

	arm := &fakeArm{}
	r, err := NewRunner(Config{
		Artifact:  a,
		Arms:      map[string]Mover{"so101_left": arm},
		StepDelay: time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, []string{"enable", "move [1]", "disable"}, arm.Calls())
}

func TestNewRunner_NilArtifact(t *testing.T) {
	_, err := NewRunner(Config{})
	require.Error(t, err)
}

func TestRunner_ExecutesStagesInOrder(t *testing.T) {
	a := testArtifact(
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 17, Values: []float64{1, 2}},
		program.Command{Op: program.OpGripperSet, Actor: "left", Frame: 17, Values: []float64{0}},
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 34, Values: []float64{3, 4}},
	)
	arm := &fakeArm{}
	r := newTestRunner(t, a, arm)

	require.NoError(t, r.Start(context.Background()))

	assert.Equal(t, []string{
		"enable",
		"move [1 2]",
		"gripper 0",
		"move [3 4]",
		"disable",
	}, arm.Calls())
}

func TestRunner_ReportsSteps(t *testing.T) {
	a := testArtifact(
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 17, Values: []float64{1}},
	)
	arm := &fakeArm{}
	r := newTestRunner(t, a, arm)

	require.NoError(t, r.Start(context.Background()))

	select {
	case step := <-r.Steps():
		assert.Equal(t, 0, step.Stage)
		assert.Equal(t, 17, step.Frame)
		assert.NoError(t, step.Err)
	default:
		t.Fatal("no step reported")
	}
}

func TestRunner_CartesianMoveUnsupported(t *testing.T) {
	a := testArtifact(
		program.Command{Op: program.OpCartesianMove, Actor: "left", Frame: 9, Values: []float64{1, 2, 3, 4, 5, 6}},
	)
	arm := &fakeArm{}
	r := newTestRunner(t, a, arm)

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, ErrCartesianUnsupported)

	calls := arm.Calls()
	assert.Equal(t, "disable", calls[len(calls)-1], "torque must be disabled after a failed run")
}

func TestRunner_MoveFailureStopsRun(t *testing.T) {
	a := testArtifact(
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 17, Values: []float64{1}},
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 34, Values: []float64{2}},
	)
	moveErr := errors.New("servo timeout")
	arm := &fakeArm{moveErr: moveErr}
	r := newTestRunner(t, a, arm)

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, moveErr)
	// Only the first stage was attempted.
	assert.Equal(t, []string{"enable", "move [1]", "disable"}, arm.Calls())
}

func TestRunner_ContextCancellation(t *testing.T) {
	a := testArtifact(
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 17, Values: []float64{1}},
		program.Command{Op: program.OpJointMove, Actor: "left", Frame: 34, Values: []float64{2}},
	)
	arm := &fakeArm{}
	r, err := NewRunner(Config{
		Artifact:  a,
		Arms:      map[string]Mover{"so101_left": arm},
		StepDelay: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err = r.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	calls := arm.Calls()
	assert.Equal(t, "disable", calls[len(calls)-1])
}

func TestRunner_SessionUnique(t *testing.T) {
	a := testArtifact()
	r1 := newTestRunner(t, a, &fakeArm{})
	r2 := newTestRunner(t, a, &fakeArm{})

	assert.NotEmpty(t, r1.Session())
	assert.NotEqual(t, r1.Session(), r2.Session())
}

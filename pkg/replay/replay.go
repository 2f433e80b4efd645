// Package replay executes compiled demonstration programs on robot arms.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hafnium49/phosphobot/pkg/program"
)

// ErrCartesianUnsupported is returned when a program contains Cartesian
// moves and no inverse-kinematics-capable backend is available.
var ErrCartesianUnsupported = errors.New("cartesian moves require an IK-capable backend")

// Mover is the subset of arm operations the runner needs. *robot.Arm
// satisfies it.
type Mover interface {
	MoveJoints(ctx context.Context, joints []float64) error
	SetGripper(ctx context.Context, value float64) error
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// Step reports one executed waypoint.
type Step struct {
	Stage    int
	Frame    int
	Commands []program.Command
	Err      error
}

// Config holds configuration for the runner.
type Config struct {
	Artifact *program.Artifact
	// Arms maps arm identifiers (from the program's actor mapping) to
	// connected arms.
	Arms map[string]Mover
	// StepDelay is the settle time after each waypoint.
	StepDelay time.Duration
}

// Runner walks a compiled program waypoint by waypoint.
type Runner struct {
	artifact *program.Artifact
	arms     map[string]Mover // keyed by actor
	delay    time.Duration
	session  string

	mu      sync.Mutex
	running bool
	stepCh  chan Step
	logCh   chan string
}

// NewRunner creates a runner, resolving each mapped actor to its arm.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Artifact == nil {
		return nil, fmt.Errorf("no program to run")
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = 2 * time.Second
	}

	// Only actors that contribute commands need a connected arm; a mapping
	// entry with no commands (e.g. an undetected secondary actor) is inert.
	needed := make(map[string]bool, len(cfg.Artifact.Commands))
	for _, cmd := range cfg.Artifact.Commands {
		needed[cmd.Actor] = true
	}

	arms := make(map[string]Mover, len(cfg.Artifact.Header.ActorMapping))
	for _, role := range cfg.Artifact.Header.ActorMapping {
		if !needed[role.Actor] {
			continue
		}
		arm, ok := cfg.Arms[role.Arm]
		if !ok {
			return nil, fmt.Errorf("actor %q maps to arm %q, which is not connected", role.Actor, role.Arm)
		}
		arms[role.Actor] = arm
	}

	return &Runner{
		artifact: cfg.Artifact,
		arms:     arms,
		delay:    cfg.StepDelay,
		session:  uuid.NewString(),
		stepCh:   make(chan Step, 1),
		logCh:    make(chan string, 10),
	}, nil
}

// Session returns the unique identifier of this replay run.
func (r *Runner) Session() string {
	return r.session
}

// Steps returns a channel that receives a Step per executed waypoint.
func (r *Runner) Steps() <-chan Step {
	return r.stepCh
}

// Logs returns a channel that receives log messages.
func (r *Runner) Logs() <-chan string {
	return r.logCh
}

func (r *Runner) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case r.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start executes the program. It enables torque on every arm, walks the
// waypoints in order with the configured settle delay, and disables torque
// on shutdown, clean or not.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("already running")
	}
	r.running = true
	r.mu.Unlock()
	defer r.shutdown()

	for actor, arm := range r.arms {
		if err := arm.Enable(ctx); err != nil {
			return fmt.Errorf("enable arm for actor %q: %w", actor, err)
		}
	}
	hash := r.artifact.Header.ContentHash
	if len(hash) > 10 {
		hash = hash[:10]
	}
	r.log("Replay %s started: %d commands, hash %s",
		r.session, len(r.artifact.Commands), hash)

	stages := groupByFrame(r.artifact.Commands)
	for i, stage := range stages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := r.execStage(ctx, stage)
		r.sendStep(Step{Stage: i, Frame: stage[0].Frame, Commands: stage, Err: err})
		if err != nil {
			return fmt.Errorf("stage %d (frame %d): %w", i, stage[0].Frame, err)
		}
		r.log("Stage %d/%d done (frame %d)", i+1, len(stages), stage[0].Frame)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
	}

	r.log("Replay %s finished", r.session)
	return nil
}

func (r *Runner) execStage(ctx context.Context, cmds []program.Command) error {
	for _, cmd := range cmds {
		arm, ok := r.arms[cmd.Actor]
		if !ok {
			// Actors outside the mapping never reach the artifact; guard anyway.
			return fmt.Errorf("no arm for actor %q", cmd.Actor)
		}
		var err error
		switch cmd.Op {
		case program.OpJointMove:
			err = arm.MoveJoints(ctx, cmd.Values)
		case program.OpGripperSet:
			err = arm.SetGripper(ctx, cmd.Values[0])
		case program.OpCartesianMove:
			err = ErrCartesianUnsupported
		default:
			err = fmt.Errorf("unknown op %q", cmd.Op)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) sendStep(s Step) {
	select {
	case r.stepCh <- s:
	default:
		// Drop old step if channel full, replace with new
		select {
		case <-r.stepCh:
		default:
		}
		r.stepCh <- s
	}
}

func (r *Runner) shutdown() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	ctx := context.Background()
	for actor, arm := range r.arms {
		if err := arm.Disable(ctx); err != nil {
			r.log("Warning: failed to disable arm for actor %q: %v", actor, err)
		}
	}
	r.log("Arms: torque disabled")
}

// groupByFrame splits the ordered command list into stages, one per
// waypoint frame.
func groupByFrame(cmds []program.Command) [][]program.Command {
	var stages [][]program.Command
	lastFrame := -1
	for _, cmd := range cmds {
		if cmd.Frame != lastFrame {
			stages = append(stages, nil)
			lastFrame = cmd.Frame
		}
		stages[len(stages)-1] = append(stages[len(stages)-1], cmd)
	}
	return stages
}

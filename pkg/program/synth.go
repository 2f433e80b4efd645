package program

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/hafnium49/phosphobot/pkg/channels"
	"github.com/hafnium49/phosphobot/pkg/segment"
)

// ErrNoActorChannels indicates that no actor has any recognized channel
// after classification. An empty but well-typed program is never silently
// produced.
var ErrNoActorChannels = errors.New("no actor has any recognized channel")

// Request holds the compile inputs the synthesizer needs.
type Request struct {
	Dataset string
	Episode int
	// Actors is the ordered actor-to-role mapping (primary first). When
	// empty, DefaultActorMapping over the detected actors is used. Actors
	// missing from an explicit mapping are excluded from the program.
	Actors       []ActorRole
	Segmentation segment.Config
}

// DefaultActorMapping assigns the left (or single) actor to the primary arm
// and the right actor to the secondary arm. Additional actors are appended
// in name order as secondary arms of their own name.
func DefaultActorMapping(sets []*channels.ActorChannelSet) []ActorRole {
	var mapping []ActorRole
	for _, s := range sets {
		switch s.Actor {
		case channels.ActorLeft:
			mapping = append(mapping, ActorRole{Actor: s.Actor, Role: "primary", Arm: "so101_left"})
		case channels.ActorRight:
			mapping = append(mapping, ActorRole{Actor: s.Actor, Role: "secondary", Arm: "so101_right"})
		default:
			mapping = append(mapping, ActorRole{Actor: s.Actor, Role: "secondary", Arm: "so101_" + s.Actor})
		}
	}
	return mapping
}

// Synthesize renders the global waypoint timeline into an ordered command
// list. Commands are grouped by ascending frame; within one frame, actors
// follow the mapping order. At each of its own waypoint frames an actor
// emits a Cartesian move when it has a pose channel, otherwise a joint move,
// plus a gripper set when a gripper channel exists. An actor whose plateau
// set does not include a frame contributes nothing at that step.
func Synthesize(req Request, sets []*channels.ActorChannelSet) (*Artifact, error) {
	recognized := make(map[string]*channels.ActorChannelSet)
	for _, s := range sets {
		if s.HasRecognized() {
			recognized[s.Actor] = s
		}
	}
	if len(recognized) == 0 {
		return nil, ErrNoActorChannels
	}

	mapping := req.Actors
	if len(mapping) == 0 {
		ordered := make([]*channels.ActorChannelSet, 0, len(recognized))
		for _, s := range sets {
			if s.HasRecognized() {
				ordered = append(ordered, s)
			}
		}
		mapping = DefaultActorMapping(ordered)
	}

	// Segment each mapped actor independently; the union of representative
	// frames forms the global timeline.
	waypoints := make(map[string]map[int]bool)
	frameSet := make(map[int]bool)
	for _, role := range mapping {
		s, ok := recognized[role.Actor]
		if !ok {
			continue
		}
		reps := make(map[int]bool)
		for _, p := range segment.Detect(motionSignal(s), req.Segmentation) {
			reps[p.Rep] = true
			frameSet[p.Rep] = true
		}
		waypoints[role.Actor] = reps
	}

	frames := make([]int, 0, len(frameSet))
	for f := range frameSet {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	var commands []Command
	for _, frame := range frames {
		for _, role := range mapping {
			s, ok := recognized[role.Actor]
			if !ok || !waypoints[role.Actor][frame] {
				continue
			}
			commands = append(commands, actorCommands(s, frame)...)
		}
	}

	return &Artifact{
		Header: Header{
			SourceDataset:     req.Dataset,
			EpisodeIndex:      req.Episode,
			ActorMapping:      mapping,
			VelocityThreshold: req.Segmentation.VelocityThreshold,
			WindowSize:        req.Segmentation.WindowSize,
			Policy:            string(req.Segmentation.Policy),
			ContentHash:       ContentHash(req.Dataset, req.Episode, mapping, req.Segmentation),
		},
		Commands: commands,
	}, nil
}

// motionSignal picks the matrix the actor is segmented over: joint positions
// when available, otherwise the Cartesian pose. Gripper-only actors have no
// motion signal and produce no plateaus.
func motionSignal(s *channels.ActorChannelSet) *mat.Dense {
	if s.JointPositions != nil {
		return s.JointPositions
	}
	return s.CartesianPose
}

func actorCommands(s *channels.ActorChannelSet, frame int) []Command {
	var out []Command
	switch {
	case s.CartesianPose != nil:
		out = append(out, Command{
			Op:     OpCartesianMove,
			Actor:  s.Actor,
			Frame:  frame,
			Values: rowValues(s.CartesianPose, frame),
		})
	case s.JointPositions != nil:
		out = append(out, Command{
			Op:     OpJointMove,
			Actor:  s.Actor,
			Frame:  frame,
			Values: rowValues(s.JointPositions, frame),
		})
	}
	if s.Gripper != nil {
		out = append(out, Command{
			Op:     OpGripperSet,
			Actor:  s.Actor,
			Frame:  frame,
			Values: []float64{s.Gripper.At(frame, 0)},
		})
	}
	return out
}

func rowValues(m *mat.Dense, frame int) []float64 {
	_, width := m.Dims()
	row := make([]float64, width)
	for j := 0; j < width; j++ {
		row[j] = m.At(frame, j)
	}
	return row
}

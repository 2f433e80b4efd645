package channels

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ChannelKind is the semantic kind assigned to a column group.
type ChannelKind string

const (
	KindJointPositions ChannelKind = "joint_positions"
	KindCartesianPose  ChannelKind = "cartesian_pose"
	KindGripper        ChannelKind = "gripper"
)

// Actor identifiers. A demonstration with a single unnamed actor maps to
// ActorLeft.
const (
	ActorLeft  = "left"
	ActorRight = "right"
)

// ActorChannelSet holds the classified channels for one actor. At least one
// of the three recognized channels is present for actors that survive
// classification; groups that matched no rule are retained in Unclassified
// so all table columns remain inspectable.
type ActorChannelSet struct {
	Actor          string
	JointPositions *mat.Dense // frames x jointCount
	CartesianPose  *mat.Dense // frames x 6 (x, y, z, roll, pitch, yaw)
	Gripper        *mat.Dense // frames x 1
	Unclassified   map[string]*mat.Dense
}

// HasRecognized reports whether any recognized channel is present.
func (s *ActorChannelSet) HasRecognized() bool {
	return s.JointPositions != nil || s.CartesianPose != nil || s.Gripper != nil
}

// Pose component suffixes in canonical order.
var poseRank = map[string]int{
	"x": 0, "y": 1, "z": 2,
	"rx": 3, "ry": 4, "rz": 5,
	"roll": 3, "pitch": 4, "yaw": 5,
}

var indexedSuffixRe = regexp.MustCompile(`^(.*?)_?(\d+)$`)

// member is one column assigned to a group, with its deterministic ordering
// rank (numeric-aware, so motor_2 sorts before motor_10).
type member struct {
	name string
	col  *Column
	rank int
}

type group struct {
	actor   string
	name    string // semantic name matched against rules
	members []member
}

// Classify partitions normalized columns into per-actor channel sets using
// the given rules (DefaultRules when nil). It returns the sets ordered
// left-then-right plus human-readable warnings for anything that failed
// classification. Classification failures are never errors: unmatched groups
// are retained as diagnostics, and actors without any recognized channel are
// reported in the warnings.
func Classify(nm *NormalizedMatrix, rules []Rule) ([]*ActorChannelSet, []string) {
	if rules == nil {
		rules = DefaultRules()
	}

	groups := make(map[string]*group)
	names := make([]string, 0, len(nm.Columns))
	for name := range nm.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		col := nm.Columns[name]
		actor := actorOf(name)
		gname, rank := groupOf(name)
		key := actor + "\x00" + gname
		g, ok := groups[key]
		if !ok {
			g = &group{actor: actor, name: gname}
			groups[key] = g
		}
		g.members = append(g.members, member{name: name, col: col, rank: rank})
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make(map[string]*ActorChannelSet)
	var warnings []string

	for _, k := range keys {
		g := groups[k]
		sort.Slice(g.members, func(i, j int) bool {
			if g.members[i].rank != g.members[j].rank {
				return g.members[i].rank < g.members[j].rank
			}
			return g.members[i].name < g.members[j].name
		})

		data, width := concat(nm.Frames, g.members)
		set, ok := sets[g.actor]
		if !ok {
			set = &ActorChannelSet{Actor: g.actor, Unclassified: make(map[string]*mat.Dense)}
			sets[g.actor] = set
		}

		kind, matched := matchRules(rules, g.name, width)
		if !matched {
			set.Unclassified[g.name] = data
			continue
		}
		if prev := set.channel(kind); prev != nil {
			warnings = append(warnings, fmt.Sprintf(
				"actor %q: group %q also classifies as %s; keeping earlier group, retaining this one unclassified",
				g.actor, g.name, kind))
			set.Unclassified[g.name] = data
			continue
		}
		set.setChannel(kind, data)
	}

	ordered := orderSets(sets)
	for _, s := range ordered {
		if !s.HasRecognized() {
			warnings = append(warnings, fmt.Sprintf(
				"actor %q: no recognized channels (%d unclassified groups)", s.Actor, len(s.Unclassified)))
		}
	}
	return ordered, warnings
}

func (s *ActorChannelSet) channel(kind ChannelKind) *mat.Dense {
	switch kind {
	case KindJointPositions:
		return s.JointPositions
	case KindCartesianPose:
		return s.CartesianPose
	case KindGripper:
		return s.Gripper
	}
	return nil
}

func (s *ActorChannelSet) setChannel(kind ChannelKind, m *mat.Dense) {
	switch kind {
	case KindJointPositions:
		s.JointPositions = m
	case KindCartesianPose:
		s.CartesianPose = m
	case KindGripper:
		s.Gripper = m
	}
}

// actorOf infers the actor from the column name. Secondary/right-tagged
// columns belong to the right arm; everything else to the left (or single)
// arm.
func actorOf(name string) string {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "secondary") || strings.Contains(lower, "right") {
		return ActorRight
	}
	return ActorLeft
}

// groupOf derives the group's semantic name and the column's rank within it.
// The actor tag and any trailing numeric index are stripped so
// "observation.state | motor_3_secondary" groups under
// "observation.state | motor" with rank 3.
func groupOf(name string) (string, int) {
	cleaned := stripActorTag(name)
	prefix, suffix, found := strings.Cut(cleaned, SeriesDelim)
	if !found || suffix == "" {
		return prefix, 0
	}
	if rank, ok := poseRank[strings.ToLower(suffix)]; ok {
		return prefix, rank
	}
	if m := indexedSuffixRe.FindStringSubmatch(suffix); m != nil {
		rank, _ := strconv.Atoi(m[2])
		if m[1] == "" {
			return prefix, rank
		}
		return prefix + SeriesDelim + m[1], rank
	}
	return prefix + SeriesDelim + suffix, 0
}

func stripActorTag(name string) string {
	for _, tag := range []string{"_secondary", "_right", "_left"} {
		name = strings.ReplaceAll(name, tag, "")
	}
	return name
}

// concat stacks group members horizontally into one (frames x width) matrix.
func concat(frames int, members []member) (*mat.Dense, int) {
	width := 0
	for _, m := range members {
		width += m.col.Width
	}
	if frames == 0 || width == 0 {
		return nil, width
	}
	out := mat.NewDense(frames, width, nil)
	off := 0
	for _, m := range members {
		if m.col.Data == nil {
			off += m.col.Width
			continue
		}
		for r := 0; r < frames; r++ {
			for c := 0; c < m.col.Width; c++ {
				out.Set(r, off+c, m.col.Data.At(r, c))
			}
		}
		off += m.col.Width
	}
	return out, width
}

func orderSets(sets map[string]*ActorChannelSet) []*ActorChannelSet {
	actors := make([]string, 0, len(sets))
	for a := range sets {
		actors = append(actors, a)
	}
	sort.Slice(actors, func(i, j int) bool {
		return actorOrder(actors[i]) < actorOrder(actors[j])
	})
	out := make([]*ActorChannelSet, 0, len(actors))
	for _, a := range actors {
		out = append(out, sets[a])
	}
	return out
}

func actorOrder(actor string) string {
	switch actor {
	case ActorLeft:
		return "0"
	case ActorRight:
		return "1"
	}
	return "2" + actor
}

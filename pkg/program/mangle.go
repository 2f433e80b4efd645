package program

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/mangle/parse"
)

// RenderMangle renders the artifact as a Mangle source file for the
// forward-chaining rule engine that executes generated programs. Commands
// are emitted as facts grouped into stages (one stage per waypoint frame):
//
//	waypoint(Stage, Frame).
//	command(Stage, Actor, Op).
//	command_arg(Stage, Actor, Op, Index, Value).
//
// The rendered source is syntax-checked with the Mangle parser before being
// returned; a render that does not parse is a bug, not an input error.
func RenderMangle(a *Artifact) (string, error) {
	if !isFinite(a.Header.VelocityThreshold) {
		return "", fmt.Errorf("velocity threshold %v is not finite", a.Header.VelocityThreshold)
	}
	for _, cmd := range a.Commands {
		for _, v := range cmd.Values {
			if !isFinite(v) {
				return "", fmt.Errorf("%s for actor %q at frame %d: non-finite value %v",
					cmd.Op, cmd.Actor, cmd.Frame, v)
			}
		}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "# Autogenerated replay program. Do not edit.\n")
	fmt.Fprintf(&b, "# Dataset: %s (episode %d)\n", a.Header.SourceDataset, a.Header.EpisodeIndex)
	fmt.Fprintf(&b, "# Content-Hash: %s\n\n", a.Header.ContentHash)

	fmt.Fprintf(&b, "dataset(%q).\n", a.Header.SourceDataset)
	fmt.Fprintf(&b, "episode(%d).\n", a.Header.EpisodeIndex)
	fmt.Fprintf(&b, "content_hash(%q).\n", a.Header.ContentHash)
	fmt.Fprintf(&b, "param(/velocity_threshold, %s).\n", formatFloat(a.Header.VelocityThreshold))
	fmt.Fprintf(&b, "param(/window_size, %d).\n", a.Header.WindowSize)
	fmt.Fprintf(&b, "param(/policy, /%s).\n", mangleName(a.Header.Policy))
	for _, role := range a.Header.ActorMapping {
		fmt.Fprintf(&b, "arm(/%s, /%s, %q).\n", mangleName(role.Actor), mangleName(role.Role), role.Arm)
	}
	b.WriteString("\n")

	stage := -1
	lastFrame := -1
	for _, cmd := range a.Commands {
		if cmd.Frame != lastFrame {
			stage++
			lastFrame = cmd.Frame
			fmt.Fprintf(&b, "waypoint(%d, %d).\n", stage, cmd.Frame)
		}
		actor := mangleName(cmd.Actor)
		op := mangleName(string(cmd.Op))
		fmt.Fprintf(&b, "command(%d, /%s, /%s).\n", stage, actor, op)
		for i, v := range cmd.Values {
			fmt.Fprintf(&b, "command_arg(%d, /%s, /%s, %d, %s).\n", stage, actor, op, i, formatFloat(v))
		}
	}
	fmt.Fprintf(&b, "stage_count(%d).\n\n", stage+1)

	b.WriteString("stage(S) :- waypoint(S, _).\n")

	src := b.String()
	if _, err := parse.Unit(strings.NewReader(src)); err != nil {
		return "", fmt.Errorf("rendered program does not parse: %w", err)
	}
	return src, nil
}

var nonNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

// mangleName sanitizes an identifier into a Mangle name constant segment.
func mangleName(s string) string {
	s = nonNameRe.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unnamed"
	}
	return s
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// formatFloat prints a finite float without exponent notation so the Mangle
// parser always accepts it; integer-valued floats gain a trailing ".0" to
// stay float-typed.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

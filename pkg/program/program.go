// Package program synthesizes replayable robot command sequences from
// classified demonstration channels and segmentation waypoints, and renders
// them as JSON artifacts or Mangle rule-engine sources.
package program

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/hafnium49/phosphobot/pkg/segment"
)

// Op identifies a primitive robot command.
type Op string

const (
	OpJointMove     Op = "joint_move"
	OpCartesianMove Op = "cartesian_move"
	OpGripperSet    Op = "gripper_set"
)

// Command is one primitive step of the generated program. Values holds the
// joint vector for a joint move, the 6-element pose (x, y, z, roll, pitch,
// yaw) for a Cartesian move, or a single scalar in [0, 1] for a gripper set.
// Frame is the source frame index, kept for traceability.
type Command struct {
	Op     Op        `json:"op"`
	Actor  string    `json:"actor"`
	Frame  int       `json:"frame"`
	Values []float64 `json:"values"`
}

// ActorRole maps a detected actor to its replay role and target arm.
type ActorRole struct {
	Actor string `json:"actor"`
	Role  string `json:"role"` // "primary" or "secondary"
	Arm   string `json:"arm"`  // target arm identifier, e.g. "so101_left"
}

// Header carries the provenance of a generated program. All fields are
// deterministic functions of the compile inputs, so recompiling the same
// (dataset, episode, parameters) yields a byte-identical artifact.
type Header struct {
	SourceDataset     string      `json:"source_dataset"`
	EpisodeIndex      int         `json:"episode_index"`
	ActorMapping      []ActorRole `json:"actor_mapping"`
	VelocityThreshold float64     `json:"velocity_threshold"`
	WindowSize        int         `json:"window_size"`
	Policy            string      `json:"policy"`
	ContentHash       string      `json:"content_hash"`
}

// Artifact is the compiled program: an immutable ordered command list plus
// its provenance header.
type Artifact struct {
	Header   Header    `json:"header"`
	Commands []Command `json:"commands"`
}

// EncodeJSON renders the artifact as indented JSON. Field order is fixed by
// the struct definitions, so the encoding is deterministic.
func (a *Artifact) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// DecodeJSON parses an artifact previously written by EncodeJSON.
func DecodeJSON(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ContentHash computes the provenance digest over a canonical serialization
// of the compile inputs. Recomputing from the same inputs is bit-identical.
func ContentHash(dataset string, episode int, actors []ActorRole, cfg segment.Config) string {
	payload := struct {
		Dataset           string      `json:"dataset"`
		Episode           int         `json:"episode"`
		ActorMapping      []ActorRole `json:"actor_mapping"`
		VelocityThreshold float64     `json:"velocity_threshold"`
		WindowSize        int         `json:"window_size"`
		Policy            string      `json:"policy"`
	}{dataset, episode, actors, cfg.VelocityThreshold, cfg.WindowSize, string(cfg.Policy)}

	b, err := json.Marshal(payload)
	if err != nil {
		// Only reachable with non-serializable fields, which the struct
		// above cannot contain.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

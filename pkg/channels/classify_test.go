package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafnium49/phosphobot/pkg/dataset"
)

func normalized(t *testing.T, columns map[string][]any, frameCount int) *NormalizedMatrix {
	t.Helper()
	nm, err := Normalize(&dataset.RawTable{Frames: frameCount, Columns: columns})
	require.NoError(t, err)
	return nm
}

func TestClassify_SingleArm(t *testing.T) {
	nm := normalized(t, map[string][]any{
		"observation.state | motor_0": frames(1, 1),
		"observation.state | motor_1": frames(2, 2),
		"observation.state | motor_2": frames(3, 3),
		"observation.state | motor_3": frames(4, 4),
		"observation.state | motor_4": frames(5, 5),
		"observation.state | gripper": frames(0, 1),
	}, 2)

	sets, warnings := Classify(nm, nil)

	require.Len(t, sets, 1)
	assert.Empty(t, warnings)

	set := sets[0]
	assert.Equal(t, ActorLeft, set.Actor)
	require.NotNil(t, set.JointPositions)
	require.NotNil(t, set.Gripper)
	assert.Nil(t, set.CartesianPose)

	_, width := set.JointPositions.Dims()
	assert.Equal(t, 5, width)
	for j := 0; j < 5; j++ {
		assert.Equal(t, float64(j+1), set.JointPositions.At(0, j), "motor %d out of order", j)
	}
}

func TestClassify_NumericSuffixOrdering(t *testing.T) {
	// Lexicographic sorting would place motor_10 before motor_2.
	nm := normalized(t, map[string][]any{
		"observation.state | motor_0":  frames(0, 0),
		"observation.state | motor_2":  frames(2, 2),
		"observation.state | motor_10": frames(10, 10),
	}, 2)

	sets, _ := Classify(nm, nil)

	require.Len(t, sets, 1)
	jp := sets[0].JointPositions
	require.NotNil(t, jp)
	assert.Equal(t, 0.0, jp.At(0, 0))
	assert.Equal(t, 2.0, jp.At(0, 1))
	assert.Equal(t, 10.0, jp.At(0, 2))
}

func TestClassify_DualArm(t *testing.T) {
	nm := normalized(t, map[string][]any{
		"observation.state | motor_0":           frames(1, 1),
		"observation.state | motor_1":           frames(2, 2),
		"observation.state | gripper":           frames(0, 0),
		"observation.state | motor_0_secondary": frames(10, 10),
		"observation.state | motor_1_secondary": frames(20, 20),
		"observation.state | gripper_secondary": frames(1, 1),
	}, 2)

	sets, warnings := Classify(nm, nil)

	require.Len(t, sets, 2)
	assert.Empty(t, warnings)
	assert.Equal(t, ActorLeft, sets[0].Actor)
	assert.Equal(t, ActorRight, sets[1].Actor)

	require.NotNil(t, sets[1].JointPositions)
	assert.Equal(t, 10.0, sets[1].JointPositions.At(0, 0))
	require.NotNil(t, sets[1].Gripper)
	assert.Equal(t, 1.0, sets[1].Gripper.At(0, 0))
}

func TestClassify_PoseComponentOrdering(t *testing.T) {
	nm := normalized(t, map[string][]any{
		"ee_pose | yaw":   frames(6, 6),
		"ee_pose | x":     frames(1, 1),
		"ee_pose | pitch": frames(5, 5),
		"ee_pose | y":     frames(2, 2),
		"ee_pose | roll":  frames(4, 4),
		"ee_pose | z":     frames(3, 3),
	}, 2)

	sets, _ := Classify(nm, nil)

	require.Len(t, sets, 1)
	pose := sets[0].CartesianPose
	require.NotNil(t, pose)
	_, width := pose.Dims()
	require.Equal(t, 6, width)
	for j := 0; j < 6; j++ {
		assert.Equal(t, float64(j+1), pose.At(0, j), "pose component %d out of order", j)
	}
}

func TestClassify_UnmatchedGroupsRetained(t *testing.T) {
	nm := normalized(t, map[string][]any{
		"observation.state | motor_0": frames(1, 1),
		"battery | level":             frames(98, 97),
	}, 2)

	sets, warnings := Classify(nm, nil)

	require.Len(t, sets, 1)
	assert.Empty(t, warnings)
	assert.Contains(t, sets[0].Unclassified, "battery | level")
}

func TestClassify_ActorWithoutRecognizedChannels(t *testing.T) {
	nm := normalized(t, map[string][]any{
		"battery | level": frames(98, 97),
	}, 2)

	sets, warnings := Classify(nm, nil)

	require.Len(t, sets, 1)
	assert.False(t, sets[0].HasRecognized())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no recognized channels")
}

func TestClassify_DuplicateKindCollision(t *testing.T) {
	// Both groups classify as joint positions; the second one (in sorted
	// group order) must fall back to unclassified with a warning.
	nm := normalized(t, map[string][]any{
		"joint_angles":                vecFrames([]float64{1, 2}, []float64{1, 2}),
		"observation.state | motor_0": frames(9, 9),
	}, 2)

	sets, warnings := Classify(nm, nil)

	require.Len(t, sets, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "also classifies as joint_positions")

	set := sets[0]
	require.NotNil(t, set.JointPositions)
	assert.Equal(t, 1.0, set.JointPositions.At(0, 0))
	assert.Contains(t, set.Unclassified, "observation.state | motor")
}

func TestClassify_CustomRules(t *testing.T) {
	rules := []Rule{
		{Pattern: `(?i)hand`, Kind: KindGripper, Width: 1},
	}
	for i := range rules {
		require.NoError(t, rules[i].compile())
	}

	nm := normalized(t, map[string][]any{
		"hand_state": frames(0, 1),
	}, 2)

	sets, _ := Classify(nm, rules)

	require.Len(t, sets, 1)
	assert.NotNil(t, sets[0].Gripper)
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafnium49/phosphobot/pkg/channels"
)

func TestCompileCommand_ActorMapping(t *testing.T) {
	// All flags at defaults: no explicit mapping, so the compiler derives it
	// from the detected actors and single-actor episodes stay single-arm.
	c := CompileCommand{LeftArm: "so101_left", RightArm: "so101_right"}
	assert.Nil(t, c.actorMapping())

	c = CompileCommand{SingleArm: true, LeftArm: "so101_left", RightArm: "so101_right"}
	mapping := c.actorMapping()
	require.Len(t, mapping, 1)
	assert.Equal(t, channels.ActorLeft, mapping[0].Actor)
	assert.Equal(t, "primary", mapping[0].Role)

	c = CompileCommand{LeftArm: "so101_left", RightArm: "bench_right"}
	mapping = c.actorMapping()
	require.Len(t, mapping, 2)
	assert.Equal(t, "bench_right", mapping[1].Arm)
}

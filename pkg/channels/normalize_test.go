package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hafnium49/phosphobot/pkg/dataset"
)

func frames(values ...float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func vecFrames(rows ...[]float64) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		elem := make([]any, len(row))
		for j, v := range row {
			elem[j] = v
		}
		out[i] = elem
	}
	return out
}

func TestNormalize_ScalarAndVector(t *testing.T) {
	table := &dataset.RawTable{
		Frames: 3,
		Columns: map[string][]any{
			"gripper": frames(0, 0.5, 1),
			"state":   vecFrames([]float64{1, 2}, []float64{3, 4}, []float64{5, 6}),
		},
	}

	nm, err := Normalize(table)
	require.NoError(t, err)
	require.Len(t, nm.Columns, 2)

	scalar := nm.Columns["gripper"]
	assert.Equal(t, ColumnScalar, scalar.Kind)
	assert.Equal(t, 1, scalar.Width)
	assert.Equal(t, 0.5, scalar.Data.At(1, 0))

	vec := nm.Columns["state"]
	assert.Equal(t, ColumnVector, vec.Kind)
	assert.Equal(t, 2, vec.Width)
	assert.Equal(t, 4.0, vec.Data.At(1, 1))
}

func TestNormalize_MixedNumericTypes(t *testing.T) {
	table := &dataset.RawTable{
		Frames:  3,
		Columns: map[string][]any{"state": {float64(1), int(2), int64(3)}},
	}

	nm, err := Normalize(table)
	require.NoError(t, err)
	assert.Equal(t, 2.0, nm.Columns["state"].Data.At(1, 0))
}

func TestNormalize_DropsHousekeeping(t *testing.T) {
	table := &dataset.RawTable{
		Frames: 2,
		Columns: map[string][]any{
			"timestamp":               frames(0.0, 0.033),
			"frame_index":             frames(0, 1),
			"episode_index":           frames(0, 0),
			"index":                   frames(0, 1),
			"task_index":              frames(0, 0),
			"timestamp | sub":         frames(0, 1),
			"observation.state | m_0": frames(1, 2),
		},
	}

	nm, err := Normalize(table)
	require.NoError(t, err)
	require.Len(t, nm.Columns, 1)
	assert.Contains(t, nm.Columns, "observation.state | m_0")
}

func TestNormalize_NonNumericContent(t *testing.T) {
	table := &dataset.RawTable{
		Frames:  2,
		Columns: map[string][]any{"task": {"pick", "place"}},
	}

	_, err := Normalize(table)

	var convErr *TypeConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "task", convErr.Column)
}

func TestNormalize_RaggedVector(t *testing.T) {
	table := &dataset.RawTable{
		Frames:  2,
		Columns: map[string][]any{"state": vecFrames([]float64{1, 2, 3}, []float64{4, 5})},
	}

	_, err := Normalize(table)

	var schemaErr *dataset.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "state", schemaErr.Column)
}

func TestNormalize_MixedScalarVector(t *testing.T) {
	table := &dataset.RawTable{
		Frames:  2,
		Columns: map[string][]any{"state": {[]any{float64(1)}, float64(2)}},
	}

	_, err := Normalize(table)

	var schemaErr *dataset.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestNormalize_EmptyColumn(t *testing.T) {
	table := &dataset.RawTable{
		Frames:  0,
		Columns: map[string][]any{"state": {}},
	}

	nm, err := Normalize(table)
	require.NoError(t, err)
	col := nm.Columns["state"]
	assert.Equal(t, 0, col.Frames)
	assert.Nil(t, col.Data)
}

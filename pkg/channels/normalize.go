// Package channels normalizes raw demonstration columns into rectangular
// float64 matrices and partitions them into semantic channels per actor:
// joint positions, Cartesian pose and gripper state.
package channels

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/hafnium49/phosphobot/pkg/dataset"
)

// SeriesDelim separates a column's semantic prefix from its sub-series name,
// matching the LeRobot dataset visualizer convention
// ("observation.state | motor_0").
const SeriesDelim = " | "

// ColumnKind tags how a raw column resolved during normalization.
type ColumnKind int

const (
	ColumnInvalid ColumnKind = iota
	ColumnScalar
	ColumnVector
)

// Column is one normalized column: a (Frames x Width) float64 matrix.
// Data is nil when the column is empty (zero frames or zero width).
type Column struct {
	Name   string
	Kind   ColumnKind
	Width  int
	Frames int
	Data   *mat.Dense
}

// NormalizedMatrix maps column names to normalized columns. All columns
// share the same frame count.
type NormalizedMatrix struct {
	Frames  int
	Columns map[string]*Column
}

// TypeConversionError indicates non-numeric content in a supposedly numeric
// column.
type TypeConversionError struct {
	Column string
}

func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("column %q: non-numeric content", e.Column)
}

// Housekeeping columns carry no pose information and are dropped before
// classification regardless of type.
var housekeeping = map[string]bool{
	"timestamp":     true,
	"frame_index":   true,
	"episode_index": true,
	"index":         true,
	"task_index":    true,
}

func isHousekeeping(name string) bool {
	if housekeeping[name] {
		return true
	}
	prefix, _, found := strings.Cut(name, SeriesDelim)
	return found && housekeeping[prefix]
}

// Normalize resolves every informative raw column into a tagged, rectangular
// float64 matrix. Scalar columns become (frames x 1); vector columns are
// stacked row-major into (frames x width). Non-numeric content fails with a
// TypeConversionError naming the column.
func Normalize(t *dataset.RawTable) (*NormalizedMatrix, error) {
	nm := &NormalizedMatrix{
		Frames:  t.Frames,
		Columns: make(map[string]*Column),
	}
	for _, name := range t.ColumnNames() {
		if isHousekeeping(name) {
			continue
		}
		col, err := normalizeColumn(name, t.Columns[name])
		if err != nil {
			return nil, err
		}
		nm.Columns[name] = col
	}
	return nm, nil
}

func normalizeColumn(name string, values []any) (*Column, error) {
	frames := len(values)
	if frames == 0 {
		return &Column{Name: name, Kind: ColumnScalar, Width: 1, Frames: 0}, nil
	}

	if _, nested := values[0].([]any); nested {
		return normalizeVector(name, values)
	}

	data := make([]float64, frames)
	for i, v := range values {
		f, ok := toFloat(v)
		if !ok {
			if _, isVec := v.([]any); isVec {
				return nil, &dataset.SchemaError{Column: name, Reason: "mixes scalar and vector frames"}
			}
			return nil, &TypeConversionError{Column: name}
		}
		data[i] = f
	}
	return &Column{
		Name:   name,
		Kind:   ColumnScalar,
		Width:  1,
		Frames: frames,
		Data:   mat.NewDense(frames, 1, data),
	}, nil
}

func normalizeVector(name string, values []any) (*Column, error) {
	frames := len(values)
	width := len(values[0].([]any))
	if width == 0 {
		return &Column{Name: name, Kind: ColumnVector, Width: 0, Frames: frames}, nil
	}

	data := make([]float64, 0, frames*width)
	for i, v := range values {
		elem, ok := v.([]any)
		if !ok {
			return nil, &dataset.SchemaError{Column: name, Reason: "mixes scalar and vector frames"}
		}
		if len(elem) != width {
			return nil, &dataset.SchemaError{
				Column: name,
				Reason: fmt.Sprintf("frame %d has %d values, expected %d", i, len(elem), width),
			}
		}
		for _, e := range elem {
			f, ok := toFloat(e)
			if !ok {
				return nil, &TypeConversionError{Column: name}
			}
			data = append(data, f)
		}
	}
	return &Column{
		Name:   name,
		Kind:   ColumnVector,
		Width:  width,
		Frames: frames,
		Data:   mat.NewDense(frames, width, data),
	}, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

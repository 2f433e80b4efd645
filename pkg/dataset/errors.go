package dataset

import (
	"errors"
	"fmt"
)

// ErrDatasetNotFound indicates the dataset locator could not be resolved,
// either because the repository does not exist or access was denied.
var ErrDatasetNotFound = errors.New("dataset not found")

// EpisodeIndexError indicates the requested episode index exceeds the
// dataset's episode count.
type EpisodeIndexError struct {
	Episode int
	Total   int
}

func (e *EpisodeIndexError) Error() string {
	return fmt.Sprintf("episode %d out of range (dataset has %d episodes)", e.Episode, e.Total)
}

// SchemaError indicates a column with ragged or inconsistent nested values.
// It always names the offending column so misconfigured datasets are
// diagnosable without source inspection.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
}

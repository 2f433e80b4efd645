// Package dataset loads LeRobot-style demonstration episodes from a remote
// hub or a local directory.
//
// A dataset consists of a meta/info.json descriptor plus per-episode shards.
// The descriptor declares the total episode count, the shard path template
// and the feature (column) schema. A shard holds one episode as a
// column-oriented table: each column is either a flat numeric sequence (one
// scalar per frame) or a sequence of fixed-length numeric vectors (one vector
// per frame, e.g. packed joint states).
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Source fetches one episode of a demonstration dataset.
type Source interface {
	FetchEpisode(ctx context.Context, episode int) (*RawTable, *EpisodeMeta, error)
}

// RawTable is an episode's sample matrix as fetched. Values are untyped: a
// frame value is either a float64 or a []any of float64s. Type coercion
// happens downstream in the channel classifier; the loader only guarantees
// structural consistency (equal frame counts, non-ragged vectors).
type RawTable struct {
	Columns map[string][]any
	Frames  int
}

// ColumnNames returns the table's column names in sorted order.
func (t *RawTable) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EpisodeMeta describes where an episode came from.
type EpisodeMeta struct {
	Dataset   string
	Episode   int
	ShardPath string
	Columns   []string
	Frames    int
}

// Info is the parsed meta/info.json dataset descriptor.
type Info struct {
	TotalEpisodes int                    `json:"total_episodes"`
	DataPath      string                 `json:"data_path"`
	FPS           float64                `json:"fps"`
	Features      map[string]FeatureSpec `json:"features"`
}

// FeatureSpec describes one declared column.
type FeatureSpec struct {
	Dtype string `json:"dtype"`
	Shape []int  `json:"shape"`
	Names any    `json:"names"`
}

// Shards hold 1k episodes per chunk directory, per the LeRobot layout.
const episodesPerChunk = 1000

var pathVarRe = regexp.MustCompile(`\{(episode_chunk|episode_index)(?::0(\d+)d)?\}`)

// expandDataPath fills a descriptor path template such as
// "data/chunk-{episode_chunk:03d}/episode_{episode_index:06d}.json".
func expandDataPath(template string, episode int) string {
	chunk := episode / episodesPerChunk
	return pathVarRe.ReplaceAllStringFunc(template, func(m string) string {
		parts := pathVarRe.FindStringSubmatch(m)
		val := chunk
		if parts[1] == "episode_index" {
			val = episode
		}
		if parts[2] == "" {
			return strconv.Itoa(val)
		}
		width, _ := strconv.Atoi(parts[2])
		return fmt.Sprintf("%0*d", width, val)
	})
}

func parseInfo(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse dataset descriptor: %w", err)
	}
	return &info, nil
}

// shardFile is the on-disk episode shard layout.
type shardFile struct {
	EpisodeIndex int              `json:"episode_index"`
	Columns      map[string][]any `json:"columns"`
}

// parseShard decodes a shard and validates its structure: every column must
// have the same frame count, and nested per-frame vectors within one column
// must all have the same length.
func parseShard(data []byte) (*RawTable, error) {
	var sf shardFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse shard: %w", err)
	}

	table := &RawTable{Columns: sf.Columns}

	frames := -1
	for _, name := range table.ColumnNames() {
		values := sf.Columns[name]
		if frames == -1 {
			frames = len(values)
		} else if len(values) != frames {
			return nil, &SchemaError{
				Column: name,
				Reason: fmt.Sprintf("has %d frames, expected %d", len(values), frames),
			}
		}
		if err := checkNesting(name, values); err != nil {
			return nil, err
		}
	}
	if frames == -1 {
		frames = 0
	}
	table.Frames = frames
	return table, nil
}

func checkNesting(name string, values []any) error {
	width := -1
	nested := false
	for i, v := range values {
		elem, ok := v.([]any)
		if i == 0 {
			nested = ok
		}
		if ok != nested {
			return &SchemaError{Column: name, Reason: "mixes scalar and vector frames"}
		}
		if !ok {
			continue
		}
		if width == -1 {
			width = len(elem)
		} else if len(elem) != width {
			return &SchemaError{
				Column: name,
				Reason: fmt.Sprintf("frame %d has %d values, expected %d", i, len(elem), width),
			}
		}
	}
	return nil
}

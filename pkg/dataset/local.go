package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalSource reads a dataset from a directory laid out like a hub
// repository: meta/info.json plus shard files resolved against the
// descriptor's data path template.
type LocalSource struct {
	Dir string
}

// NewLocalSource creates a source rooted at dir.
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{Dir: dir}
}

// FetchEpisode reads the descriptor and the episode's shard from disk.
func (s *LocalSource) FetchEpisode(_ context.Context, episode int) (*RawTable, *EpisodeMeta, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, "meta", "info.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s: %w", s.Dir, ErrDatasetNotFound)
		}
		return nil, nil, fmt.Errorf("read dataset descriptor: %w", err)
	}
	info, err := parseInfo(data)
	if err != nil {
		return nil, nil, err
	}
	if episode < 0 || episode >= info.TotalEpisodes {
		return nil, nil, &EpisodeIndexError{Episode: episode, Total: info.TotalEpisodes}
	}

	shardPath := expandDataPath(info.DataPath, episode)
	shard, err := os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(shardPath)))
	if err != nil {
		return nil, nil, fmt.Errorf("read shard %s: %w", shardPath, err)
	}

	table, err := parseShard(shard)
	if err != nil {
		return nil, nil, err
	}
	return table, &EpisodeMeta{
		Dataset:   s.Dir,
		Episode:   episode,
		ShardPath: shardPath,
		Columns:   table.ColumnNames(),
		Frames:    table.Frames,
	}, nil
}

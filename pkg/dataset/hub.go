package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultHubBase is the default dataset hub root.
const DefaultHubBase = "https://huggingface.co/datasets"

// Doer abstracts the HTTP client so tests can run against canned responses.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HubSource fetches episodes from a remote dataset hub. Shards are cached
// locally when a Cache is configured; caching is an optimization only, the
// returned bytes are identical either way.
type HubSource struct {
	BaseURL string
	Repo    string
	Client  Doer
	Cache   *Cache
}

// NewHubSource creates a source for a hub repository id such as "org/name".
// A nil cache disables shard caching.
func NewHubSource(repo string, cache *Cache) *HubSource {
	return &HubSource{
		BaseURL: DefaultHubBase,
		Repo:    repo,
		Client:  http.DefaultClient,
		Cache:   cache,
	}
}

// FetchEpisode downloads the dataset descriptor and the episode's shard.
func (s *HubSource) FetchEpisode(ctx context.Context, episode int) (*RawTable, *EpisodeMeta, error) {
	infoURL := fmt.Sprintf("%s/%s/resolve/main/meta/info.json", s.BaseURL, s.Repo)
	data, err := s.get(ctx, infoURL)
	if err != nil {
		return nil, nil, err
	}
	info, err := parseInfo(data)
	if err != nil {
		return nil, nil, err
	}
	if episode < 0 || episode >= info.TotalEpisodes {
		return nil, nil, &EpisodeIndexError{Episode: episode, Total: info.TotalEpisodes}
	}

	shardPath := expandDataPath(info.DataPath, episode)
	shardURL := fmt.Sprintf("%s/%s/resolve/main/%s", s.BaseURL, s.Repo, shardPath)

	var shard []byte
	if s.Cache != nil {
		shard, err = s.Cache.Fetch(ctx, s.Client, shardURL)
	} else {
		shard, err = s.get(ctx, shardURL)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fetch shard %s: %w", shardPath, err)
	}

	table, err := parseShard(shard)
	if err != nil {
		return nil, nil, err
	}
	return table, &EpisodeMeta{
		Dataset:   s.Repo,
		Episode:   episode,
		ShardPath: shardPath,
		Columns:   table.ColumnNames(),
		Frames:    table.Frames,
	}, nil
}

func (s *HubSource) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return nil, fmt.Errorf("%s (status %d): %w", s.Repo, resp.StatusCode, ErrDatasetNotFound)
	default:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

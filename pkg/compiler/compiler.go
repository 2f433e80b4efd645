// Package compiler wires the demonstration-to-program pipeline: load one
// episode, normalize and classify its columns, segment each actor's motion
// into plateaus, and synthesize the replay program. Each stage produces a
// new immutable artifact; the compiler holds no cross-call state, so
// independent compiles may run concurrently.
package compiler

import (
	"context"
	"fmt"

	"github.com/hafnium49/phosphobot/pkg/channels"
	"github.com/hafnium49/phosphobot/pkg/dataset"
	"github.com/hafnium49/phosphobot/pkg/program"
	"github.com/hafnium49/phosphobot/pkg/segment"
)

// Options configures one compile invocation. The zero value uses the default
// classification rules, default segmentation parameters and a derived actor
// mapping.
type Options struct {
	Rules        []channels.Rule
	Segmentation segment.Config
	Actors       []program.ActorRole
}

// Result bundles the compiled artifact with the intermediate stages, kept
// for inspection and previewing.
type Result struct {
	Artifact *program.Artifact
	Meta     *dataset.EpisodeMeta
	Matrix   *channels.NormalizedMatrix
	Actors   []*channels.ActorChannelSet
	Warnings []string
}

// Compile runs the full pipeline for one episode of src.
func Compile(ctx context.Context, src dataset.Source, episode int, opts Options) (*Result, error) {
	if opts.Segmentation == (segment.Config{}) {
		opts.Segmentation = segment.DefaultConfig()
	}

	table, meta, err := src.FetchEpisode(ctx, episode)
	if err != nil {
		return nil, fmt.Errorf("load episode %d: %w", episode, err)
	}

	matrix, err := channels.Normalize(table)
	if err != nil {
		return nil, err
	}

	sets, warnings := channels.Classify(matrix, opts.Rules)

	artifact, err := program.Synthesize(program.Request{
		Dataset:      meta.Dataset,
		Episode:      meta.Episode,
		Actors:       opts.Actors,
		Segmentation: opts.Segmentation,
	}, sets)
	if err != nil {
		return nil, err
	}

	return &Result{
		Artifact: artifact,
		Meta:     meta,
		Matrix:   matrix,
		Actors:   sets,
		Warnings: warnings,
	}, nil
}

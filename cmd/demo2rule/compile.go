package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/hafnium49/phosphobot/pkg/channels"
	"github.com/hafnium49/phosphobot/pkg/compiler"
	"github.com/hafnium49/phosphobot/pkg/dataset"
	"github.com/hafnium49/phosphobot/pkg/program"
	"github.com/hafnium49/phosphobot/pkg/segment"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type CompileCommand struct {
	Dataset   string  `long:"dataset" description:"Hub repository id (org/name)"`
	Local     string  `long:"local" description:"Local dataset directory (takes precedence over --dataset)"`
	Episode   int     `long:"episode" default:"0" description:"Episode index"`
	Out       string  `long:"out" default:"rules_autogen.mg" description:"Output file"`
	Format    string  `long:"format" default:"mangle" choice:"mangle" choice:"json" description:"Output format"`
	VelThresh float64 `long:"vel-thresh" default:"0.03" description:"Velocity plateau threshold"`
	Window    int     `long:"window" default:"15" description:"Minimum plateau length in frames"`
	Policy    string  `long:"policy" default:"midpoint" choice:"first" choice:"midpoint" choice:"last" description:"Representative frame policy"`
	Rules     string  `long:"rules" description:"YAML channel classification rules file"`
	SingleArm bool    `long:"single-arm" description:"Map only the primary actor"`
	LeftArm   string  `long:"left-arm" default:"so101_left" description:"Primary arm identifier"`
	RightArm  string  `long:"right-arm" default:"so101_right" description:"Secondary arm identifier"`
	NoCache   bool    `long:"no-cache" description:"Disable the local shard cache"`
	CacheDir  string  `long:"cache-dir" description:"Shard cache directory"`
}

func (c *CompileCommand) Execute(args []string) error {
	src, cleanup, err := openSource(c.Dataset, c.Local, c.NoCache, c.CacheDir)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := compiler.Options{
		Segmentation: segment.Config{
			VelocityThreshold: c.VelThresh,
			WindowSize:        c.Window,
			Policy:            segment.Policy(c.Policy),
		},
		Actors: c.actorMapping(),
	}
	if c.Rules != "" {
		rules, err := channels.LoadRules(c.Rules)
		if err != nil {
			return err
		}
		opts.Rules = rules
	}

	result, err := compiler.Compile(context.Background(), src, c.Episode, opts)
	if err != nil {
		return err
	}

	var rendered []byte
	switch c.Format {
	case "json":
		rendered, err = result.Artifact.EncodeJSON()
	default:
		var src string
		src, err = program.RenderMangle(result.Artifact)
		rendered = []byte(src)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, rendered, 0o644); err != nil {
		return fmt.Errorf("write program: %w", err)
	}

	printSummary(result, c.Out)
	return nil
}

// actorMapping returns an explicit mapping only when the flags ask for one.
// With everything at defaults it returns nil, so the mapping is derived from
// the actors actually detected in the episode: a single-actor dataset then
// compiles to a single-arm program.
func (c *CompileCommand) actorMapping() []program.ActorRole {
	if !c.SingleArm && c.LeftArm == "so101_left" && c.RightArm == "so101_right" {
		return nil
	}
	mapping := []program.ActorRole{
		{Actor: channels.ActorLeft, Role: "primary", Arm: c.LeftArm},
	}
	if !c.SingleArm {
		mapping = append(mapping, program.ActorRole{
			Actor: channels.ActorRight, Role: "secondary", Arm: c.RightArm,
		})
	}
	return mapping
}

func printSummary(result *compiler.Result, out string) {
	fmt.Println(headerStyle.Render("demo2rule compile"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━"))
	fmt.Printf("Dataset:   %s (episode %d, %d frames)\n",
		result.Meta.Dataset, result.Meta.Episode, result.Meta.Frames)

	for _, s := range result.Actors {
		if !s.HasRecognized() {
			continue
		}
		fmt.Printf("Actor %-6s joints=%s pose=%s gripper=%s\n",
			s.Actor+":", hasMark(s.JointPositions != nil),
			hasMark(s.CartesianPose != nil), hasMark(s.Gripper != nil))
	}
	for _, w := range result.Warnings {
		fmt.Println(warnStyle.Render("warning: " + w))
	}

	fmt.Printf("Commands:  %d\n", len(result.Artifact.Commands))
	fmt.Printf("Hash:      %s\n", result.Artifact.Header.ContentHash)
	fmt.Println()
	fmt.Println(successStyle.Render("Wrote " + out))
}

func hasMark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

// openSource builds the dataset source for the given flags. The cleanup
// function closes the shard cache when one was opened.
func openSource(repo, local string, noCache bool, cacheDir string) (dataset.Source, func(), error) {
	noop := func() {}
	if local != "" {
		return dataset.NewLocalSource(local), noop, nil
	}
	if repo == "" {
		return nil, noop, fmt.Errorf("either --dataset or --local is required")
	}
	if noCache {
		return dataset.NewHubSource(repo, nil), noop, nil
	}
	if cacheDir == "" {
		cacheDir = dataset.DefaultCacheDir()
	}
	cache, err := dataset.OpenCache(cacheDir)
	if err != nil {
		return nil, noop, err
	}
	return dataset.NewHubSource(repo, cache), func() { cache.Close() }, nil
}

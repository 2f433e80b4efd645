package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Compile CompileCommand `command:"compile" description:"Compile a demonstration episode into a replay program"`
	Preview PreviewCommand `command:"preview" description:"Chart an episode's motion signal and detected plateaus"`
	Run     RunCommand     `command:"run" description:"Execute a compiled program on connected arms"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "demo2rule - compile tele-operated SO-101 demonstrations into replayable waypoint programs"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

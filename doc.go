// Package phosphobot compiles tele-operated SO-101 demonstrations into
// deterministic, replayable waypoint programs.
//
// A recorded demonstration is a noisy, continuous table of joint, pose and
// gripper samples. The compiler turns it into a compact sequence of discrete
// robot commands: it loads one episode, classifies columns into per-actor
// channels, detects velocity plateaus (effectively static poses) in each
// actor's motion signal, and emits one command group per plateau with a
// provenance hash so compiled programs are reproducible.
//
// # Usage
//
// Compile an episode from a dataset hub into a rule-engine program:
//
//	demo2rule compile --dataset org/name --episode 0 --out pick_place.mg
//
// Inspect the motion signal and detected plateaus first:
//
//	demo2rule preview --dataset org/name --episode 0
//
// Execute a compiled program (JSON format) on connected arms:
//
//	demo2rule compile --dataset org/name --format json --out pick_place.json
//	demo2rule run --program pick_place.json
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/demo2rule: CLI with compile, preview and run commands
//   - pkg/dataset: episode loading from a hub or local directory, shard cache
//   - pkg/channels: column normalization and per-actor channel classification
//   - pkg/segment: velocity-plateau segmentation
//   - pkg/program: command synthesis, provenance, JSON and Mangle rendering
//   - pkg/compiler: pipeline glue from dataset to artifact
//   - pkg/robot: SO-101 arm control, calibration, and configuration
//   - pkg/replay: program execution on connected arms
package phosphobot

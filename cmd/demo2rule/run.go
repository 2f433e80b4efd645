package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/hafnium49/phosphobot/pkg/program"
	"github.com/hafnium49/phosphobot/pkg/replay"
	"github.com/hafnium49/phosphobot/pkg/robot"
)

type RunCommand struct {
	Program string        `long:"program" required:"true" description:"Compiled program file (JSON format)"`
	Config  string        `long:"config" default:"so101.json" description:"Robot configuration file"`
	Delay   time.Duration `long:"delay" default:"2s" description:"Settle time per waypoint"`
	Yes     bool          `long:"yes" description:"Skip the confirmation prompt"`
}

func (c *RunCommand) Execute(args []string) error {
	data, err := os.ReadFile(c.Program)
	if err != nil {
		return fmt.Errorf("read program: %w", err)
	}
	artifact, err := program.DecodeJSON(data)
	if err != nil {
		return fmt.Errorf("parse program: %w", err)
	}

	var cfg *robot.Config
	if c.Config == robot.DefaultConfigFile {
		if !robot.ConfigExists() {
			return fmt.Errorf("robot config %s not found (point --config at one)", robot.DefaultConfigFile)
		}
		cfg, err = robot.LoadConfig()
	} else {
		cfg, err = robot.LoadConfigFrom(c.Config)
	}
	if err != nil {
		return fmt.Errorf("load robot config: %w", err)
	}

	arms, closeArms, err := connectArms(cfg, artifact)
	if err != nil {
		return err
	}
	defer closeArms()

	fmt.Println(headerStyle.Render("demo2rule run"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Printf("Program: %s (%d commands, hash %s)\n",
		c.Program, len(artifact.Commands), shortHash(artifact.Header.ContentHash))
	for _, role := range artifact.Header.ActorMapping {
		fmt.Printf("  %s -> %s (%s)\n", role.Actor, role.Arm, role.Role)
	}
	fmt.Println()

	if !c.Yes && !confirmRun(len(artifact.Commands)) {
		fmt.Println("Aborted.")
		return nil
	}

	runner, err := replay.NewRunner(replay.Config{
		Artifact:  artifact,
		Arms:      arms,
		StepDelay: c.Delay,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case msg := <-runner.Logs():
				fmt.Println(dimStyle.Render(msg))
			case step := <-runner.Steps():
				if step.Err != nil {
					fmt.Printf("Stage %d failed: %v\n", step.Stage, step.Err)
				} else {
					fmt.Println(successStyle.Render(
						fmt.Sprintf("Stage %d done (frame %d, %d commands)",
							step.Stage, step.Frame, len(step.Commands))))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	err = runner.Start(ctx)
	stop()
	<-done
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println()
	fmt.Println(successStyle.Render("Replay complete."))
	return nil
}

// connectArms opens every arm the program's commands actually drive. Each
// arm's calibration is resolved and validated, and its servos are read back
// once so a dead bus fails here instead of mid-replay.
func connectArms(cfg *robot.Config, artifact *program.Artifact) (map[string]replay.Mover, func(), error) {
	needed := make(map[string]bool, len(artifact.Commands))
	for _, cmd := range artifact.Commands {
		needed[cmd.Actor] = true
	}

	arms := make(map[string]replay.Mover)
	var opened []*robot.Arm
	closeAll := func() {
		for _, a := range opened {
			a.Close()
		}
	}

	for _, role := range artifact.Header.ActorMapping {
		if !needed[role.Actor] {
			continue
		}
		if _, ok := arms[role.Arm]; ok {
			continue
		}
		armCfg, err := cfg.Arm(role.Arm)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		cal, err := armCfg.ResolveCalibration()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("arm %q: %w", role.Arm, err)
		}
		if err := cal.Validate(); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("arm %q: %w", role.Arm, err)
		}
		armCfg.Calibration = cal
		arm, err := robot.NewArm(armCfg)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect arm %q: %w", role.Arm, err)
		}
		opened = append(opened, arm)
		if _, err := arm.ReadPositions(context.Background()); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("arm %q not responding: %w", role.Arm, err)
		}
		arms[role.Arm] = arm
	}
	return arms, closeAll, nil
}

func shortHash(h string) string {
	if len(h) > 10 {
		return h[:10]
	}
	return h
}

func confirmRun(commands int) bool {
	confirmed := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Execute %d commands on the connected arms?", commands)).
				Description("The arms will move. Clear the workspace first.").
				Affirmative("Run").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return confirmed
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"volknob/pkg/volknob"
)

// the shell stands in for the plugin host: each command maps to one of the
// device events a real knob would deliver
func newShellCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactively simulate knob events (rotate, press, set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bootstrap()
			if err != nil {
				return err
			}

			return runShell(cmd.Context(), v, prompt)
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "volknob> ", "shell prompt string")

	return cmd
}

func runShell(ctx context.Context, v *volknob.Volknob, prompt string) error {
	historyFile := filepath.Join(os.TempDir(), "volknob-shell.history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("create readline instance: %w", err)
	}
	defer rl.Close()

	// keep reacting to config edits while the shell is open
	go v.Config().WatchConfigFileChanges()
	defer v.Config().StopWatchingConfigFile()

	fmt.Println("Interactive knob shell. 'help' for commands, 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println()
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "exit", "quit":
			fmt.Println("Bye!")
			return nil
		case "help":
			printShellHelp()
			continue
		}

		tokens, err := shlex.Split(line)
		if err != nil {
			fmt.Printf("parse error: %v\n", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}

		fmt.Println(dispatchShellCommand(ctx, v, tokens))
	}
}

func dispatchShellCommand(ctx context.Context, v *volknob.Volknob, tokens []string) string {
	cfg := v.Config()
	d := v.Dispatcher()

	switch tokens[0] {
	case "appear", "show":
		return d.OnTargetAppear(ctx, cfg.ControlMode, cfg.AppName)

	case "rotate":
		ticks := 1
		if len(tokens) > 1 {
			parsed, err := strconv.Atoi(tokens[1])
			if err != nil {
				return fmt.Sprintf("rotate: bad tick count %q", tokens[1])
			}
			ticks = parsed
		}
		return d.OnRotate(ctx, cfg.ControlMode, cfg.AppName, ticks, cfg.StepSizePct)

	case "press":
		return d.OnKeyDown(ctx, cfg.ControlMode, cfg.AppName)

	case "set":
		target := cfg.TargetVolumePct
		if len(tokens) > 1 {
			parsed, err := strconv.Atoi(tokens[1])
			if err != nil {
				return fmt.Sprintf("set: bad percentage %q", tokens[1])
			}
			target = parsed
		}
		return d.OnSetTarget(ctx, cfg.ControlMode, cfg.AppName, target)

	default:
		return fmt.Sprintf("unknown command %q, try 'help'", tokens[0])
	}
}

func printShellHelp() {
	fmt.Println(`commands:
  appear           # resolve the target and show its state
  rotate [ticks]   # rotate the knob, negative ticks lower the volume
  press            # press the knob, toggling mute
  set [pct]        # absolute set (N/A for application targets)
  help             # this text
  exit / quit      # leave the shell`)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"volknob/pkg/volknob"
)

var (
	versionString = "v0.0.0-dev"

	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "volknob",
		Short:         "Control the default sink or a named application's volume through wpctl",
		Long:          "volknob resolves an audio target (system default output or a running application) and drives its volume and mute state through WirePlumber's wpctl.",
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs on stdout")

	cmd.AddCommand(
		newRunCmd(),
		newShellCmd(),
		newGetCmd(),
		newSetCmd(),
		newAdjustCmd(),
		newMuteCmd(),
	)

	return cmd
}

// bootstrap builds an initialized Volknob instance for any subcommand.
func bootstrap() (*volknob.Volknob, error) {
	logger, err := volknob.NewLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	v, err := volknob.NewVolknob(logger, verbose)
	if err != nil {
		return nil, fmt.Errorf("create volknob: %w", err)
	}

	v.SetVersion(versionString)

	if err := v.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize volknob: %w", err)
	}

	return v, nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the service with config file watching until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bootstrap()
			if err != nil {
				return err
			}

			return v.Run()
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current state of the configured target",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bootstrap()
			if err != nil {
				return err
			}

			cfg := v.Config()
			fmt.Println(v.Dispatcher().OnTargetAppear(cmd.Context(), cfg.ControlMode, cfg.AppName))
			return nil
		},
	}
}

func newSetCmd() *cobra.Command {
	var targetPct int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the configured target to an absolute volume percentage",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bootstrap()
			if err != nil {
				return err
			}

			cfg := v.Config()
			if !cmd.Flags().Changed("pct") {
				targetPct = cfg.TargetVolumePct
			}

			fmt.Println(v.Dispatcher().OnSetTarget(cmd.Context(), cfg.ControlMode, cfg.AppName, targetPct))
			return nil
		},
	}

	cmd.Flags().IntVar(&targetPct, "pct", 50, "target volume percentage (0-100), defaults to target_volume_pct from config")

	return cmd
}

func newAdjustCmd() *cobra.Command {
	var ticks int

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Rotate the virtual knob by a number of ticks (negative to lower)",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bootstrap()
			if err != nil {
				return err
			}

			cfg := v.Config()
			fmt.Println(v.Dispatcher().OnRotate(cmd.Context(), cfg.ControlMode, cfg.AppName, ticks, cfg.StepSizePct))
			return nil
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 1, "number of rotation ticks, each moves the volume by step_size_pct")

	return cmd
}

func newMuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mute",
		Short: "Press the virtual knob, toggling mute on the configured target",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bootstrap()
			if err != nil {
				return err
			}

			cfg := v.Config()
			fmt.Println(v.Dispatcher().OnKeyDown(cmd.Context(), cfg.ControlMode, cfg.AppName))
			return nil
		},
	}
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stm32adc/host/config"
	"stm32adc/protocol"
)

const (
	projectName = "adcmon"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

// app holds what every subcommand shares once the root flags are parsed.
type app struct {
	levelFlag   string
	profilePath string

	log     zerolog.Logger
	profile *config.Profile
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           projectName,
		Short:         "Monitor telemetry from the STM32 ADC firmware",
		Version:       fmt.Sprintf("%s (build %s, protocol %s)", projectVersion, projectBuild, protocol.Version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(a.levelFlag)
			if err != nil {
				return errors.Wrapf(err, "invalid log level %q", a.levelFlag)
			}
			a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).With().Timestamp().Logger()

			a.profile, err = config.LoadOrDefault(a.profilePath)
			if err != nil {
				return maskAny(err)
			}
			if err := a.profile.Validate(); err != nil {
				return errors.Wrapf(err, "invalid profile %s", a.profilePath)
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVarP(&a.levelFlag, "level", "l", "info", "Set log level")
	cmd.PersistentFlags().StringVarP(&a.profilePath, "profile", "p", config.DefaultProfilePath(), "Board profile")

	cmd.AddCommand(newStreamCommand(a))
	cmd.AddCommand(newReplayCommand(a))
	cmd.AddCommand(newTimingCommand(a))
	cmd.AddCommand(newInitCommand(a))
	return cmd
}

// newInitCommand writes the default profile so it can be edited.
func newInitCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default board profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.profile.Persist(force); err != nil {
				return maskAny(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", a.profile.Path())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing profile")
	return cmd
}

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		Exitf("%s failed: %v\n", projectName, err)
	}
}

func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}

// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/MaveDX/Bard/pkg/build"
)

// Options carries everything the entry point needs from the command line.
// Engine settings themselves live in the YAML config; the CLI only selects
// what to run and where the config lives.
type Options struct {
	ConfigPath string   // --config override, empty means search defaults.
	Verbose    bool     // --verbose forces debug logging.
	Command    string   // One-off subcommand, empty for the engine run.
	Args       []string // Positional arguments of the subcommand.
}

// ParseArgs parses os.Args into Options via cobra.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Media player telemetry engine",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation runs the engine headless.
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Run the engine with a terminal preview of the telemetry feed",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "preview"
		},
	}
	rootCmd.AddCommand(previewCmd)

	paletteCmd := &cobra.Command{
		Use:   "palette <image>",
		Short: "Extract and print the display palette of a cover image",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "palette"
			options.Args = args
		},
	}
	rootCmd.AddCommand(paletteCmd)

	waveformCmd := &cobra.Command{
		Use:   "waveform <audio-file>",
		Short: "Extract and print the amplitude envelope of a track",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "waveform"
			options.Args = args
		},
	}
	rootCmd.AddCommand(waveformCmd)

	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "c", "",
		"Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

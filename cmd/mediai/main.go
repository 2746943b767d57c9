// MediAI is a voice-enabled medical symptom assistant. It answers typed or
// spoken descriptions of symptoms with a short voiced answer and, when it
// needs more detail, one voiced follow-up question.
//
// Usage:
//
//	mediai serve [--config mediai.yaml]
//	mediai chat [--remote host:50051]
//	mediai version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "mediai",
		Short:        "Voice-enabled medical symptom assistant",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (e.g. configs/mediai.yaml)")

	root.AddCommand(
		newServeCmd(&configFile),
		newChatCmd(&configFile),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "mediai %s\n", version)
			},
		},
	)
	return root
}

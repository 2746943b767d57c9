package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/console"
	"github.com/nadzzz/mediai/internal/transport"
	grpctransport "github.com/nadzzz/mediai/internal/transport/grpc"
)

func newChatCmd(configFile *string) *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to MediAI from the terminal",
		Long: `Chat runs the conversation in the terminal. By default the pipeline runs
in-process with the configured backends. With --remote the console drives
the session of a running "mediai serve" over gRPC.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			// Logs go to stderr so they do not interleave with the transcript.
			slog.SetDefault(config.NewLogger(cfg.Logging, os.Stderr))
			return chat(cmd.Context(), cfg, remote)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "address of a mediai gRPC server (host:port)")
	return cmd
}

func chat(parent context.Context, cfg *config.Config, remote string) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt)
	defer cancel()

	var conv transport.Conversation
	if remote != "" {
		client, err := grpctransport.Dial(remote)
		if err != nil {
			return err
		}
		defer client.Close()
		conv = client
	} else {
		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.Close()
		conv = transport.NewLocal(p.dispatcher)
	}

	history := ""
	if dir, err := os.UserCacheDir(); err == nil {
		history = filepath.Join(dir, "mediai_history")
	}
	rl, err := console.NewReadline(history)
	if err != nil {
		return err
	}
	defer rl.Close()

	var player console.Player
	if p := console.NewCommandPlayer(cfg.Console.Player); p != nil {
		player = p
	}

	c, err := console.New(conv, rl, os.Stdout, player)
	if err != nil {
		return err
	}
	return c.Run(ctx)
}

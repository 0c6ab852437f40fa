// cmd/discord/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keshon/accountability-bot/internal/config"
	v "github.com/keshon/accountability-bot/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   v.AppName,
	Short: "Discord accountability bot with per-channel personas",
	Long: `A Discord bot that gives each topic channel (faith, wealth, health,
daily-checkins) its own persona. Personas answer members in their channel
and check in on them unprompted; engagement feeds a weighted leaderboard.

Configuration comes from the environment and an optional .env file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, personasCmd, historyCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s", v.AppName, v.Version)
		if v.BuildDate != "" {
			fmt.Fprintf(out, " (%s)", v.BuildDate)
		}
		fmt.Fprintln(out)
	},
}

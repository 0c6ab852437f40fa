package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/accountability-bot/internal/persona"
	"github.com/keshon/accountability-bot/internal/storage"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the configured channel personas",
	Long: `List the channel personas the bot would run with, after loading
PERSONAS_PATH (or the built-in set when it is empty).

Examples:
  accountability-bot personas
  PERSONAS_PATH=./personas.yaml accountability-bot personas`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := persona.LoadFile(cfg.PersonasPath)
		if err != nil {
			return err
		}
		return printPersonas(cmd.OutOrStdout(), reg)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <guild-id>",
	Short: "Show the recent slash commands of a guild",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := storage.New(cfg.StoragePath, zerolog.Nop())
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.CommandHistory(args[0])
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), records)
	},
}

func printPersonas(out io.Writer, reg *persona.Registry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tPERSONA\tINTERVAL\tOWNER\tTARGETS\tTOPICS")
	for _, p := range reg.All() {
		owner := "no"
		if p.IncludeOwner {
			owner = "yes"
		}
		fmt.Fprintf(w, "#%s\t%s\t%g-%gh\t%s\t%d\t%s\n",
			p.ChannelName,
			p.Title(),
			p.CheckInterval.MinHours,
			p.CheckInterval.MaxHours,
			owner,
			p.TargetCount,
			strings.Join(p.Topics, ", "),
		)
	}
	return w.Flush()
}

func printHistory(out io.Writer, records []storage.CommandHistory) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "No commands recorded.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tUSER\tCHANNEL\tCOMMAND\tPARAM")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t#%s\t/%s\t%s\n",
			r.Datetime.Format("2006-01-02 15:04"),
			r.Username,
			r.ChannelName,
			r.Command,
			r.Param,
		)
	}
	return w.Flush()
}

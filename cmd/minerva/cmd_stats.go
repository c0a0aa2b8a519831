package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsSince time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how often each topic was requested",
	Long:  `Reads the interaction journal (database.enabled must be true) and prints topic counts.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.Journal == nil {
			return errors.New("stats: the interaction journal is disabled (database.enabled=false)")
		}

		since := time.Now().Add(-statsSince)
		counts, err := a.Journal.TopicCounts(cmd.Context(), since)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Topics opened since %s\n", since.Format(time.DateTime))
		if len(counts) == 0 {
			color.New(color.Faint).Fprintln(out, "no interactions recorded")
			return nil
		}
		for _, c := range counts {
			fmt.Fprintf(out, "%-16s %s\n", c.Topic, color.GreenString("%d", c.Count))
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().DurationVar(&statsSince, "since", 30*24*time.Hour, "look-back window")
}

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"laundry-notifier/config"
	"laundry-notifier/internal/feed"
	"laundry-notifier/internal/model"
	"laundry-notifier/internal/notification"
)

func statusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Fetch the machine list once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration from %s: %w", *configPath, err)
			}
			return printStatus(cmd.Context(), feed.NewClient(&cfg.Feed), cmd.OutOrStdout())
		},
	}
}

func printStatus(ctx context.Context, source feed.Source, out io.Writer) error {
	batch, err := source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch machines: %w", err)
	}

	var washers, dryers []model.Snapshot
	for _, s := range batch.Snapshots {
		if s.Kind() == "washer" {
			washers = append(washers, s)
		} else {
			dryers = append(dryers, s)
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	printGroup(w, "Washers", washers)
	printGroup(w, "Dryers", dryers)
	if len(batch.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped %d machine(s) with unreadable status\n", len(batch.Skipped))
	}
	return w.Flush()
}

func printGroup(w io.Writer, title string, machines []model.Snapshot) {
	sort.Slice(machines, func(i, j int) bool { return machines[i].Number < machines[j].Number })

	fmt.Fprintf(w, "%s (%d)\n", title, len(machines))
	for _, m := range machines {
		remaining := ""
		if m.Status == model.StatusInUse {
			remaining = notification.FormatRemaining(m.RemainingSeconds)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", m.Number, m.Name, m.Status, remaining)
	}
}

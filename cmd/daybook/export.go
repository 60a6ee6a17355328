package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"daybook/internal/ics"
	"daybook/internal/model"
	"daybook/internal/schedule"
)

var (
	exportFrom   string
	exportTo     string
	exportTitle  string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print events from the seed file",
	Long: `Load the seed file and print its events sorted by date.

Select a subset with --from/--to (inclusive; an inverted range prints
nothing) or with --title. Output as text, json or ics.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First date (YYYY-MM-DD), requires --to")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last date (YYYY-MM-DD), requires --from")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "Only events with this exact title")
	exportCmd.Flags().StringVar(&exportFormat, "format", "text", "Output format: text, json or ics")
	rootCmd.AddCommand(exportCmd)
}

// exportOptions is the parsed form of the export flags.
type exportOptions struct {
	from, to model.Date
	hasRange bool
	title    string
	format   string
}

func parseExportOptions(from, to, title, format string) (exportOptions, error) {
	opts := exportOptions{title: title, format: format}

	switch format {
	case "text", "json", "ics":
	default:
		return opts, fmt.Errorf("unknown format %q (want text, json or ics)", format)
	}

	if from == "" && to == "" {
		return opts, nil
	}
	if from == "" || to == "" {
		return opts, errors.New("--from and --to must be given together")
	}
	if title != "" {
		return opts, errors.New("--title cannot be combined with --from/--to")
	}

	var err error
	if opts.from, err = parseDateFlag("from", from); err != nil {
		return opts, err
	}
	if opts.to, err = parseDateFlag("to", to); err != nil {
		return opts, err
	}
	opts.hasRange = true
	return opts, nil
}

func selectEvents(s *schedule.Schedule, opts exportOptions) []model.Event {
	switch {
	case opts.hasRange:
		return s.ExportDateRange(opts.from, opts.to)
	case opts.title != "":
		return s.ExportTitle(opts.title)
	default:
		return s.ExportAll()
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	opts, err := parseExportOptions(exportFrom, exportTo, exportTitle, exportFormat)
	if err != nil {
		return err
	}

	sched, err := loadSchedule(conf)
	if err != nil {
		return err
	}

	return writeEvents(cmd.OutOrStdout(), selectEvents(sched, opts), opts.format)
}

func writeEvents(w io.Writer, events []model.Event, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	case "ics":
		return ics.Encode(w, events)
	default:
		return writeText(w, events)
	}
}

// writeText prints events grouped under one heading per day. Events arrive
// sorted by date, so a new heading starts whenever the date changes.
func writeText(w io.Writer, events []model.Event) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No events found.")
		return err
	}

	var current model.Date
	for i, e := range events {
		if i == 0 || e.Date != current {
			if i > 0 {
				fmt.Fprintln(w)
			}
			current = e.Date
			fmt.Fprintf(w, "=== %s ===\n", e.Date.Time().Format("Monday, January 2, 2006"))
		}
		fmt.Fprintf(w, "  %s\n", e.Title)
		if e.Location != "" {
			fmt.Fprintf(w, "    Location: %s\n", e.Location)
		}
		if e.Description != "" {
			fmt.Fprintf(w, "    %s\n", e.Description)
		}
	}
	return nil
}

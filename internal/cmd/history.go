package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/parallelizer/internal/config"
	"github.com/harrison/parallelizer/internal/store"
)

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect runs recorded with --record",
		Long: `List, show, export and prune runs stored in the run history database.

Runs are recorded when a command is given --record or store.enabled is set
in the config file. Run ids may be abbreviated to any unique prefix.`,
	}

	cmd.AddCommand(newHistoryListCommand(opts))
	cmd.AddCommand(newHistoryShowCommand(opts))
	cmd.AddCommand(newHistoryExportCommand(opts))
	cmd.AddCommand(newHistoryPruneCommand(opts))
	return cmd
}

// openHistory opens the run history database. ok is false when no database
// exists yet, in which case nothing has been recorded.
func (s *session) openHistory() (st *store.Store, ok bool, err error) {
	dbPath, err := config.ResolveDBPath(s.cfg.Store.DBPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve history database: %w", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, false, nil
	}
	st, err = store.NewStore(dbPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open run history: %w", err)
	}
	return st, true, nil
}

func newHistoryListCommand(opts *globalOptions) *cobra.Command {
	var command string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0, got %d", limit)
			}

			runs := []*store.Run{}
			st, ok, err := s.openHistory()
			if err != nil {
				return err
			}
			if ok {
				defer st.Close()
				runs, err = st.ListRuns(cmd.Context(), store.ListOptions{Command: command, Limit: limit})
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}
			}
			return s.emit(runs, func(w io.Writer) { printRunList(w, runs) })
		},
	}

	cmd.Flags().StringVar(&command, "command", "", "Only list runs of this command")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 = all)")
	return cmd
}

func newHistoryShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run and its task placements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			st, ok, err := s.openHistory()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s (no runs recorded)", store.ErrRunNotFound, args[0])
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if s.format == formatText {
				printRun(s.out, run)
				return nil
			}
			data, err := store.EncodeRun(run, s.format)
			if err != nil {
				return err
			}
			_, err = s.out.Write(data)
			return err
		},
	}
}

func newHistoryExportCommand(opts *globalOptions) *cobra.Command {
	var exportFormat string

	cmd := &cobra.Command{
		Use:   "export <run-id> <path>",
		Short: "Write a recorded run and its full report to a file",
		Long: `Export a recorded run, including the report it produced, as JSON or YAML.
The format follows the file extension (.yaml/.yml or JSON otherwise)
unless --export-format is given. The file is written atomically.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			st, ok, err := s.openHistory()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s (no runs recorded)", store.ErrRunNotFound, args[0])
			}
			defer st.Close()

			format := exportFormat
			if format == "" {
				format = store.FormatForPath(args[1])
			}
			run, err := st.ExportRun(cmd.Context(), args[0], args[1], format)
			if err != nil {
				return err
			}
			s.log.LogInfo(fmt.Sprintf("Exported run %s to %s", run.ID, args[1]))
			return nil
		},
	}

	cmd.Flags().StringVar(&exportFormat, "export-format", "", "Export format: json, yaml (default from file extension)")
	return cmd
}

func newHistoryPruneCommand(opts *globalOptions) *cobra.Command {
	var olderThan string
	var yes bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete recorded runs older than a given age",
		Long: `Delete runs recorded before now minus --older-than. Ages accept Go
durations (72h, 90m) and whole days (30d).

Examples:
  parallelizer history prune --older-than 30d
  parallelizer history prune --older-than 12h --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			age, err := parseAge(olderThan)
			if err != nil {
				return err
			}

			st, ok, err := s.openHistory()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(s.out, "No runs recorded")
				return nil
			}
			defer st.Close()

			if !yes {
				fmt.Fprintf(s.out, "Delete runs older than %s? [y/N]: ", olderThan)
				if !confirmAction(cmd.InOrStdin()) {
					fmt.Fprintln(s.out, "Cancelled")
					return nil
				}
			}

			deleted, err := st.DeleteRunsBefore(cmd.Context(), time.Now().Add(-age))
			if err != nil {
				return fmt.Errorf("failed to prune runs: %w", err)
			}
			fmt.Fprintf(s.out, "Deleted %d run(s)\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "Minimum age of runs to delete (e.g. 30d, 72h)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("older-than")
	return cmd
}

// parseAge parses a Go duration or a whole number of days ("30d").
func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("age is required")
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return d, nil
}

// confirmAction reads a yes/no answer, defaulting to no.
func confirmAction(in io.Reader) bool {
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

func printRunList(w io.Writer, runs []*store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMMAND\tCREATED\tTASKS\tSUMMARY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			shortID(r.ID), r.Command, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.TaskCount, r.Summary)
	}
	tw.Flush()
}

func printRun(w io.Writer, r *store.Run) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Run %s\n", r.ID)
	fmt.Fprintf(w, "  Command:  %s\n", r.Command)
	if r.Source != "" {
		fmt.Fprintf(w, "  Source:   %s\n", r.Source)
	}
	if r.Objective != "" {
		fmt.Fprintf(w, "  Objective: %s\n", r.Objective)
	}
	fmt.Fprintf(w, "  Created:  %s\n", r.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "  Tasks:    %d\n", r.TaskCount)
	fmt.Fprintf(w, "  Summary:  %s\n", r.Summary)

	if len(r.Tasks) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tBATCH\tAGENT\tSTART\tEND\tCRITICAL")
	for _, t := range r.Tasks {
		batch := "-"
		if t.Batch >= 0 {
			batch = strconv.Itoa(t.Batch + 1)
		}
		critical := ""
		if t.Critical {
			critical = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.TaskID, batch, t.Agent, formatMinutes(t.StartMinute), formatMinutes(t.EndMinute), critical)
	}
	tw.Flush()
}

// shortID abbreviates a run id for listings
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

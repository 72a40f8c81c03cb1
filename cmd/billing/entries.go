package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/service"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

func newEntriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"time"},
		Short:   "Log and list time entries",
	}
	cmd.AddCommand(newEntriesAddCmd(a), newEntriesListCmd(a), newEntriesDeleteCmd(a), newEntriesExportCmd(a))
	return cmd
}

func newEntriesAddCmd(a *app) *cobra.Command {
	var in service.TimeEntryInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log time against a client",
		Long: `Log time either as --minutes or as a --from/--to clock range.
Clock times are HH:MM on --date (default today) or full YYYY-MM-DD HH:MM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.svc.LogTime(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("Logged %s hours of %s for %s on %s (ID: %s)\n",
				money.Hours(entry.MinutesSpent), entry.WorkTypeCode, entry.ClientName, formatDate(entry.WorkDate), entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Client, "client", "c", "", "Client name")
	cmd.Flags().StringVarP(&in.WorkType, "work-type", "w", "", "Work type code")
	cmd.Flags().StringVarP(&in.Project, "project", "p", "", "Project name")
	cmd.Flags().Int64VarP(&in.Minutes, "minutes", "m", 0, "Minutes spent")
	cmd.Flags().StringVarP(&in.From, "from", "f", "", "Start time (HH:MM or YYYY-MM-DD HH:MM)")
	cmd.Flags().StringVarP(&in.To, "to", "t", "", "End time (HH:MM or YYYY-MM-DD HH:MM)")
	cmd.Flags().StringVar(&in.Date, "date", "", "Work date (YYYY-MM-DD), default today")
	cmd.Flags().StringVarP(&in.Note, "note", "n", "", "Note")
	cmd.MarkFlagRequired("client")
	cmd.MarkFlagRequired("work-type")

	return cmd
}

type entryFilterFlags struct {
	client     string
	period     string
	periodDate string
	from       string
	to         string
	billed     bool
	unbilled   bool
}

func (f *entryFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.client, "client", "c", "", "Filter by client name")
	cmd.Flags().StringVarP(&f.period, "period", "p", "", "Period: day, week, fortnight or month")
	cmd.Flags().StringVarP(&f.periodDate, "date", "d", "", "Date within the period (YYYY-MM-DD), default today")
	cmd.Flags().StringVarP(&f.from, "from", "f", "", "From date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&f.to, "to", "t", "", "To date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&f.billed, "billed", false, "Only billed entries")
	cmd.Flags().BoolVar(&f.unbilled, "unbilled", false, "Only unbilled entries")
}

func (f *entryFilterFlags) query(a *app) (service.TimeEntryQuery, error) {
	q := service.TimeEntryQuery{Client: f.client}
	if f.billed && f.unbilled {
		return q, &models.ValidationError{Field: "billed", Msg: "--billed and --unbilled are exclusive"}
	}
	if f.billed || f.unbilled {
		q.Billed = utils.ToPtr(f.billed)
	}

	if f.period != "" {
		r, err := service.ResolveRange(f.period, f.periodDate, "", "", a.svc.Today())
		if err != nil {
			return q, err
		}
		q.From, q.To = &r.Start, &r.End
		return q, nil
	}
	var err error
	if q.From, err = parseDatePtrFlag("from", f.from); err != nil {
		return q, err
	}
	if q.To, err = parseDatePtrFlag("to", f.to); err != nil {
		return q, err
	}
	return q, nil
}

func newEntriesListCmd(a *app) *cobra.Command {
	var f entryFilterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List time entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query(a)
			if err != nil {
				return err
			}
			entries, err := a.svc.ListTimeEntries(cmd.Context(), q)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No time entries found.")
				return nil
			}

			var minutes int64
			for _, e := range entries {
				state := "unbilled"
				if e.Billed() {
					state = "billed"
				}
				project := utils.FirstNonEmpty(utils.FromPtr(e.ProjectName), "-")
				fmt.Printf("%s  %-16s %-14s %-14s %6sh  %-8s %s\n",
					formatDate(e.WorkDate), e.ClientName, e.WorkTypeCode, project, money.Hours(e.MinutesSpent), state, e.ID)
				if e.Note != nil {
					fmt.Printf("            %s\n", *e.Note)
				}
				minutes += e.MinutesSpent
			}
			fmt.Printf("Total: %s hours across %d entries\n", money.Hours(minutes), len(entries))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newEntriesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an unbilled time entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteTimeEntry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted time entry %s\n", args[0])
			return nil
		},
	}
}

func newEntriesExportCmd(a *app) *cobra.Command {
	var f entryFilterFlags
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export time entries as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query(a)
			if err != nil {
				return err
			}

			file := os.Stdout
			if output != "" && output != "-" {
				file, err = os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer file.Close()
			}

			n, err := a.svc.ExportTimeEntriesCSV(cmd.Context(), q, file)
			if err != nil {
				return err
			}
			if file != os.Stdout {
				fmt.Printf("Exported %d entries to %s\n", n, output)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/engine"
	"github.com/sells-group/recon-cli/internal/pricechange"
	"github.com/sells-group/recon-cli/internal/store"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Submit and track price-change reports",
}

// -- changes submit --

var changesSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Diff an edit sheet against the newest price model and submit the report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("edits")
		f, err := os.Open(path)
		if err != nil {
			return eris.Wrap(err, "changes submit: open edits")
		}
		defer f.Close() //nolint:errcheck

		edits, err := engine.ParseEdits(ctx, f)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "changes", true)
		if err != nil {
			return err
		}
		defer env.Close()

		userID, _ := cmd.Flags().GetString("user-id")
		username, _ := cmd.Flags().GetString("username")
		group, _ := cmd.Flags().GetString("group")
		confirm, _ := cmd.Flags().GetBool("confirm")

		res, err := env.Service.Submit(ctx, engine.SubmitRequest{
			Edits:     edits,
			Submitter: pricechange.Submitter{ID: userID, Username: username, GroupName: group},
			Confirm:   confirm,
		})
		if res != nil {
			printValidation(cmd.ErrOrStderr(), res)
		}
		switch {
		case errors.Is(err, engine.ErrConfirmationRequired):
			return eris.New("changes submit: warnings present, re-run with --confirm to submit anyway")
		case err != nil:
			return eris.Wrap(err, "changes submit")
		}

		if !res.Upload.Success {
			return eris.Errorf("changes submit: %s", res.Upload.Error)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "submitted %s (%d changes)\n%s\n",
			res.Report.ID, res.Report.TotalChanges, res.Upload.URL)
		return nil
	},
}

func printValidation(out io.Writer, res *engine.SubmitResult) {
	for _, e := range res.Validation.Errors {
		_, _ = fmt.Fprintf(out, "error: %s\n", e)
	}
	for _, w := range res.Validation.Warnings {
		_, _ = fmt.Fprintf(out, "warning: %s\n", w)
	}
}

// -- changes list --

var changesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter := store.ReportFilter{}
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			st, err := pricechange.ParseStatus(s)
			if err != nil {
				return err
			}
			filter.Status = st
		}
		filter.UserID, _ = cmd.Flags().GetString("user-id")
		filter.GroupName, _ = cmd.Flags().GetString("group")
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		env, err := initEnv(ctx, "changes", true)
		if err != nil {
			return err
		}
		defer env.Close()

		recs, err := env.Service.Reports(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "changes list")
		}
		formatReportsList(cmd.OutOrStdout(), recs)
		return nil
	},
}

// formatReportsList writes a tabular list of reports to out.
func formatReportsList(out io.Writer, recs []store.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUSER\tGROUP\tSTATUS\tCHANGES\tSUBMITTED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t------\t-------\t---------")

	for _, rec := range recs {
		r := rec.Report
		user := r.Username
		if user == "" {
			user = r.UserID
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID,
			user,
			r.GroupName,
			r.Status,
			r.TotalChanges,
			r.SubmittedDate.Local().Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// -- changes show --

var changesShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Show one recorded report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "changes", true)
		if err != nil {
			return err
		}
		defer env.Close()

		if asCSV, _ := cmd.Flags().GetBool("csv"); asCSV {
			text, err := env.Service.ReportCSV(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "changes show")
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			return err
		}

		rec, err := env.Service.Report(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "changes show")
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

// -- changes status --

var changesStatusCmd = &cobra.Command{
	Use:   "status <report-id> <pending|sent|archived>",
	Short: "Move a report forward in its lifecycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		to, err := pricechange.ParseStatus(args[1])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "changes", true)
		if err != nil {
			return err
		}
		defer env.Close()

		ev, err := env.Service.SetStatus(ctx, args[0], to)
		if err != nil {
			return eris.Wrap(err, "changes status")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", ev.ReportID, ev.From, ev.To)
		return nil
	},
}

// -- changes files --

var changesFilesCmd = &cobra.Command{
	Use:   "files [name]",
	Short: "List uploaded report files, or print the changes in one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "prices", false)
		if err != nil {
			return err
		}
		defer env.Close()

		if len(args) == 1 {
			meta, changes, err := env.Service.ReadReportFile(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "changes files")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"meta": meta, "changes": changes})
		}

		files, err := env.Service.ReportFiles(ctx)
		if err != nil {
			return eris.Wrap(err, "changes files")
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "UPLOADED\tGROUP\tUSER\tREPORT\tNAME")
		for _, f := range files {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				f.UploadedAt.Local().Format("2006-01-02 15:04"), f.GroupName, f.Username, f.ReportID, f.Name)
		}
		return w.Flush()
	},
}

func init() {
	changesSubmitCmd.Flags().String("edits", "", "CSV of Item Name, Location ID, New Price")
	changesSubmitCmd.Flags().String("user-id", "", "submitting user id")
	changesSubmitCmd.Flags().String("username", "", "submitting user name")
	changesSubmitCmd.Flags().String("group", "", "submitting user's group")
	changesSubmitCmd.Flags().Bool("confirm", false, "submit even when validation warns")
	_ = changesSubmitCmd.MarkFlagRequired("edits")
	_ = changesSubmitCmd.MarkFlagRequired("user-id")

	changesListCmd.Flags().String("status", "", "filter by status (pending, sent, archived)")
	changesListCmd.Flags().String("user-id", "", "filter by submitting user id")
	changesListCmd.Flags().String("group", "", "filter by group name")
	changesListCmd.Flags().Int("limit", 50, "max number of reports to display")

	changesShowCmd.Flags().Bool("csv", false, "print the report as its uploaded CSV")

	changesCmd.AddCommand(changesSubmitCmd)
	changesCmd.AddCommand(changesListCmd)
	changesCmd.AddCommand(changesShowCmd)
	changesCmd.AddCommand(changesStatusCmd)
	changesCmd.AddCommand(changesFilesCmd)
	rootCmd.AddCommand(changesCmd)
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/engine"
	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/filedate"
)

// addWindowFlags registers the date window flags shared by files and scans.
func addWindowFlags(c *cobra.Command) {
	c.Flags().String("start", "", "first day of the window (YYYY-MM-DD or MM/DD/YYYY)")
	c.Flags().String("end", "", "last day of the window (YYYY-MM-DD or MM/DD/YYYY)")
	c.Flags().String("preset", "", "named range ("+presetNames()+"); overrides --start/--end")
}

func presetNames() string {
	names := make([]string, len(filedate.Presets))
	for i, p := range filedate.Presets {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func windowFromFlags(c *cobra.Command) (filedate.Window, error) {
	start, _ := c.Flags().GetString("start")
	end, _ := c.Flags().GetString("end")
	preset, _ := c.Flags().GetString("preset")
	return filedate.ResolveWindow(start, end, preset, time.Now())
}

// -- files --

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List data files in the bucket, optionally narrowed by type and window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		win, err := windowFromFlags(cmd)
		if err != nil {
			return err
		}
		env, err := initEnv(ctx, "files", false)
		if err != nil {
			return err
		}
		defer env.Close()

		typ, _ := cmd.Flags().GetString("type")
		files, err := env.Service.Files(ctx, engine.FileQuery{Profile: typ, Window: win})
		if err != nil {
			return eris.Wrap(err, "files")
		}
		for _, f := range files {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

// -- scans --

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "Aggregate, filter and enhance the exports of one report type",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		win, err := windowFromFlags(cmd)
		if err != nil {
			return err
		}
		if !win.Complete() {
			return eris.New("scans: a window is required (--start and --end, or --preset)")
		}
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "scans", false)
		if err != nil {
			return err
		}
		defer env.Close()

		typ, _ := cmd.Flags().GetString("type")
		locations, _ := cmd.Flags().GetStringSlice("locations")
		discounts, _ := cmd.Flags().GetStringSlice("discounts")
		req := engine.ScanRequest{
			Profile:     typ,
			Window:      win,
			LocationIDs: locations,
			DiscountIDs: discounts,
		}
		if cmd.Flags().Changed("min-usage") {
			v, _ := cmd.Flags().GetFloat64("min-usage")
			req.MinUsage = &v
		}

		errOut := cmd.ErrOrStderr()
		res, err := env.Service.Scan(ctx, req, func(p aggregate.Progress) {
			_, _ = fmt.Fprintf(errOut, "[%d/%d] %3.0f%% %s\n", p.Index, p.Total, p.Percent, p.File)
		})
		if err != nil {
			return eris.Wrap(err, "scans")
		}
		for _, f := range res.Failed {
			_, _ = fmt.Fprintf(errOut, "skipped %s: %s\n", f.File, f.Error)
		}
		_, _ = fmt.Fprintf(errOut, "%d rows from %d files\n", len(res.Rows), len(res.Files))

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return eris.Wrap(err, "scans: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return writeScan(out, format, res)
	},
}

func writeScan(w io.Writer, f export.Format, res *engine.ScanResult) error {
	if f == export.FormatJSON {
		return export.WriteJSON(w, res.Rows)
	}
	return export.Write(w, f, res.Columns, res.Rows)
}

func init() {
	filesCmd.Flags().String("type", "", "report type (profile name)")
	addWindowFlags(filesCmd)

	scansCmd.Flags().String("type", "", "report type (profile name)")
	_ = scansCmd.MarkFlagRequired("type")
	addWindowFlags(scansCmd)
	scansCmd.Flags().StringSlice("locations", nil, "location ids to keep (default all)")
	scansCmd.Flags().StringSlice("discounts", nil, "discount ids to keep (default configured set)")
	scansCmd.Flags().Float64("min-usage", 0, "drop rows whose usage is below this value")
	scansCmd.Flags().String("format", "csv", "output format: csv, xlsx or json")
	scansCmd.Flags().String("out", "", "write output to a file instead of stdout")

	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(scansCmd)
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyjia/expensewise/internal/export"
	"github.com/garyjia/expensewise/internal/report"
	"github.com/garyjia/expensewise/pkg/utils"
)

type exportOptions struct {
	from   string
	to     string
	format string
	out    string
}

func newExportCommand(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a tax report for a date range to disk",
		Example: `  expensewise export --from 2025-01-01 --to 2025-12-31
  expensewise export --from 2025-01-01 --to 2025-06-30 --format xlsx --out reports/h1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if opts.out != "" {
				cfg.Export.OutputDir = opts.out
			}

			dateRange := opts.dateRange(time.Now())
			if err := dateRange.Validate(); err != nil {
				return err
			}

			app, err := NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			file, err := app.TaxReports.SaveExport(cmd.Context(), dateRange, opts.format)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", file.SavedPath, len(file.Content))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "first date, YYYY-MM-DD (default January 1 of this year)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last date, YYYY-MM-DD (default December 31 of this year)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", export.KindCSV, "csv or xlsx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory (default export.output_dir)")

	return cmd
}

// dateRange fills missing bounds with the current calendar year
func (o *exportOptions) dateRange(now time.Time) report.DateRange {
	first, last := utils.YearRange(now.Year())
	dr := report.DateRange{From: o.from, To: o.to}
	if dr.From == "" {
		dr.From = first
	}
	if dr.To == "" {
		dr.To = last
	}
	return dr
}

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradedash/internal/backend"
	"tradedash/internal/cli"
	"tradedash/internal/config"
	"tradedash/internal/core"
	"tradedash/internal/dataset"
	applog "tradedash/internal/log"
	"tradedash/internal/report"
	"tradedash/internal/services"
	"tradedash/internal/source"
	"tradedash/internal/source/memory"
)

type reportOptions struct {
	year    int
	limit   int
	noColor bool
}

// NewReportCommand builds the tradedash-report root command. The dataset
// comes from the configured DATA_SOURCE; --source and --file override it,
// and --file - reads CSV from stdin.
func NewReportCommand() *cobra.Command {
	cfg := config.Load()
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "tradedash-report",
		Short: "Print the year-over-year country comparison as a table",
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.SetupLogger(applog.ComponentComparison)
			if opts.noColor {
				color.NoColor = true
			}

			if cfg.DatasetPath == "-" {
				txs, err := dataset.ReadTransactions(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				return runReport(cmd.Context(), cmd.OutOrStdout(), memory.New(txs), opts)
			}

			backendCfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			src, err := backend.NewFactory(logger.Logger).CreateSource(cmd.Context(), backendCfg)
			if err != nil {
				return err
			}
			defer src.Close()

			return runReport(cmd.Context(), cmd.OutOrStdout(), src.Source, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.year, "year", "y", 0, "year to compare against the prior one (default latest)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "print only the first n countries")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&cfg.DataSource, "source", cfg.DataSource, fmt.Sprintf("data source, one of %v", backend.Types()))
	cmd.Flags().StringVarP(&cfg.DatasetPath, "file", "f", cfg.DatasetPath, "CSV dataset path, - reads stdin")
	cmd.Flags().StringVar(&cfg.SQLiteDBPath, "db", cfg.SQLiteDBPath, "SQLite snapshot path")

	return cmd
}

func runReport(ctx context.Context, out io.Writer, src source.TransactionSource, opts reportOptions) error {
	records, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading %s: %w", src.Name(), err)
	}
	if len(records) == 0 {
		return services.ErrEmptyDataset
	}

	year := opts.year
	if year == 0 {
		years := dataset.YearsAvailable(records)
		if len(years) == 0 {
			return services.ErrNoYears
		}
		year = years[0]
	}
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w %d: must be between 1 and 9999", core.ErrInvalidYear, year)
	}

	rows := services.Compare(records, year)
	metrics, ok := services.ExtractMetrics(rows)
	return report.Render(out, report.Report{
		Year:       year,
		Rows:       rows,
		Metrics:    metrics,
		HasMetrics: ok,
		Limit:      opts.limit,
	})
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/bufilter/internal/logging"
	"github.com/ppiankov/bufilter/internal/pipeline"
	"github.com/ppiankov/bufilter/internal/validate"
)

var noCache bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [input]",
	Short: "Match an input sheet against the master data and write the filtered report",
	Long: `Run loads every .csv and .xlsx file in the master directory (one file per
business unit, named after the unit), matches each row of the input sheet
by email and then by name, flags duplicates and writes one sheet per
business unit plus a sheet of unmatched rows.

Example:
  bufilter run people.xlsx
  bufilter run people.xlsx --sheet Responses --master-dir ./master_data
  bufilter run people.csv --format sqlite --output people.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Input flags
	runCmd.Flags().String("input", "", "input sheet (.xlsx or .csv)")
	runCmd.Flags().String("sheet", "", "worksheet name for .xlsx input")
	runCmd.Flags().String("master-dir", "", "directory of master lists, one file per business unit")

	// Output flags
	runCmd.Flags().String("output", "", "output path (default: filtered-<input name>)")
	runCmd.Flags().String("format", "", "output format (xlsx, csv, sqlite, json, yaml)")
	runCmd.Flags().Int("workers", 0, "resolution workers (default: number of CPUs)")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the master table cache")

	_ = viper.BindPFlag("input.path", runCmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("input.sheet", runCmd.Flags().Lookup("sheet"))
	_ = viper.BindPFlag("master.dir", runCmd.Flags().Lookup("master-dir"))
	_ = viper.BindPFlag("output.path", runCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("output.format", runCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("concurrency.workers", runCmd.Flags().Lookup("workers"))
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		viper.Set("input.path", args[0])
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if err := validate.Config(cfg); err != nil {
		return err
	}

	logger := logging.New(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	p := pipeline.NewPipeline(cfg, logger)
	report, err := p.Run(ctx)
	if err != nil {
		return err
	}

	out := pipeline.OutputPath(cfg)
	if err := p.Renderer().Render(report, out); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.Output.Summary {
		p.Renderer().RenderSummary(os.Stderr, report)
	}

	logger.Info().
		Str("run_id", report.RunID).
		Str("output", out).
		Str("format", cfg.Output.Format).
		Dur("elapsed", time.Since(start)).
		Msg("report written")

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/carrier-billing/faturas/cmd/faturas/cli"
	"github.com/carrier-billing/faturas/internal/aging"
	"github.com/carrier-billing/faturas/internal/app"
	"github.com/carrier-billing/faturas/internal/invoice"
	"github.com/carrier-billing/faturas/internal/observability"
)

// exitError carries a command exit code through cobra.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(cli.ExitUsage)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(cli.ExitUsage)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	engine := aging.NewEngine(logger, cfg.EngineConfig())
	intake := invoice.NewIntake(logger, cfg.PartyDirectory())
	metrics := observability.NewMetrics()
	faturas := cli.NewFaturasCLI(logger, engine, intake).WithMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, newRootCommand(cfg, faturas))
	stop()

	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Error("write metrics textfile", slog.String("path", cfg.MetricsTextfile), slog.Any("error", err))
	}
	os.Exit(code)
}

func run(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return cli.ExitOK
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return cli.ExitUsage
}

func newRootCommand(cfg *app.Config, faturas *cli.FaturasCLI) *cobra.Command {
	root := &cobra.Command{
		Use:   "faturas",
		Short: "Carrier invoice aging and aggregation",
		Long: `faturas classifies carrier freight invoices as overdue, on time or paid
against the weekly Wednesday payment cutoff and aggregates them per carrier
and responsible party.

Input is a JSON array of invoice records as exported by the billing store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	today := cfg.Today(time.Now()).String()

	common := func(cmd *cobra.Command, opts *cli.CommonOptions) {
		cmd.Flags().StringVarP(&opts.Input, "input", "i", cfg.InvoicesFile, "JSON records file, - for stdin (default INVOICES_FILE)")
		cmd.Flags().StringVar(&opts.Today, "today", today, "reference date YYYY-MM-DD")
		cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "emit JSON")
	}
	grouped := func(cmd *cobra.Command, opts *cli.CommonOptions) {
		common(cmd, opts)
		cmd.Flags().StringVar(&opts.GroupBy, "group-by", string(aging.GroupByCarrier), "carrier or carrier+responsible")
	}
	runE := func(fn func(ctx context.Context) int) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if code := fn(cmd.Context()); code != cli.ExitOK {
				return exitError{code: code}
			}
			return nil
		}
	}

	var reportOpts cli.ReportOptions
	report := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard: summary, pending and paid tables, backlog",
		Example: `  faturas report --input faturas.json
  faturas report --input faturas.json --today 2024-03-14 --group-by carrier+responsible --json`,
		Args: cobra.NoArgs,
	}
	grouped(report, &reportOpts.CommonOptions)
	report.RunE = runE(func(ctx context.Context) int {
		reportOpts.Stdout, reportOpts.Stderr = report.OutOrStdout(), report.ErrOrStderr()
		return faturas.ReportCommand(ctx, reportOpts)
	})

	var backlogOpts cli.BacklogOptions
	backlog := &cobra.Command{
		Use:   "backlog",
		Short: "Print outstanding amounts by due date",
		Args:  cobra.NoArgs,
	}
	grouped(backlog, &backlogOpts.CommonOptions)
	backlog.RunE = runE(func(ctx context.Context) int {
		backlogOpts.Stdout, backlogOpts.Stderr = backlog.OutOrStdout(), backlog.ErrOrStderr()
		return faturas.BacklogCommand(ctx, backlogOpts)
	})

	var classifyOpts cli.ClassifyOptions
	classify := &cobra.Command{
		Use:   "classify",
		Short: "List every invoice with its aging bucket",
		Args:  cobra.NoArgs,
	}
	common(classify, &classifyOpts.CommonOptions)
	classify.Flags().BoolVar(&classifyOpts.OverdueOnly, "overdue", false, "list overdue invoices only")
	classify.RunE = runE(func(ctx context.Context) int {
		classifyOpts.Stdout, classifyOpts.Stderr = classify.OutOrStdout(), classify.ErrOrStderr()
		return faturas.ClassifyCommand(ctx, classifyOpts)
	})

	var cutoffOpts cli.CutoffOptions
	cutoff := &cobra.Command{
		Use:   "cutoff",
		Short: "Print the payment cutoff for a date",
		Example: `  faturas cutoff --today 2024-03-11
  2024-03-20 Wednesday`,
		Args: cobra.NoArgs,
	}
	cutoff.Flags().StringVar(&cutoffOpts.Today, "today", today, "reference date YYYY-MM-DD")
	cutoff.Flags().BoolVar(&cutoffOpts.JSONOutput, "json", false, "emit JSON")
	cutoff.RunE = runE(func(context.Context) int {
		cutoffOpts.Stdout, cutoffOpts.Stderr = cutoff.OutOrStdout(), cutoff.ErrOrStderr()
		return cli.CutoffCommand(cutoffOpts)
	})

	root.AddCommand(report, backlog, classify, cutoff)
	return root
}

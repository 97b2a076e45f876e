package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jegsons/sellthru/cmd/sellthru/cli"
	"github.com/jegsons/sellthru/internal/app"
	jobmetrics "github.com/jegsons/sellthru/internal/jobs"
	"github.com/jegsons/sellthru/internal/platform/cache"
	"github.com/jegsons/sellthru/internal/platform/db"
	"github.com/jegsons/sellthru/internal/platform/storage"
	"github.com/jegsons/sellthru/jobs"
)

const usage = `usage: sellthru <command> [flags]

commands:
  generate   build and archive one weekly workbook
  enqueue    queue a weekly run for the worker
  queue      show report queue statistics
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(cli.ExitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(cli.ExitFailure)
	}

	var code int
	switch os.Args[1] {
	case "generate":
		code = runGenerate(ctx, cfg, os.Args[2:])
	case "enqueue":
		code = runEnqueue(ctx, cfg, os.Args[2:])
	case "queue":
		code = runQueue(ctx, cfg)
	default:
		fmt.Fprint(os.Stderr, usage)
		code = cli.ExitUsage
	}
	stop()
	os.Exit(code)
}

func runGenerate(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	year := fs.String("year", "", "ISO year")
	week := fs.String("week", "", "ISO week number")
	vendor := fs.String("vendor", cfg.ReportDefaultVendor, "vendor number")
	previous := fs.Bool("previous", false, "report the ISO week before today")
	out := fs.String("out", "", "write the workbook to this directory instead of the configured store")
	jsonOutput := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return cli.ExitUsage
	}

	logger := app.NewLoggerTo(cfg, os.Stderr).With(slog.String("cmd", "generate"))

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{ApplicationName: "sellthru-cli", MaxConns: 4})
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return cli.ExitFailure
	}
	defer pool.Close()

	deps := app.ReportDeps{Pool: pool, Metrics: jobmetrics.NewMetrics(nil), Logger: logger}
	if client, err := cache.New(ctx, cfg.RedisAddr); err == nil {
		deps.Redis = client
		defer client.Close()
	} else {
		logger.Warn("redis unavailable, running without report lock", slog.Any("error", err))
	}

	if strings.TrimSpace(*out) != "" {
		deps.Store, err = storage.NewLocalStore(*out)
	} else {
		deps.Store, err = app.OpenReportStore(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return cli.ExitFailure
	}

	reportCLI, err := cli.NewReportCLI(app.NewReportService(cfg, deps))
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return cli.ExitFailure
	}
	return reportCLI.GenerateCommand(ctx, cli.GenerateOptions{
		Year:       *year,
		Week:       *week,
		Vendor:     *vendor,
		Previous:   *previous,
		JSONOutput: *jsonOutput,
	})
}

func runEnqueue(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	year := fs.Int("year", 0, "ISO year")
	week := fs.Int("week", 0, "ISO week number")
	vendor := fs.String("vendor", cfg.ReportDefaultVendor, "vendor number")
	previous := fs.Bool("previous", false, "let the worker report the ISO week before it runs")
	if err := fs.Parse(args); err != nil {
		return cli.ExitUsage
	}

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "enqueue: %v\n", err)
		return cli.ExitFailure
	}
	defer jobsCLI.Close()

	info, err := jobsCLI.Enqueue(ctx, jobs.WeeklyReportPayload{
		Year:         *year,
		Week:         *week,
		VendorID:     *vendor,
		PreviousWeek: *previous,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "enqueue: %v\n", err)
		return cli.ExitFailure
	}
	fmt.Fprintf(os.Stdout, "queued %s on %s\n", info.ID, info.Queue)
	return cli.ExitOK
}

func runQueue(ctx context.Context, cfg *app.Config) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "queue: %v\n", err)
		return cli.ExitFailure
	}
	defer jobsCLI.Close()

	stats, err := jobsCLI.InspectQueue(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "queue: %v\n", err)
		return cli.ExitFailure
	}
	fmt.Fprintf(os.Stdout, "%s: pending=%d active=%d scheduled=%d retry=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	return cli.ExitOK
}

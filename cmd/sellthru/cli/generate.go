package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/sellthru"
	"github.com/jegsons/sellthru/internal/week"
)

// Exit codes returned by GenerateCommand.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUsage      = 2
	ExitInProgress = 3
	ExitBadData    = 4
)

type generator interface {
	Generate(ctx context.Context, req sellthru.Request) (sellthru.Result, error)
}

// ReportCLI runs report generation from the command line.
type ReportCLI struct {
	service generator
}

// NewReportCLI constructs the helper around a report service.
func NewReportCLI(service generator) (*ReportCLI, error) {
	if service == nil {
		return nil, errors.New("report cli: service required")
	}
	return &ReportCLI{service: service}, nil
}

// GenerateOptions configures one generate invocation. Year and Week stay raw
// text so malformed flags are reported as week errors.
type GenerateOptions struct {
	Year       string
	Week       string
	Vendor     string
	Previous   bool
	JSONOutput bool
	Now        func() time.Time
	Stdout     io.Writer
	Stderr     io.Writer
}

// GenerateCommand builds and archives one weekly workbook and prints a summary.
func (c *ReportCLI) GenerateCommand(ctx context.Context, opts GenerateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	req := sellthru.Request{VendorID: opts.Vendor}
	if opts.Previous {
		if opts.Year != "" || opts.Week != "" {
			fmt.Fprintln(opts.Stderr, "generate: -previous cannot be combined with -year or -week")
			return ExitUsage
		}
		req.Year, req.Week = week.Previous(opts.Now())
	} else {
		wk, err := week.Parse(opts.Year, opts.Week, opts.Now())
		if err != nil {
			fmt.Fprintf(opts.Stderr, "generate: %v\n", err)
			return ExitUsage
		}
		req.Year, req.Week = wk.Year, wk.Week
	}

	fmt.Fprintf(opts.Stderr, "generating %s %d W%d...\n", strings.ToUpper(strings.TrimSpace(req.VendorID)), req.Year, req.Week)
	result, err := c.service.Generate(ctx, req)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "generate: %v\n", err)
		return exitCode(err)
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(opts.Stderr, "generate: %v\n", err)
			return ExitFailure
		}
		return ExitOK
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(opts.Stdout, "%s\n", result.FileName)
	p.Fprintf(opts.Stdout, "  location:        %s (%d bytes)\n", result.Location, result.Size)
	p.Fprintf(opts.Stdout, "  summary rows:    %d\n", result.SummaryRows)
	p.Fprintf(opts.Stdout, "  breakdown rows:  %d\n", result.BreakdownRows)
	p.Fprintf(opts.Stdout, "  imei rows:       %d\n", result.SerialRows)
	p.Fprintf(opts.Stdout, "  sell thru:       %d\n", result.TotalSellThru)
	p.Fprintf(opts.Stdout, "  warehouse:       %d\n", result.TotalWarehouse)
	return ExitOK
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, sellthru.ErrInvalidRequest), errors.Is(err, week.ErrInvalidWeekSpec):
		return ExitUsage
	case errors.Is(err, sellthru.ErrReportInProgress):
		return ExitInProgress
	case errors.Is(err, ledger.ErrMissingOnHand), errors.Is(err, sellthru.ErrSourceSchema):
		return ExitBadData
	default:
		return ExitFailure
	}
}

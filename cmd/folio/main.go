package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/openfolio/folio/internal/app"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
	"github.com/openfolio/folio/internal/services/valuation"
)

const usage = `folio — personal investment ledger engine

Usage: folio <command> [flags]

Commands:
  holdings   replay the ledger into current holdings for a symbol
  stats      per-investment stats (avg price, value, return, dividends)
  splits     reconcile missing stock split activities from market data
  series     daily valuation series (market value, net flow, invested)
  xirr       money-weighted annualized return for the ledger slice
  benchmark  compare the portfolio against a benchmark symbol
  chart      render the valuation series to a PNG file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "config file path (default folio.toml)")
	symbol := fs.String("symbol", "", "investment symbol")
	account := fs.String("account", "", "account id (use 'unassigned' for the unassigned bucket)")
	from := fs.String("from", "", "range start, YYYY-MM-DD")
	to := fs.String("to", "", "range end, YYYY-MM-DD")
	benchmark := fs.String("benchmark", "", "benchmark symbol")
	out := fs.String("out", "valuation.png", "output file for chart")
	fs.Parse(os.Args[2:])

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	query := interfaces.ActivityQuery{Symbol: *symbol, AccountID: *account}

	switch cmd {
	case "holdings":
		requireSymbol(*symbol)
		state, err := a.LedgerService.GetHoldings(ctx, *symbol, *account)
		exitOn(err)
		printJSON(state)

	case "stats":
		requireSymbol(*symbol)
		stats, err := a.LedgerService.GetInvestmentStats(ctx, *symbol, *account, a.Config.DisplayCurrency)
		exitOn(err)
		printJSON(stats)

	case "splits":
		var created int
		if *symbol != "" {
			created, err = a.LedgerService.ReconcileSplits(ctx, *symbol)
		} else {
			created, err = a.LedgerService.ReconcileAllSplits(ctx)
		}
		exitOn(err)
		fmt.Printf("synthesized %d split activities\n", created)

	case "series":
		points, err := a.ValuationService.BuildPortfolioSeries(ctx, query, parseDate(*from), parseDate(*to))
		exitOn(err)
		printJSON(points)

	case "xirr":
		rate, ok, err := a.ValuationService.PortfolioXIRR(ctx, query, time.Now())
		exitOn(err)
		if !ok {
			fmt.Println("xirr: undefined (insufficient data or no convergence)")
			return
		}
		fmt.Printf("xirr: %.4f (%.2f%% p.a.)\n", rate, rate*100)

	case "benchmark":
		if *benchmark == "" {
			fmt.Fprintln(os.Stderr, "-benchmark is required")
			os.Exit(2)
		}
		cmp, err := a.ValuationService.CompareWithBenchmark(ctx, query, *benchmark, parseDate(*from), parseDate(*to))
		exitOn(err)
		printJSON(cmp)

	case "chart":
		points, err := a.ValuationService.BuildPortfolioSeries(ctx, query, parseDate(*from), parseDate(*to))
		exitOn(err)
		png, err := valuation.RenderValuationChart(points)
		exitOn(err)
		exitOn(os.WriteFile(*out, png, 0644))
		fmt.Printf("wrote %s (%d points)\n", *out, len(points))

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func requireSymbol(symbol string) {
	if symbol == "" {
		fmt.Fprintln(os.Stderr, "-symbol is required")
		os.Exit(2)
	}
}

func parseDate(s string) time.Time {
	return models.ParseLedgerDate(s)
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mewroo/marketx/pkg/db"
	"github.com/mewroo/marketx/pkg/ingest"
	"github.com/mewroo/marketx/pkg/logging"
	"github.com/mewroo/marketx/pkg/provider"
)

const usage = `Usage: ingest <job> [flags]

Jobs:
  industries   Refresh the sector/industry catalog
  membership   Refresh industry constituent tickers
  prices       Incrementally ingest OHLCV price history
  market-cap   Snapshot market capitalization per ticker

Run "ingest <job> -h" for job-specific flags.
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.New()
	if err != nil {
		panic(err)
	}

	job := os.Args[1]
	args := os.Args[2:]

	var rows int
	switch job {
	case "industries":
		rows, err = runIndustries(ctx, logger, args)
	case "membership":
		rows, err = runMembership(ctx, logger, args)
	case "prices":
		rows, err = runPrices(ctx, logger, args)
	case "market-cap":
		rows, err = runMarketCap(ctx, logger, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown job %q\n\n%s", job, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("Ingestion failed", zap.String("job", job), zap.Error(err))
	}

	fmt.Printf("%s: %d rows written\n", job, rows)
}

// connect wires the ClickHouse store and the provider client from the environment.
func connect(ctx context.Context, logger *zap.Logger) (*db.DB, *provider.Client, error) {
	financeDB, err := db.New(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	return financeDB, provider.NewFromEnv(), nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func runIndustries(ctx context.Context, logger *zap.Logger, args []string) (int, error) {
	fs := flag.NewFlagSet("industries", flag.ExitOnError)
	sectors := fs.String("sectors", "", "comma-separated sector keys (default: the full GICS-style sector list)")
	asofDate := fs.String("asof-date", "", "snapshot date, YYYY-MM-DD (default: today UTC)")
	force := fs.Bool("force", false, "re-ingest even if the snapshot watermark is current")
	_ = fs.Parse(args)

	asof, err := ingest.ParseAsOfDate(*asofDate)
	if err != nil {
		return 0, err
	}

	store, market, err := connect(ctx, logger)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()
	defer market.Close()

	job := &ingest.DimIndustryJob{
		Store:    store,
		Provider: market,
		Logger:   logger,
		Sectors:  splitList(*sectors),
		AsOf:     asof,
		Force:    *force,
	}
	return job.Run(ctx)
}

func runMembership(ctx context.Context, logger *zap.Logger, args []string) (int, error) {
	fs := flag.NewFlagSet("membership", flag.ExitOnError)
	asofDate := fs.String("asof-date", "", "snapshot date, YYYY-MM-DD (default: today UTC)")
	force := fs.Bool("force", false, "re-ingest even if the snapshot watermark is current")
	_ = fs.Parse(args)

	asof, err := ingest.ParseAsOfDate(*asofDate)
	if err != nil {
		return 0, err
	}

	store, market, err := connect(ctx, logger)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()
	defer market.Close()

	job := &ingest.MembershipJob{
		Store:    store,
		Provider: market,
		Logger:   logger,
		AsOf:     asof,
		Force:    *force,
	}
	return job.Run(ctx)
}

func runPrices(ctx context.Context, logger *zap.Logger, args []string) (int, error) {
	fs := flag.NewFlagSet("prices", flag.ExitOnError)
	tickers := fs.String("tickers", "", "comma-separated tickers (default: latest membership snapshot)")
	interval := fs.String("interval", ingest.DefaultInterval, "bar interval")
	overlapDays := fs.Int("overlap-days", ingest.DefaultOverlapDays, "days to re-fetch behind the watermark")
	lookbackDays := fs.Int("lookback-days", ingest.DefaultLookbackDays, "minimum history window in days")
	chunkSize := fs.Int("chunk-size", ingest.DefaultChunkSize, "tickers per download batch")
	force := fs.Bool("force", false, "write fetched rows even at or below the watermark")
	_ = fs.Parse(args)

	store, market, err := connect(ctx, logger)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()
	defer market.Close()

	job := &ingest.PricesJob{
		Store:        store,
		Provider:     market,
		Logger:       logger,
		Tickers:      splitList(*tickers),
		Interval:     *interval,
		OverlapDays:  *overlapDays,
		LookbackDays: *lookbackDays,
		ChunkSize:    *chunkSize,
		Force:        *force,
	}
	return job.Run(ctx)
}

func runMarketCap(ctx context.Context, logger *zap.Logger, args []string) (int, error) {
	fs := flag.NewFlagSet("market-cap", flag.ExitOnError)
	tickers := fs.String("tickers", "", "comma-separated tickers (default: latest membership snapshot)")
	asofDate := fs.String("asof-date", "", "snapshot date, YYYY-MM-DD (default: today UTC)")
	force := fs.Bool("force", false, "re-ingest even if the snapshot watermark is current")
	_ = fs.Parse(args)

	asof, err := ingest.ParseAsOfDate(*asofDate)
	if err != nil {
		return 0, err
	}

	store, market, err := connect(ctx, logger)
	if err != nil {
		return 0, err
	}
	defer func() { _ = store.Close() }()
	defer market.Close()

	job := &ingest.MarketCapJob{
		Store:    store,
		Provider: market,
		Logger:   logger,
		Tickers:  splitList(*tickers),
		AsOf:     asof,
		Force:    *force,
	}
	return job.Run(ctx)
}

package scheduler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mewroo/marketx/pkg/db"
	"github.com/mewroo/marketx/pkg/ingest"
	"github.com/mewroo/marketx/pkg/logging"
	"github.com/mewroo/marketx/pkg/provider"
	"github.com/mewroo/marketx/pkg/retry"
	"github.com/mewroo/marketx/pkg/utils"
)

// App runs the four ingestion jobs on a Cron tick: industry catalog,
// membership, prices, market caps — in that order, since each feeds the next.
type App struct {
	// Clickhouse DB
	DB *db.DB

	// Provider is the upstream market-data API client.
	Provider *provider.Client

	// Cron is the scheduler that triggers ingestion runs at specified intervals, according to CronSpec.
	Cron     *cron.Cron
	CronSpec string

	// RunTimeout bounds one full ingestion cycle.
	RunTimeout time.Duration

	// Logger is used to log messages, errors, and events during the application's lifecycle and operations.
	Logger *zap.Logger

	// Server is the HTTP server that serves the health probes.
	Server *http.Server
}

// Initialize initializes the App.
func Initialize(ctx context.Context) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	financeDB, err := db.New(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to initialize finance database", zap.Error(err))
	}

	providerClient := provider.NewFromEnv()
	err = retry.WithBackoff(ctx, retry.FixedConfig(30, time.Second), logger, "provider startup", func() error {
		return providerClient.Ping(ctx)
	})
	if err != nil {
		logger.Fatal("Unable to reach market data provider", zap.Error(err))
	}

	app := &App{
		DB:       financeDB,
		Provider: providerClient,
		Cron:     nil,
		// Weekdays at 22:00 UTC, after US market close.
		CronSpec:   utils.Env("CRON_SPEC", "0 0 22 * * 1-5"),
		RunTimeout: time.Duration(utils.EnvInt("RUN_TIMEOUT_MINUTES", 30)) * time.Minute,
		Logger:     logger,
	}

	if err := app.SetupScheduler(ctx, cron.DefaultLogger); err != nil {
		return nil, err
	}
	app.SetupServer()

	return app, nil
}

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3002")

	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.DB.Db.Ping(r.Context()); err != nil {
			w.WriteHeader(503)
			return
		}
		w.WriteHeader(200)
	})).Methods("GET")

	a.Server = &http.Server{Addr: addr, Handler: r}
}

// SetupScheduler sets up the cron scheduler.
func (a *App) SetupScheduler(ctx context.Context, logger cron.Logger) error {
	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger)))

	_, err := a.Cron.AddFunc(a.CronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, a.RunTimeout)
		defer cancel()
		a.RunOnce(rctx)
	})
	if err != nil {
		return err
	}

	return nil
}

// RunOnce executes one full ingestion cycle. A failing job is logged and the
// cycle moves on: the jobs only depend on each other through data already in
// ClickHouse, so a stale upstream table degrades the run instead of killing it.
func (a *App) RunOnce(ctx context.Context) {
	runStart := time.Now()

	jobs := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{"dim_industry", func(ctx context.Context) (int, error) {
			job := &ingest.DimIndustryJob{Store: a.DB, Provider: a.Provider, Logger: a.Logger}
			return job.Run(ctx)
		}},
		{"industry_membership", func(ctx context.Context) (int, error) {
			job := &ingest.MembershipJob{Store: a.DB, Provider: a.Provider, Logger: a.Logger}
			return job.Run(ctx)
		}},
		{"stock_prices", func(ctx context.Context) (int, error) {
			job := &ingest.PricesJob{Store: a.DB, Provider: a.Provider, Logger: a.Logger}
			return job.Run(ctx)
		}},
		{"market_cap", func(ctx context.Context) (int, error) {
			job := &ingest.MarketCapJob{Store: a.DB, Provider: a.Provider, Logger: a.Logger}
			return job.Run(ctx)
		}},
	}

	for _, job := range jobs {
		jobStart := time.Now()
		rows, err := job.run(ctx)
		if err != nil {
			a.Logger.Error("Ingestion job failed",
				zap.String("job", job.name),
				zap.Duration("duration", time.Since(jobStart)),
				zap.Error(err))
			continue
		}
		a.Logger.Info("Ingestion job complete",
			zap.String("job", job.name),
			zap.Int("rows", rows),
			zap.Duration("duration", time.Since(jobStart)))
	}

	a.Logger.Info("Ingestion cycle complete", zap.Duration("duration", time.Since(runStart)))
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("Cron started", zap.String("cronSpec", a.CronSpec))
}

// StopCron stops the cron scheduler.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	a.Provider.Close()
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	a.StartCron()
	<-ctx.Done()

	a.StopCron()
	_ = a.Server.Close()

	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

// Command paperprofit runs the paper-trading engine.
//
// Subcommands:
//
//	api      start the HTTP API and background workers (default)
//	migrate  database schema management and sample data seeding
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paperprofit/internal/ai"
	"github.com/aristath/paperprofit/internal/analysis/scoring"
	"github.com/aristath/paperprofit/internal/config"
	"github.com/aristath/paperprofit/internal/database"
	"github.com/aristath/paperprofit/internal/modules/accounts"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/marketdata"
	"github.com/aristath/paperprofit/internal/modules/orders"
	"github.com/aristath/paperprofit/internal/modules/positions"
	"github.com/aristath/paperprofit/internal/modules/settings"
	"github.com/aristath/paperprofit/internal/modules/signals"
	"github.com/aristath/paperprofit/internal/modules/strategies"
	"github.com/aristath/paperprofit/internal/modules/syslog"
	"github.com/aristath/paperprofit/internal/modules/trades"
	"github.com/aristath/paperprofit/internal/providers"
	"github.com/aristath/paperprofit/internal/scheduler"
	"github.com/aristath/paperprofit/internal/server"
	"github.com/aristath/paperprofit/internal/workers"
	"github.com/aristath/paperprofit/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	cmd := "api"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "api":
		runAPI(cfg, log, args)
	case "migrate":
		runMigrate(cfg, log, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected api or migrate)\n", cmd)
		os.Exit(1)
	}
}

func openDatabase(cfg *config.Config, log zerolog.Logger) *database.DB {
	db, err := database.New(database.Config{
		Path: cfg.DatabasePath(),
		Name: "paperprofit",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	return db
}

func runMigrate(cfg *config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	action := fs.String("action", "init", "init | status | migrate | migrate-all | sample")
	sqlFile := fs.String("sql-file", "", "SQL file for --action migrate")
	dir := fs.String("dir", "", "directory of *.sql files for --action migrate-all")
	_ = fs.Parse(args)

	log = logger.Component(log, "migrate")
	db := openDatabase(cfg, log)
	defer db.Close()

	migrator := database.NewMigrator(db, log)

	switch *action {
	case "init":
		if err := migrator.Init(); err != nil {
			log.Fatal().Err(err).Msg("Schema initialization failed")
		}
		syslog.NewRepository(db.Conn(), log).Info("migrate", "Database schema initialized")
		log.Info().Str("path", db.Path()).Msg("Database initialized")

	case "status":
		missing, err := migrator.Status()
		if err != nil {
			log.Fatal().Err(err).Msg("Status check failed")
		}
		if len(missing) > 0 {
			log.Error().Strs("missing_tables", missing).Msg("Schema is incomplete")
			os.Exit(1)
		}
		log.Info().Msg("All required tables present")

	case "migrate":
		if *sqlFile == "" {
			log.Fatal().Msg("--sql-file is required for --action migrate")
		}
		if err := migrator.RunSQLFile(*sqlFile); err != nil {
			log.Fatal().Err(err).Str("file", *sqlFile).Msg("Migration failed")
		}
		log.Info().Str("file", *sqlFile).Msg("Migration applied")

	case "migrate-all":
		if *dir == "" {
			log.Fatal().Msg("--dir is required for --action migrate-all")
		}
		if err := migrator.RunAll(*dir); err != nil {
			log.Fatal().Err(err).Str("dir", *dir).Msg("Migrations failed")
		}
		log.Info().Str("dir", *dir).Msg("Migrations applied")

	case "sample":
		if err := migrator.Init(); err != nil {
			log.Fatal().Err(err).Msg("Schema initialization failed")
		}
		if err := seedSample(db, log); err != nil {
			log.Fatal().Err(err).Msg("Sample data seeding failed")
		}
		log.Info().Msg("Sample data seeded")

	default:
		log.Fatal().Str("action", *action).Msg("Unknown migrate action")
	}
}

// seedSample creates a demo account wired to a manual momentum strategy over
// a handful of large caps. Safe to re-run: existing rows are left alone.
func seedSample(db *database.DB, log zerolog.Logger) error {
	conn := db.Conn()
	strategiesRepo := strategies.NewRepository(conn, log)
	accountsRepo := accounts.NewRepository(conn, log)
	instrumentsRepo := instruments.NewRepository(conn, log)

	strat, err := strategiesRepo.GetByName("Demo Momentum")
	if err != nil {
		return err
	}
	if strat == nil {
		strat = &strategies.Strategy{
			Name:          "Demo Momentum",
			Description:   "RSI and trend following over a fixed large-cap list",
			Category:      "Long",
			StrategyType:  "Swing Trade",
			StockListMode: strategies.StockListManual,
			StockList:     "AAPL,MSFT,GOOGL,AMZN,NVDA",
			Parameters:    strategies.Params{},
			IsActive:      true,
		}
		if _, err := strategiesRepo.Create(strat); err != nil {
			return err
		}
	}

	acct, err := accountsRepo.GetByID("demo")
	if err != nil {
		return err
	}
	if acct == nil {
		acct = &accounts.Account{
			AccountID:   "demo",
			AccountName: "Demo Account",
			AccountType: "paper",
			CashBalance: decimal.NewFromInt(100000),
			Currency:    "USD",
			Description: "Seeded demo account",
			StrategyID:  &strat.ID,
			IsActive:    true,
		}
		if err := accountsRepo.Create(acct); err != nil {
			return err
		}
	}

	for _, symbol := range []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"} {
		existing, err := instrumentsRepo.GetBySymbol(symbol)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := instrumentsRepo.Create(&instruments.Instrument{
			Symbol:   symbol,
			Name:     symbol,
			Currency: "USD",
			IsActive: true,
		}); err != nil {
			return err
		}
	}
	return nil
}

func runAPI(cfg *config.Config, log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("api", flag.ExitOnError)
	host := fs.String("host", cfg.Host, "listen host")
	port := fs.Int("port", cfg.Port, "listen port")
	_ = fs.Parse(args)

	log.Info().Msg("Starting PaperProfit")

	db := openDatabase(cfg, log)
	defer db.Close()

	if err := database.NewMigrator(db, log).Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	conn := db.Conn()
	accountsRepo := accounts.NewRepository(conn, log)
	instrumentsRepo := instruments.NewRepository(conn, log)
	ordersRepo := orders.NewRepository(conn, log)
	positionsRepo := positions.NewRepository(conn, log)
	tradesRepo := trades.NewRepository(conn, log)
	signalsRepo := signals.NewRepository(conn, log)
	strategiesRepo := strategies.NewRepository(conn, log)
	marketdataRepo := marketdata.NewRepository(conn, log)
	settingsRepo := settings.NewRepository(conn, log)
	syslogRepo := syslog.NewRepository(conn, log)

	// Market data vendors with failover.
	yahoo := providers.NewYahoo(log)
	alphaVantage := providers.NewAlphaVantage(settingsRepo, log)
	fmp := providers.NewFMP(settingsRepo, log)
	octopus := providers.NewOctopus(yahoo, alphaVantage, fmp, log)

	scoringSvc := scoring.NewService(instrumentsRepo, octopus, log)
	instrumentsSvc := instruments.NewService(instrumentsRepo, octopus, scoringSvc, log)

	aiCache := ai.NewCache(settingsRepo, log)
	aiSvc := ai.NewService(settingsRepo, aiCache, log)

	matcher := workers.NewMatcher(conn, ordersRepo, accountsRepo, positionsRepo,
		tradesRepo, instrumentsRepo, octopus, syslogRepo, log)
	revaluer := workers.NewRevaluer(positionsRepo, instrumentsRepo, octopus, log)
	refresher := workers.NewRefresher(instrumentsRepo, marketdataRepo, octopus, log)
	bot := workers.NewTradingBot(accountsRepo, strategiesRepo, positionsRepo,
		ordersRepo, signalsRepo, marketdataRepo, instrumentsSvc, octopus, octopus,
		aiSvc, syslogRepo, log)

	jobs := scheduler.NewController(syslogRepo, log)
	mustRegister := func(name string, task scheduler.Task, interval time.Duration) {
		if err := jobs.Register(name, task, interval); err != nil {
			log.Fatal().Err(err).Str("job", name).Msg("Failed to register job")
		}
	}
	mustRegister("process_orders", matcher.Run, cfg.OrderMatcherInterval)
	mustRegister("update_positions", revaluer.Run, cfg.PositionRevalueInterval)
	mustRegister("update_market_data", refresher.Run, cfg.MarketRefreshInterval)
	mustRegister("trading_bot", bot.Run, cfg.TradingBotInterval)
	if err := jobs.Start(""); err != nil {
		log.Fatal().Err(err).Msg("Failed to start jobs")
	}
	defer jobs.Stop("")

	maintenance := scheduler.NewMaintenance(db, syslogRepo,
		time.Duration(cfg.SystemLogRetentionDays)*24*time.Hour, log)
	if err := maintenance.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start maintenance scheduler")
	}
	defer maintenance.Stop()

	srv := server.New(server.Config{
		Log:         log,
		DB:          db,
		Host:        *host,
		Port:        *port,
		Accounts:    accountsRepo,
		Positions:   positionsRepo,
		Orders:      ordersRepo,
		Trades:      tradesRepo,
		Signals:     signalsRepo,
		Instruments: instrumentsSvc,
		Syslog:      syslogRepo,
		Jobs:        jobs,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Str("host", *host).Int("port", *port).Msg("PaperProfit started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}

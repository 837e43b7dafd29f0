package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/bankbank/atm-core/internal/adapters/database/memory"
	"github.com/bankbank/atm-core/internal/adapters/database/pgsql"
	"github.com/bankbank/atm-core/internal/adapters/hardware"
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
	"github.com/bankbank/atm-core/internal/core/services"
	"github.com/bankbank/atm-core/internal/handlers"
	"github.com/bankbank/atm-core/internal/middleware"
	"github.com/bankbank/atm-core/pkg/config"
	"github.com/bankbank/atm-core/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos, cleanup, err := buildRepositories(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize repositories", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	// Simulated hardware drives the machine in this build. Real deployments
	// swap these for the vendor device adapters.
	hw := services.Hardware{
		CardReader:  hardware.NewSimCardReader(),
		Display:     &hardware.SimDisplay{Logger: logger},
		CashUnit:    hardware.NewSimCashUnit(),
		DepositSlot: hardware.NewSimDepositSlot(),
	}

	svcs := services.NewServiceContainer(cfg, repos, hw, services.ApproveAll)
	controller := services.NewATMController(cfg.MachineID, svcs.Sessions, svcs.Coordinator, svcs.Dispenser, svcs.Ledger, hw.Display)

	// Recovery runs before the machine accepts any request: dangling dispense
	// intents from a crash are compensated first.
	if err := svcs.Coordinator.Recover(context.Background()); err != nil {
		logger.Error("Startup recovery failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, svcs, controller)

	// Idle sessions are swept in the background for the life of the server.
	watchdogCtx, stopWatchdog := context.WithCancel(context.Background())
	defer stopWatchdog()
	go controller.RunIdleWatchdog(watchdogCtx, cfg.IdleTimeout/4)

	logger.Info("Server starting",
		slog.String("machine_id", cfg.MachineID),
		slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildRepositories selects the persistence backend. With PGSQL_URL set the
// ledger state lives in Postgres; otherwise an in-memory store backs the
// machine, which is enough for a single-machine simulation.
func buildRepositories(logger *slog.Logger, cfg *config.Config) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("No database configured, using in-memory repositories")
		return portsrepo.RepositoryProvider{
			AccountRepo:     memory.NewAccountRepository(),
			TransactionRepo: memory.NewTransactionRepository(cfg.HistoryLimit),
			IntentRepo:      memory.NewIntentRepository(),
		}, func() {}, nil
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	logger.Info("Database connection pool established.")

	if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
		database.ClosePgxPool(dbPool)
		return portsrepo.RepositoryProvider{}, nil, err
	}

	return portsrepo.RepositoryProvider{
		AccountRepo:     pgsql.NewAccountRepository(dbPool),
		TransactionRepo: pgsql.NewTransactionRepository(dbPool, cfg.HistoryLimit),
		IntentRepo:      pgsql.NewIntentRepository(dbPool),
	}, func() { database.ClosePgxPool(dbPool) }, nil
}

func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("Running database migrations...")

	// Open a temporary standard sql.DB connection for migrations, using the
	// pgx/v5/stdlib driver to stay compatible with the main pool.
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return upErr
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

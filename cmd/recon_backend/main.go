package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/reconlab/bank_recon_app/internal/adapters/database/pgsql"
	"github.com/reconlab/bank_recon_app/internal/adapters/docintel"
	"github.com/reconlab/bank_recon_app/internal/adapters/fieldcrypt"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/internal/core/services"
	"github.com/reconlab/bank_recon_app/internal/handlers"
	"github.com/reconlab/bank_recon_app/internal/middleware"
	"github.com/reconlab/bank_recon_app/pkg/config"
	"github.com/reconlab/bank_recon_app/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Bank Reconciliation API
// @version 1.0
// @description Bank statement ingestion and reconciliation backend.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(logger, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	encryptor, err := fieldcrypt.New(cfg.FieldEncryptionKey)
	if err != nil {
		logger.Error("Failed to initialize field encryption", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// PDF ingestion is optional; without a processor the decoder rejects pdf
	// uploads with a clear parse error.
	var docParser portssvc.DocumentParser
	if cfg.DocAIProcessor != "" {
		docParser, err = docintel.NewDocumentAIParser(ctx, cfg.DocAIProcessor, cfg.DocAITimeout)
		if err != nil {
			logger.Error("Failed to initialize document intelligence client", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	repos := portsrepo.RepositoryProvider{
		ImportRepo:      pgsql.NewImportRepository(dbPool),
		TransactionRepo: pgsql.NewTransactionRepository(dbPool, encryptor),
		AccountingRepo:  pgsql.NewAccountingRepository(dbPool),
	}
	serviceContainer := services.NewServiceContainer(cfg, repos, docParser, encryptor)

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid RATE_LIMIT format", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rateLimiter := limiter.New(memory.NewStore(), rate)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, rateLimiter)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending "up" migrations over a temporary
// database/sql connection using the pgx stdlib driver.
func runMigrations(logger *slog.Logger, databaseURL string) error {
	logger.Info("Running database migrations...")

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

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

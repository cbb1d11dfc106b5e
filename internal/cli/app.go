package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expensewise/internal/application/service"
	"github.com/garyjia/expensewise/internal/config"
	"github.com/garyjia/expensewise/internal/infrastructure/external/extractapi"
	"github.com/garyjia/expensewise/internal/infrastructure/external/openai"
	"github.com/garyjia/expensewise/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expensewise/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expensewise/internal/infrastructure/storage"
	"github.com/garyjia/expensewise/internal/ingestion"
	"github.com/garyjia/expensewise/internal/receipt"
	"github.com/garyjia/expensewise/internal/summary"
	"github.com/garyjia/expensewise/migrations"
	"github.com/garyjia/expensewise/pkg/database"
)

// App holds the wired application services
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *database.DB
	Receipts   service.ReceiptService
	Dashboard  service.DashboardService
	TaxReports service.TaxReportService
}

// NewApp opens the database, applies pending migrations and wires every service
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if _, err := migrate(ctx, db, cfg, logger); err != nil {
		db.Close()
		return nil, err
	}

	prompts, err := openai.LoadPrompts(cfg.Summary.PromptsPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	extractor := newExtractor(cfg, prompts, logger)
	coordinator := ingestion.NewCoordinator(extractor, ingestion.Config{
		APIKey:         cfg.Extraction.APIKey,
		Mode:           ingestion.Mode(cfg.Extraction.Mode),
		MaxConcurrency: cfg.Extraction.MaxConcurrency,
		Timeout:        cfg.Extraction.Timeout,
	}, logger)

	receiptRepo := repository.NewReceiptRepository(db.DB, logger)
	txManager := sqlite.NewDB(db.DB, logger)

	app := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Receipts: service.NewReceiptService(
			coordinator,
			receiptRepo,
			txManager,
			cfg.Server.MaxUploadMB<<20,
			logger,
		),
		Dashboard: service.NewDashboardService(receiptRepo, cfg.Budget.Policy(), logger),
		TaxReports: service.NewTaxReportService(
			receiptRepo,
			newRequester(cfg, prompts, logger),
			storage.NewLocalReportStorage(cfg.Export.OutputDir, logger),
			service.TaxReportConfig{Profile: cfg.Profile, Currency: cfg.Export.Currency},
			logger,
		),
	}

	return app, nil
}

// Close releases the database
func (a *App) Close() error {
	return a.DB.Close()
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	return database.New(ctx, database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
}

// migrate applies the bundled schema unless a migrations directory is configured
func migrate(ctx context.Context, db *database.DB, cfg *config.Config, logger *zap.Logger) (int, error) {
	migrator := database.NewMigrator(db, logger)
	if cfg.Database.MigrationsDir != "" {
		return migrator.RunMigrations(ctx, cfg.Database.MigrationsDir)
	}
	return migrator.RunMigrationsFS(ctx, migrations.FS)
}

func newExtractor(cfg *config.Config, prompts *openai.PromptConfig, logger *zap.Logger) ingestion.Extractor {
	if cfg.Extraction.Provider == config.ProviderRemote {
		logger.Info("Using remote extraction service", zap.String("base_url", cfg.Extraction.BaseURL))
		return extractapi.NewClient(cfg.Extraction.BaseURL, cfg.Extraction.Timeout, logger)
	}

	rasterizer := receipt.NewRasterizer(receipt.Options{MaxPages: cfg.Extraction.MaxPages}, logger)
	return openai.NewReceiptExtractor(
		openai.NewClientFactory(cfg.Extraction.BaseURL),
		rasterizer,
		prompts,
		openai.ExtractorConfig{
			Model:      cfg.Extraction.Model,
			Categories: cfg.Extraction.Categories,
			Profile:    cfg.Profile,
		},
		logger,
	)
}

// newRequester returns nil when narratives are disabled or have no credential
func newRequester(cfg *config.Config, prompts *openai.PromptConfig, logger *zap.Logger) *summary.Requester {
	if !cfg.Summary.Enabled {
		return nil
	}
	apiKey := cfg.SummaryAPIKey()
	if apiKey == "" {
		logger.Warn("Summary service has no API key, narratives are disabled")
		return nil
	}

	client := openai.NewClientFactory(cfg.Summary.BaseURL)(apiKey)
	narrator := openai.NewTaxNarrator(client, cfg.Summary.Model, prompts, logger)
	return summary.NewRequester(narrator, cfg.Summary.Timeout, logger)
}

package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/garyjia/expensewise/internal/interfaces/http"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, cfg, logger)
			if err != nil {
				logger.Error("Failed to initialize application", zap.Error(err))
				return err
			}
			defer app.Close()

			logger.Info("Starting ExpenseWise",
				zap.String("version", httpapi.Version),
				zap.Int("port", cfg.Server.Port),
				zap.String("extraction_provider", cfg.Extraction.Provider),
				zap.String("extraction_mode", cfg.Extraction.Mode))

			server := httpapi.NewServer(httpapi.ServerConfig{
				Host:           cfg.Server.Host,
				Port:           cfg.Server.Port,
				Mode:           cfg.Server.Mode,
				ReadTimeout:    cfg.Server.ReadTimeout,
				WriteTimeout:   cfg.Server.WriteTimeout,
				ShutdownGrace:  cfg.Server.ShutdownGrace,
				MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
				AllowOrigins:   cfg.Server.AllowOrigins,
			}, app.Receipts, app.Dashboard, app.TaxReports, logger)

			return server.Start(ctx)
		},
	}
}

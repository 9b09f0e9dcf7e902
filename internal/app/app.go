package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"LensInventory/internal/adapter"
	"LensInventory/internal/config"
	"LensInventory/internal/infrastructure/httpapi"
	"LensInventory/internal/infrastructure/ml"
	"LensInventory/internal/infrastructure/parser"
	"LensInventory/internal/infrastructure/retry"
	"LensInventory/internal/infrastructure/scheduler"
	"LensInventory/internal/infrastructure/storage"
	"LensInventory/internal/infrastructure/telegram"
	"LensInventory/internal/infrastructure/visualsearch"
	"LensInventory/internal/logging"
	"LensInventory/internal/quality"
	"LensInventory/internal/rules"
	"LensInventory/internal/usecase"
	"LensInventory/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	book      *rules.Book
	listings  *usecase.ListingService
	retention *usecase.Retention
	db        *sql.DB
	router    http.Handler
}

// New builds the application. Collaborators whose configuration is empty
// are left out and the service degrades accordingly.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	book, err := loadRules(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	for _, skipped := range book.Skipped() {
		baseLogger.Warn("platform profile skipped", "error", skipped)
	}

	deps := usecase.ListingDeps{
		Adapter: adapter.New(book),
		Auditor: quality.NewAuditor(book, quality.Options{
			MaxIterations:  cfg.Refinement.MaxIterations,
			ScoreThreshold: cfg.Refinement.ScoreThreshold,
		}, baseLogger.With("component", "auditor")),
		Platforms: cfg.Platforms.Default,
		Logger:    baseLogger.With("component", "listings"),
	}

	if cfg.Detection.Endpoint != "" {
		deps.Detector = ml.NewClient(ml.Options{
			Endpoint:      cfg.Detection.Endpoint,
			APIKey:        cfg.Detection.APIKey,
			MinConfidence: cfg.Detection.MinConfidence,
			Timeout:       cfg.Detection.Timeout,
			Retry: retry.Policy{
				MaxAttempts: cfg.Detection.MaxAttempts,
				BaseDelay:   cfg.Detection.RetryDelay,
				Logger:      baseLogger.With("component", "detection"),
			},
		})
	}

	if cfg.VisualSearch.APIKey != "" {
		deps.Searcher = visualsearch.NewClient(visualsearch.Options{
			Endpoint:          cfg.VisualSearch.Endpoint,
			APIKey:            cfg.VisualSearch.APIKey,
			RequestsPerMinute: cfg.VisualSearch.RequestsPerMinute,
			CacheTTL:          cfg.VisualSearch.CacheTTL,
			Timeout:           cfg.VisualSearch.Timeout,
			Retry: retry.Policy{
				MaxAttempts: cfg.VisualSearch.MaxAttempts,
				BaseDelay:   cfg.VisualSearch.RetryDelay,
				Logger:      baseLogger.With("component", "visual_search"),
			},
			Logger: baseLogger.With("component", "visual_search"),
		})
	}

	if cfg.Enrichment.Enabled {
		deps.Enricher = parser.NewProductPage(&http.Client{Timeout: cfg.Enrichment.Timeout})
	}

	if cfg.Notifications.Telegram.Enabled() {
		deps.Publisher = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	a := &Application{cfg: cfg, logger: baseLogger, book: book}

	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := storage.NewPostgresRepository(db)
		deps.Repository = repo
		a.db = db
		a.retention = usecase.NewRetention(
			scheduler.NewIntervalScheduler(cfg.Database.PurgeInterval),
			repo,
			cfg.Database.Retention,
			baseLogger.With("component", "retention"),
		)
	}

	a.listings = usecase.NewListingService(deps)
	a.router = httpapi.NewRouter(httpapi.Deps{
		Listings:      a.listings,
		Platforms:     book.Platforms(),
		Logger:        baseLogger.With("component", "http"),
		MaxImageBytes: cfg.Server.MaxImageBytes,
	})

	baseLogger.Info("application ready",
		"detection", deps.Detector != nil,
		"visual_search", deps.Searcher != nil,
		"enrichment", deps.Enricher != nil,
		"storage", deps.Repository != nil,
		"telegram", deps.Publisher != nil,
		"platforms", cfg.Platforms.Default,
	)
	return a, nil
}

func loadRules(path string) (*rules.Book, error) {
	r := rules.Default()
	if path != "" {
		loaded, err := rules.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		r = loaded
	}
	book, err := r.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	return book, nil
}

// Listings exposes the listing use case for one-shot commands.
func (a *Application) Listings() *usecase.ListingService { return a.listings }

// Rules returns the compiled rule book.
func (a *Application) Rules() *rules.Book { return a.book }

// Handler returns the HTTP router.
func (a *Application) Handler() http.Handler { return a.router }

// Serve runs the HTTP server and the retention job until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if a.retention != nil {
		if err := a.retention.Start(ctx); err != nil {
			return fmt.Errorf("start retention: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := a.retention.Stop(stopCtx); err != nil {
				a.logger.Warn("stop retention", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		ErrorLog:     logger.New(a.logger, "http"),
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.logger.Info("http server stopped")
	return nil
}

// Close releases the database connection, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

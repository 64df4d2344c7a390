package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/internal/admin"
	auditpg "github.com/openshelf/openshelf/internal/audit/postgres"
	"github.com/openshelf/openshelf/internal/auth"
	authpg "github.com/openshelf/openshelf/internal/auth/postgres"
	"github.com/openshelf/openshelf/internal/author"
	authorpg "github.com/openshelf/openshelf/internal/author/postgres"
	"github.com/openshelf/openshelf/internal/authz"
	authzpg "github.com/openshelf/openshelf/internal/authz/postgres"
	"github.com/openshelf/openshelf/internal/book"
	bookpg "github.com/openshelf/openshelf/internal/book/postgres"
	"github.com/openshelf/openshelf/internal/core/events"
	"github.com/openshelf/openshelf/internal/genre"
	genrepg "github.com/openshelf/openshelf/internal/genre/postgres"
	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/internal/library"
	librarypg "github.com/openshelf/openshelf/internal/library/postgres"
	"github.com/openshelf/openshelf/internal/notice"
	noticepg "github.com/openshelf/openshelf/internal/notice/postgres"
	"github.com/openshelf/openshelf/internal/openlibrary"
	"github.com/openshelf/openshelf/internal/rate"
	ratepg "github.com/openshelf/openshelf/internal/rate/postgres"
	"github.com/openshelf/openshelf/internal/readinglist"
	readinglistpg "github.com/openshelf/openshelf/internal/readinglist/postgres"
	"github.com/openshelf/openshelf/internal/transport"
	"github.com/openshelf/openshelf/internal/transport/rest"
	"github.com/openshelf/openshelf/internal/user"
	userpg "github.com/openshelf/openshelf/internal/user/postgres"
	"github.com/openshelf/openshelf/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	GormDB    *gorm.DB
	OwnerDB   *sqlx.DB
	Router    *chi.Mux
	Importers []*importer.Service
	Logger    *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runCleanupSweeper(sweepCtx, deps.Importers, deps.Config.Importer, deps.Logger)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		stopSweeper()
		wg.Wait()
		if err := deps.OwnerDB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		stopSweeper()
		wg.Wait()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

// runCleanupSweeper deletes stale temporary imports on a fixed interval
// until the context is cancelled.
func runCleanupSweeper(ctx context.Context, importers []*importer.Service, cfg internal.ImporterConfig, lg *slog.Logger) {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lg.Info("import cleanup sweeper started",
		"interval", interval, "max_age", cfg.TemporaryMaxAge)

	for {
		select {
		case <-ctx.Done():
			lg.Info("import cleanup sweeper stopped")
			return
		case <-ticker.C:
			for _, svc := range importers {
				if _, err := svc.CleanupTemporaries(ctx, cfg.TemporaryMaxAge); err != nil {
					lg.Error("cleanup sweep failed", "kind", svc.Kind(), "error", err)
				}
			}
		}
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	gormDB, err := gorm.Open(postgres.Open(config.Database.Source), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.Database.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.Database.ConnMaxIdleTime)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Separate lightweight connection for ownership lookups.
	ownerDB, err := sqlx.Connect("pgx", config.Database.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open ownership db connection: %w", err)
	}
	ownerDB.SetMaxOpenConns(config.Database.MaxIdleConns)

	bus := events.NewEventBus(lg)
	subscribeImportEvents(bus, lg)

	auditSink := auditpg.NewSink(gormDB, lg)
	engine := authz.NewEngine(authzpg.NewResolver(gormDB), auditSink, lg)

	olClient := openlibrary.NewClient(config.OpenLibrary.BaseURL, config.OpenLibrary.FetchTimeout, lg)

	bookRepo := bookpg.NewBookRepository(gormDB)
	authorRepo := authorpg.NewAuthorRepository(gormDB)

	bookImports := importer.NewService("book", bookRepo, book.NewWorkFetcher(olClient, lg), bus, lg)
	authorImports := importer.NewService("author", authorRepo, author.NewAuthorFetcher(olClient), bus, lg)
	importers := []*importer.Service{bookImports, authorImports}

	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authpg.NewRepository(gormDB), tokenGen, config.Security.BCryptCost)

	base := transport.NewBaseHandler(lg)
	handlers := rest.Handlers{
		Auth:        auth.NewHandler(authService),
		User:        user.NewHandler(base, user.NewService(userpg.NewUserRepository(gormDB), config.Security.BCryptCost)),
		Book:        book.NewHandler(base, book.NewService(bookRepo)),
		Author:      author.NewHandler(base, author.NewService(authorRepo, authorImports)),
		Genre:       genre.NewHandler(base, genre.NewService(genrepg.NewGenreRepository(gormDB))),
		Notice:      notice.NewHandler(base, notice.NewService(noticepg.NewNoticeRepository(gormDB))),
		Rate:        rate.NewHandler(base, rate.NewService(ratepg.NewRateRepository(gormDB), bookRepo, bookImports)),
		Library:     library.NewHandler(base, library.NewService(librarypg.NewLibraryRepository(gormDB), bookRepo, bookImports)),
		ReadingList: readinglist.NewHandler(base, readinglist.NewService(readinglistpg.NewReadingListRepository(gormDB), bookRepo)),
		Admin:       admin.NewHandler(base, auditSink, importers, config.Importer.TemporaryMaxAge),
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, sqlDB, ownerDB, engine, handlers, lg)

	return &Dependencies{
		Config:    config,
		GormDB:    gormDB,
		OwnerDB:   ownerDB,
		Router:    router,
		Importers: importers,
		Logger:    lg,
	}, nil
}

func subscribeImportEvents(bus *events.EventBus, lg *slog.Logger) {
	logEvent := func(ctx context.Context, event events.Event) error {
		lg.Info("import lifecycle event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	}

	bus.Subscribe(events.EventTypeImportConfirmed, logEvent)
	bus.Subscribe(events.EventTypeImportRolledBack, logEvent)
	bus.Subscribe(events.EventTypeImportCleanedUp, logEvent)
}

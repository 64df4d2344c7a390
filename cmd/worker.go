package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/author"
	authorpg "github.com/openshelf/openshelf/internal/author/postgres"
	"github.com/openshelf/openshelf/internal/book"
	bookpg "github.com/openshelf/openshelf/internal/book/postgres"
	"github.com/openshelf/openshelf/internal/core/events"
	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/internal/openlibrary"
	"github.com/openshelf/openshelf/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers such as the stale-import cleanup sweeper.`,
}

var cleanupWorkerCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Start the stale-import cleanup sweeper",
	Long:  `Periodically delete temporary imported records that were never confirmed.`,
	Run: func(cmd *cobra.Command, args []string) {
		startCleanupWorker()
	},
}

var (
	cleanupInterval time.Duration
	temporaryMaxAge time.Duration
)

func startCleanupWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	db, err := gorm.Open(postgres.Open(config.Database.Source), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	importerCfg := config.Importer
	if cleanupInterval > 0 {
		importerCfg.CleanupInterval = cleanupInterval
	}
	if temporaryMaxAge > 0 {
		importerCfg.TemporaryMaxAge = temporaryMaxAge
	}

	bus := events.NewEventBus(lg)
	olClient := openlibrary.NewClient(config.OpenLibrary.BaseURL, config.OpenLibrary.FetchTimeout, lg)

	importers := []*importer.Service{
		importer.NewService("book", bookpg.NewBookRepository(db), book.NewWorkFetcher(olClient, lg), bus, lg),
		importer.NewService("author", authorpg.NewAuthorRepository(db), author.NewAuthorFetcher(olClient), bus, lg),
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runCleanupSweeper(ctx, importers, importerCfg, lg)
	}()

	lg.Info("cleanup worker is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down cleanup worker", "signal", sig)

	cancel()

	shutdownDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		lg.Info("cleanup worker shutdown complete")
	case <-time.After(30 * time.Second):
		lg.Warn("shutdown timeout reached, forcing exit")
	}
}

func init() {
	cleanupWorkerCmd.Flags().DurationVar(&cleanupInterval, "interval", 0, "Sweep interval (overrides config)")
	cleanupWorkerCmd.Flags().DurationVar(&temporaryMaxAge, "max-age", 0, "Temporary record max age (overrides config)")

	workerCmd.AddCommand(cleanupWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}

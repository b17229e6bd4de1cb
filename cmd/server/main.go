package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ecoxchange/config"
	"ecoxchange/db"
	"ecoxchange/internal/logging"
	"ecoxchange/internal/session"
	"ecoxchange/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ecoxchange",
	Short: "Renewable energy certificate marketplace server",
	Long: `Serves the EcoXchange marketplace: sign in, upload certificates for
evaluation, search and buy listings, and follow balance changes live.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or ./config/config.yml)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(config.ResolvePath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sessions, closeSessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	journal, closeJournal, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeJournal()

	var events services.Fanout
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := services.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		publisher.Start()
		defer func() {
			if err := publisher.Stop(); err != nil {
				logger.Warn("kafka publisher shutdown", zap.Error(err))
			}
		}()
		events = append(events, publisher)
		logger.Info("publishing market events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	market := services.NewMarketplace(services.MarketplaceOptions{
		Sessions:         sessions,
		Evaluator:        services.NewHTTPEvaluator(cfg.Evaluator.URL, nil),
		Catalog:          services.NewStaticCatalog(cfg.Listings()),
		Journal:          journal,
		Events:           events,
		StartingBalance:  cfg.StartingBalance(),
		EvaluatorTimeout: cfg.Evaluator.Timeout,
		CatalogTimeout:   cfg.Catalog.Timeout,
		Logger:           logger,
	})

	router := setupRouter(cfg, market, logger)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port), zap.String("evaluator", cfg.Evaluator.URL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openSessions(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Repository, func(), error) {
	if cfg.Sessions.Backend != "redis" {
		repo := session.NewMemoryRepository(cfg.Sessions.TTL)
		sweepCtx, stopSweep := context.WithCancel(ctx)
		go repo.RunSweeper(sweepCtx, cfg.Sessions.SweepInterval)
		logger.Info("sessions stored in memory", zap.Duration("ttl", cfg.Sessions.TTL), zap.Duration("sweepInterval", cfg.Sessions.SweepInterval))
		return repo, stopSweep, nil
	}
	rdb, err := session.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("sessions stored in redis", zap.String("addr", cfg.Redis.Addr))
	return session.NewRedisRepository(rdb, cfg.Sessions.TTL), func() { _ = rdb.Close() }, nil
}

func openJournal(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Journal, func(), error) {
	if cfg.Database.URI == "" {
		return db.NewMemoryJournal(0), func() {}, nil
	}
	client, database, err := db.ConnectMongoDB(ctx, cfg.Database.URI)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	journal := db.NewMongoJournal(database)
	if err := journal.EnsureIndexes(ctx); err != nil {
		logger.Warn("failed to create journal indexes", zap.Error(err))
	}
	logger.Info("transactions journaled to MongoDB", zap.String("database", database.Name()))
	return journal, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}, nil
}

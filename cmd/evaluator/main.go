package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecoxchange/controllers"
	"ecoxchange/internal/logging"
	"ecoxchange/middlewares"
	"ecoxchange/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listenAddr string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "evaluator",
	Short: "Development certificate evaluator",
	Long: `Answers POST /api/upload with a certificate type and payout guessed
from the uploaded document's filename. For local runs only; it does not
inspect the document.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&listenAddr, "listen", ":1414", "address to listen on")
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
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middlewares.Recovery(logger), middlewares.RequestLogger(logger))
	routes.SetupEvaluatorRoutes(&router.RouterGroup, controllers.EvaluateUpload(logger))

	srv := &http.Server{Addr: listenAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("evaluator listening", zap.String("addr", listenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("evaluator failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/ratelimit"
	"github.com/shehryarbajwa/browserbase-e2e/internal/report"
)

var (
	flagServeAddr  string
	flagServeRate  float64
	flagServeBurst int
)

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", ":3000", "listen address")
	serveCmd.Flags().Float64Var(&flagServeRate, "rate", 10, "API requests per second per client; 0 disables limiting")
	serveCmd.Flags().IntVar(&flagServeBurst, "burst", 20, "API burst per client")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTML report and the results API",
	RunE: func(cmd *cobra.Command, args []string) error {
		var limiter *ratelimit.Limiter
		if flagServeRate > 0 {
			limiter = ratelimit.NewLimiter(flagServeRate, flagServeBurst)
		}
		results := report.NewResultWriter(cfg.Report.ResultsDir, logger.Named("results"))
		server := report.NewServer(results, filepath.Dir(cfg.Report.HTMLOutput), limiter, logger.Named("server"))

		srv := &http.Server{
			Addr:         flagServeAddr,
			Handler:      server.Router(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("report server starting",
				zap.String("addr", flagServeAddr),
				zap.String("results", cfg.Report.ResultsDir))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		logger.Info("shutting down report server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		logger.Info("report server stopped")
		return nil
	},
}

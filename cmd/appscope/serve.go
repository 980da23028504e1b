package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ooAKLoo/AppScope/internal/analytics"
	"github.com/ooAKLoo/AppScope/internal/config"
	"github.com/ooAKLoo/AppScope/internal/events"
	"github.com/ooAKLoo/AppScope/internal/export"
	"github.com/ooAKLoo/AppScope/internal/ingest"
	"github.com/ooAKLoo/AppScope/internal/metrics"
	"github.com/ooAKLoo/AppScope/internal/server"
	"github.com/ooAKLoo/AppScope/internal/store"
	"github.com/ooAKLoo/AppScope/internal/store/memory"
	"github.com/ooAKLoo/AppScope/internal/store/postgres"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

// openStore returns the store selected by the database URL.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.UseMemoryStore() {
		return memory.New(), nil
	}
	pg, err := postgres.New(cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// exportDestinations builds the configured export targets.
func exportDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []export.Destination {
	var dests []export.Destination
	if cfg.ExportS3Bucket != "" {
		s3Dest, err := export.NewS3Destination(ctx,
			cfg.ExportS3Bucket,
			cfg.ExportS3Prefix,
			cfg.ExportS3Region,
			cfg.ExportS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 export destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("export S3 destination enabled", "bucket", cfg.ExportS3Bucket, "prefix", cfg.ExportS3Prefix)
		}
	}
	if cfg.ExportDir != "" {
		dests = append(dests, export.NewDirDestination(cfg.ExportDir))
		logger.Info("export directory destination enabled", "dir", cfg.ExportDir)
	}
	return dests
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the AppScope HTTP and gRPC servers",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so we don't create a client connection.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)

		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		if cfg.UseMemoryStore() {
			logger.Warn("using in-memory store; data is lost on exit")
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				s.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (APPSCOPE_NATS_URL not set)")
		}

		m := metrics.New()
		engine := analytics.New(s, analytics.WithPublisher(publisher), analytics.WithMetrics(m))
		appServer := server.NewAnalyticsServer(engine, server.Keys{Write: cfg.WriteKey, Read: cfg.ReadKey}, m)

		// Start gRPC listener.
		var grpcServer *grpc.Server
		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				publisher.Close()
				s.Close()
				return err
			}
			grpcServer = server.NewGRPCServer(appServer)
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
		}

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           appServer.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Start export scheduler if any destinations are configured.
		var scheduler *export.Scheduler
		if cfg.ExportInterval > 0 {
			if dests := exportDestinations(context.Background(), cfg, logger); len(dests) > 0 {
				scheduler = export.NewScheduler(s, dests, cfg.ExportInterval, logger)
				scheduler.Start()
				logger.Info("export scheduler started", "interval", cfg.ExportInterval)
			}
		}

		// Start bus ingestion if enabled.
		var ingestCancel context.CancelFunc
		if cfg.NATSIngest && cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create ingest subscriber", "err", err)
			} else {
				sub.OnDrop(m.IngestDropped)
				consumer := ingest.NewConsumer(sub, engine, logger)
				var ingestCtx context.Context
				ingestCtx, ingestCancel = context.WithCancel(context.Background())
				go func() {
					if err := consumer.Run(ingestCtx); err != nil {
						logger.Error("ingest consumer error", "err", err)
					}
					sub.Close()
				}()
			}
		}

		logger.Info("appscope server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		if ingestCancel != nil {
			ingestCancel()
			logger.Info("ingest consumer stopped")
		}

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := s.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

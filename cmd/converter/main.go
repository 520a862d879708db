package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/iasi-l2-converter/internal/adapter/hdf5"
	httpadapter "github.com/couchcryptid/iasi-l2-converter/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/iasi-l2-converter/internal/adapter/kafka"
	natsadapter "github.com/couchcryptid/iasi-l2-converter/internal/adapter/nats"
	"github.com/couchcryptid/iasi-l2-converter/internal/adapter/netcdf"
	"github.com/couchcryptid/iasi-l2-converter/internal/config"
	"github.com/couchcryptid/iasi-l2-converter/internal/geometry"
	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/couchcryptid/iasi-l2-converter/internal/pipeline"
	"github.com/couchcryptid/iasi-l2-converter/internal/product"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	area, err := geometry.LoadArea(cfg.AreasFile, cfg.AreaOfInterest)
	if err != nil {
		logger.Error("failed to load area of interest", "error", err, "area", cfg.AreaOfInterest)
		os.Exit(1)
	}
	positions, err := geometry.LoadTLE(cfg.TLEFile)
	if err != nil {
		logger.Error("failed to load orbital elements", "error", err, "path", cfg.TLEFile)
		os.Exit(1)
	}
	logger.Info("geometry loaded", "area", area.ID, "platforms", positions.Platforms())

	converter := product.NewConverter(
		product.NewTransformer(hdf5.NewReader(logger), logger),
		product.NewEncoder(netcdf.Create),
		cfg.OutputDir,
		logger,
	)

	sub, pub, closers, err := openTransport(cfg, logger)
	if err != nil {
		logger.Error("failed to open transport", "error", err, "transport", cfg.Transport)
		os.Exit(1)
	}

	p := pipeline.New(pipeline.Stages{
		Subscriber: sub,
		Publisher:  pub,
		Converter:  converter,
		Filter:     geometry.NewFilter(positions, area),
		Hosts:      pipeline.NewHostChecker(cfg.ServerName),
	}, pipeline.Options{
		Workers:              cfg.WorkerCount,
		DedupWindow:          cfg.DedupWindow,
		ReceiveTimeout:       cfg.ReceiveTimeout,
		DefaultGranuleLength: cfg.DefaultGranuleLength,
		DrainTimeout:         cfg.ShutdownTimeout,
	}, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("converter starting",
		"transport", cfg.Transport,
		"workers", cfg.WorkerCount,
		"output_dir", cfg.OutputDir,
		"server_name", cfg.ServerName,
	)

	g, gctx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Start granule pipeline. It returns after draining in-flight granules.
	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("converter stopped with error", "error", err)
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("transport close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// openTransport connects the configured message bus.
func openTransport(cfg *config.Config, logger *slog.Logger) (pipeline.Subscriber, pipeline.Publisher, []io.Closer, error) {
	switch cfg.Transport {
	case config.TransportNATS:
		client, err := natsadapter.Connect(cfg, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		sub, err := client.Subscribe(cfg.NATSSourceSubject)
		if err != nil {
			client.Close() //nolint:errcheck // already failing
			return nil, nil, nil, err
		}
		return sub, client.Publisher(cfg.NATSSinkSubject), []io.Closer{sub, client}, nil
	default:
		reader := kafkaadapter.NewReader(cfg, logger)
		writer := kafkaadapter.NewWriter(cfg, logger)
		return reader, writer, []io.Closer{reader, writer}, nil
	}
}

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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/gokaycavdar/go-riskguard/pkg/api"
	"github.com/gokaycavdar/go-riskguard/pkg/assessment"
	"github.com/gokaycavdar/go-riskguard/pkg/collector"
	"github.com/gokaycavdar/go-riskguard/pkg/config"
	"github.com/gokaycavdar/go-riskguard/pkg/engine"
	"github.com/gokaycavdar/go-riskguard/pkg/geoip"
	"github.com/gokaycavdar/go-riskguard/pkg/logger"
	"github.com/gokaycavdar/go-riskguard/pkg/metrics"
	"github.com/gokaycavdar/go-riskguard/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	access, closeGeo, err := newAccessCollector(cfg, store, log)
	if err != nil {
		return err
	}
	defer closeGeo()

	eng := engine.New(
		engine.WithBands(cfg.Policy.Bands()),
		engine.WithSurcharge(cfg.Policy.Surcharge()),
		engine.WithLogger(log.Named("engine")),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := assessment.NewService(store, store, eng, m, log.Named("assessment"))
	router := api.NewRouter(api.NewHandler(svc, access, log), m)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.Int("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, func(), error) {
	if cfg.RedisURL == "" {
		log.Info("Using in-memory store")
		return storage.NewMemoryStore(), func() {}, nil
	}

	client, err := storage.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Using Redis store")
	return storage.NewRedisStore(client, storage.WithHistoryTTL(cfg.Travel.HistoryTTL)), func() { client.Close() }, nil
}

// newAccessCollector wires the optional GeoIP databases and prefix lists.
// Anything not configured is skipped and the matching signal stays absent.
func newAccessCollector(cfg *config.Config, history storage.HistoryStore, log *zap.Logger) (*collector.AccessCollector, func(), error) {
	travel := collector.NewTravelDetector(history)
	travel.MinDistanceKm = cfg.Travel.MinDistanceKm
	travel.Window = cfg.Travel.Window

	opts := []collector.Option{
		collector.WithTravelDetector(travel),
		collector.WithLogger(log.Named("collector")),
	}
	closeGeo := func() {}

	if cfg.GeoIP.CityDB != "" {
		geo, err := geoip.NewService(cfg.GeoIP.CityDB, cfg.GeoIP.ASNDB)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, collector.WithLocator(geo))
		closeGeo = geo.Close
	} else {
		log.Warn("No GeoIP database configured; location signals disabled")
	}

	if cfg.Lists.TorExits != "" {
		tor, err := collector.LoadPrefixList(cfg.Lists.TorExits)
		if err != nil {
			closeGeo()
			return nil, nil, fmt.Errorf("tor exit list: %w", err)
		}
		log.Info("Loaded Tor exit list", zap.Int("prefixes", tor.Len()))
		opts = append(opts, collector.WithTorExits(tor))
	}

	if cfg.Lists.Threats != "" {
		threats, err := collector.LoadPrefixList(cfg.Lists.Threats)
		if err != nil {
			closeGeo()
			return nil, nil, fmt.Errorf("threat list: %w", err)
		}
		log.Info("Loaded threat list", zap.Int("prefixes", threats.Len()))
		opts = append(opts, collector.WithThreats(threats))
	}

	return collector.NewAccessCollector(opts...), closeGeo, nil
}

package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mverdeau/geodispatch/api/deliveries"
	"github.com/mverdeau/geodispatch/api/reports"
	"github.com/mverdeau/geodispatch/api/vehicles"
	"github.com/mverdeau/geodispatch/config"
	"github.com/mverdeau/geodispatch/core/dispatch"
	coregeocode "github.com/mverdeau/geodispatch/core/geocode"
	"github.com/mverdeau/geodispatch/core/lifecycle"
	coremetrics "github.com/mverdeau/geodispatch/core/metrics"
	"github.com/mverdeau/geodispatch/core/pool"
	"github.com/mverdeau/geodispatch/core/report"
	"github.com/mverdeau/geodispatch/core/storage"
	"github.com/mverdeau/geodispatch/core/vehiclestatus"
	"github.com/mverdeau/geodispatch/infra/geocode"
	"github.com/mverdeau/geodispatch/infra/logger"
	"github.com/mverdeau/geodispatch/infra/metrics"
	"github.com/mverdeau/geodispatch/infra/mqtt"
	"github.com/mverdeau/geodispatch/infra/store"
	"github.com/mverdeau/geodispatch/internal/eventbus"
)

// Service orchestrates the matcher, the lifecycle tracker and the HTTP API.
type Service struct {
	Pool    *pool.MemoryPool
	Matcher *dispatch.Matcher
	Tracker *lifecycle.Tracker

	cfg     *config.Config
	bus     eventbus.EventBus
	log     logger.Logger
	mux     *http.ServeMux
	closers []io.Closer
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var (
		deliveryStore storage.DeliveryStore
		reportStore   storage.ReportStore
		closers       []io.Closer
	)
	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := store.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		deliveryStore = db
		reportStore = db.Reports()
		closers = append(closers, db)
	default:
		deliveryStore = storage.NewMemoryDeliveryStore()
		reportStore = storage.NewMemoryReportStore()
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink
	switch len(sinks) {
	case 0:
		sink = coremetrics.NopSink{}
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	fleet := pool.NewMemoryPool()
	for _, v := range cfg.Fleet.Models() {
		if err := fleet.Add(v); err != nil {
			return nil, fmt.Errorf("register vehicle %s: %w", v.ID, err)
		}
	}
	status := vehiclestatus.NewMemoryStore()

	gen, err := report.NewGenerator(reportStore, sink, cfg.Report, logg)
	if err != nil {
		return nil, fmt.Errorf("report generator: %w", err)
	}
	tracker, err := lifecycle.NewTracker(fleet, deliveryStore, gen, status, cfg.Lifecycle, logg, bus)
	if err != nil {
		return nil, fmt.Errorf("lifecycle tracker: %w", err)
	}
	matcher, err := dispatch.NewMatcher(fleet, deliveryStore, cfg.Dispatch, logg, bus)
	if err != nil {
		return nil, fmt.Errorf("dispatch matcher: %w", err)
	}

	var geocoder coregeocode.Geocoder
	if cfg.API.GeocodeEnabled {
		geocoder = geocode.NewNominatim(cfg.Geocode)
		if cfg.GeocodeCache.Enabled {
			cached := geocode.NewCachedGeocoder(geocoder, cfg.GeocodeCache)
			closers = append(closers, cached)
			geocoder = cached
		}
	}

	mux := http.NewServeMux()
	dh := deliveries.NewHandler(matcher, tracker, deliveryStore, geocoder)
	mux.Handle("/api/deliveries", dh)
	mux.Handle("/api/deliveries/", dh)
	mux.Handle("/api/vehicles/status", vehicles.NewStatusHandler(status))
	mux.Handle("/api/reports", reports.NewListHandler(reportStore))
	mux.Handle("/api/reports/stats", reports.NewStatsHandler(reportStore))

	return &Service{
		Pool:    fleet,
		Matcher: matcher,
		Tracker: tracker,
		cfg:     cfg,
		bus:     bus,
		log:     logg,
		mux:     mux,
		closers: closers,
	}, nil
}

// Handler exposes the HTTP API mux.
func (s *Service) Handler() http.Handler { return s.mux }

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Tracker.Resume(ctx); err != nil {
		return fmt.Errorf("resume deliveries: %w", err)
	}

	if s.cfg.MQTT.Enabled {
		sub, err := mqtt.NewSubscriber(s.cfg.MQTT, s.Tracker)
		if err != nil {
			return fmt.Errorf("mqtt subscriber: %w", err)
		}
		defer sub.Disconnect()
	} else {
		s.log.Warnf("MQTT disabled: no vehicle locations will be received")
	}

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Infof("API listening on %s", s.cfg.API.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.bus.Close()
	return firstErr
}

// Package app wires the configured components into a running service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hmctl/hmdispatch/api/services"
	"github.com/hmctl/hmdispatch/config"
	"github.com/hmctl/hmdispatch/core/audit"
	"github.com/hmctl/hmdispatch/core/control"
	"github.com/hmctl/hmdispatch/core/registry"
	"github.com/hmctl/hmdispatch/core/service"
	"github.com/hmctl/hmdispatch/infra/backend"
	"github.com/hmctl/hmdispatch/infra/logger"
	"github.com/hmctl/hmdispatch/infra/metrics"
	"github.com/hmctl/hmdispatch/infra/mqtt"
	"github.com/hmctl/hmdispatch/internal/eventbus"

	_ "github.com/hmctl/hmdispatch/infra/audit"
)

// Service orchestrates the dispatcher, the MQTT listener and the HTTP API.
type Service struct {
	Dispatcher *service.Dispatcher
	listener   *mqtt.Listener
	publisher  *mqtt.Publisher
	store      audit.Store
	bus        eventbus.EventBus
	log        logger.Logger
	promAddr   string
	httpAddr   string
	apiToken   string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	devices := registry.New()
	for _, d := range cfg.Devices {
		devices.Add(d.DeviceID, registry.Entry{DeviceAddress: d.Address, InterfaceID: d.InterfaceID})
	}

	pubCfg := cfg.MQTT
	pubCfg.ClientID = cfg.MQTT.ClientID + "-cmd"
	publisher, err := mqtt.NewPublisher(pubCfg)
	if err != nil {
		return nil, fmt.Errorf("mqtt publisher: %w", err)
	}

	units := control.NewSet()
	for _, uc := range cfg.Units {
		unit, err := backend.NewUnit(uc, publisher)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", uc.Name, err)
		}
		units.Add(uc.Name, unit)
	}

	dispatcher, err := service.NewDispatcher(devices, units, logger.New("dispatcher"))
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	sink, err := metrics.FromConfig(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	dispatcher.SetMetricsSink(sink)

	store, err := audit.NewStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	if store != nil {
		dispatcher.SetAuditStore(store)
	}

	bus := eventbus.New()
	dispatcher.SetEventBus(bus)
	if cfg.Dispatch.AwayModePauseSeconds > 0 {
		dispatcher.SetAwayModePause(time.Duration(cfg.Dispatch.AwayModePauseSeconds) * time.Second)
	}
	dispatcher.Setup()

	listener, err := mqtt.NewListener(cfg.MQTT, dispatcher)
	if err != nil {
		return nil, fmt.Errorf("mqtt listener: %w", err)
	}

	return &Service{
		Dispatcher: dispatcher,
		listener:   listener,
		publisher:  publisher,
		store:      store,
		bus:        bus,
		log:        logg,
		promAddr:   cfg.Metrics.PrometheusAddr,
		httpAddr:   cfg.HTTP.Addr,
		apiToken:   cfg.HTTP.APIToken,
	}, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.httpAddr != "" {
		srv := &http.Server{
			Addr:              s.httpAddr,
			Handler:           services.NewHandler(s.Dispatcher, s.store, s.apiToken),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			s.log.Infof("HTTP API listening on %s", s.httpAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Errorf("http server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Dispatcher.Teardown()
	s.listener.Disconnect()
	s.publisher.Disconnect()
	s.bus.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

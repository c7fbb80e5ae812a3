package client

import (
	"context"
	"fmt"

	"github.com/devninja1/kiosk-app/internal/adapter"
	"github.com/devninja1/kiosk-app/internal/config"
	"github.com/devninja1/kiosk-app/internal/connectivity"
	localapi "github.com/devninja1/kiosk-app/internal/handler/http"
	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/notify"
	"github.com/devninja1/kiosk-app/internal/server"
	"github.com/devninja1/kiosk-app/internal/service"
	"github.com/devninja1/kiosk-app/internal/store"
	"github.com/devninja1/kiosk-app/internal/workers"
	"github.com/devninja1/kiosk-app/models"
)

type App struct {
	storages *store.ClientStorages
	monitor  *connectivity.Monitor
	services *service.ClientServices
	server   *server.Server
	workers  *workers.Workers

	logger *logger.Logger
}

// NewApp opens the local store and wires the remote API, the connectivity
// monitor, the services and, unless disabled, the local API. Nothing runs in
// the background until Run. A nil notifier logs notices.
func NewApp(
	ctx context.Context,
	cfg *config.ClientConfig,
	buildInfo models.AppBuildInfo,
	notifier notify.Notifier,
	log *logger.Logger,
) (*App, error) {
	remoteAPI, err := adapter.NewHTTPRemoteAPI(cfg.Adapter, cfg.App, log)
	if err != nil {
		return nil, fmt.Errorf("create remote api: %w", err)
	}

	storages, err := store.NewClientStorages(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}

	monitor := connectivity.NewMonitor(
		remoteAPI,
		connectivity.NewNetInterfaceWatcher(connectivity.DefaultWatchInterval),
		cfg.Workers.ProbeInterval,
		log,
	)

	services, err := service.NewClientServices(ctx, storages, remoteAPI, monitor, notifier, cfg.Sync, log)
	if err != nil {
		_ = storages.Close()
		return nil, fmt.Errorf("create client services: %w", err)
	}

	syncInterval := cfg.Workers.SyncInterval
	background := []workers.Worker{
		monitor,
		workers.FromFuncs(services.SyncEngine.Start, services.SyncEngine.Close),
		workers.FromFuncs(
			func(ctx context.Context) { services.SyncJob.Start(ctx, syncInterval) },
			services.SyncJob.Stop,
		),
	}

	app := &App{
		storages: storages,
		monitor:  monitor,
		services: services,
		logger:   log,
	}

	if cfg.Server.HTTPAddress != "" {
		handler := localapi.NewHandler(services, buildInfo, log).Init()
		app.server = server.NewServer(handler, cfg.Server, log)
		if err = app.server.Listen(); err != nil {
			services.Close()
			_ = storages.Close()
			return nil, err
		}
		// started last so the views it serves are already published
		background = append(background, app.server)
	}

	app.workers = workers.New(background...)
	return app, nil
}

// LocalAPIAddr is the bound address of the local API, empty when disabled.
func (a *App) LocalAPIAddr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// Services exposes the sync engine and the record services to the UI layer.
func (a *App) Services() *service.ClientServices {
	return a.services
}

// Run starts the background workers and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.workers.Start(ctx)
	a.logger.Info().Msg("kiosk sync core started")

	// an immediate probe so a reachable API is picked up without waiting
	// for the first poll
	a.monitor.CheckNow(ctx)

	<-ctx.Done()
	a.logger.Info().Msg("shutting down")
	return a.Close()
}

// Close stops the workers and the services, then closes the local store.
func (a *App) Close() error {
	a.workers.Stop()
	if a.server != nil {
		// releases a listener that was bound but never served
		a.server.Stop()
	}
	a.services.Close()
	return a.storages.Close()
}

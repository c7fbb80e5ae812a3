package service

import (
	"context"
	"fmt"

	"github.com/devninja1/kiosk-app/internal/adapter"
	"github.com/devninja1/kiosk-app/internal/config"
	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/notify"
	"github.com/devninja1/kiosk-app/internal/store"
)

type ClientServices struct {
	SyncEngine SyncEngine
	SyncJob    ClientSyncJob
	Customers  CustomerService
	Products   ProductService
	Sales      SaleService
}

// NewClientServices wires the sync engine and the record services over the
// given storages. The record caches are loaded before it returns; the engine
// and the periodic job are started by the caller.
func NewClientServices(
	ctx context.Context,
	storages *store.ClientStorages,
	remoteAPI adapter.RemoteAPI,
	monitor ConnectivityMonitor,
	notifier notify.Notifier,
	cfg config.ClientSync,
	logger *logger.Logger,
) (*ClientServices, error) {
	engine := NewSyncEngine(storages, remoteAPI, monitor, notifier, cfg.FailedQueueLimit, logger)

	deps := RecordServiceDeps{
		Engine:  engine,
		Records: storages.Records,
		API:     remoteAPI,
		Monitor: monitor,
		Logger:  logger,
	}

	services := &ClientServices{
		SyncEngine: engine,
		SyncJob:    NewClientSyncJob(engine),
	}

	var err error
	if services.Customers, err = NewCustomerService(ctx, deps); err != nil {
		return nil, fmt.Errorf("failed to create customer service: %w", err)
	}
	if services.Products, err = NewProductService(ctx, deps); err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to create product service: %w", err)
	}
	if services.Sales, err = NewSaleService(ctx, deps, cfg.PageSize); err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to create sale service: %w", err)
	}

	return services, nil
}

// Close stops the periodic job, the engine and the record services.
func (s *ClientServices) Close() {
	s.SyncJob.Stop()
	s.SyncEngine.Close()

	if s.Customers != nil {
		s.Customers.Close()
	}
	if s.Products != nil {
		s.Products.Close()
	}
	if s.Sales != nil {
		s.Sales.Close()
	}
}

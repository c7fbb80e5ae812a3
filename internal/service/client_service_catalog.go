package service

import (
	"context"

	"github.com/devninja1/kiosk-app/models"
)

const (
	customersResource = "/api/customers"
	productsResource  = "/api/products"
)

// NewCustomerService loads the customers collection and keeps it in sync
// with the API. The whole collection is replaced on every refresh.
func NewCustomerService(ctx context.Context, deps RecordServiceDeps) (CustomerService, error) {
	s := newRecordService[models.Customer](deps, models.CollectionCustomers, customersResource)
	s.pull = s.replaceFromAPI

	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewProductService loads the products collection and keeps it in sync with
// the API. The whole collection is replaced on every refresh.
func NewProductService(ctx context.Context, deps RecordServiceDeps) (ProductService, error) {
	s := newRecordService[models.Product](deps, models.CollectionProducts, productsResource)
	s.pull = s.replaceFromAPI

	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

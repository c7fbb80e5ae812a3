package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/devninja1/kiosk-app/internal/adapter"
	"github.com/devninja1/kiosk-app/models"
)

const (
	salesResource   = "/api/sales"
	defaultPageSize = 20
	maxPageSize     = 1000
)

type saleService struct {
	*recordService[models.Sale]

	pageSize int
	now      func() time.Time
}

// NewSaleService loads the sales collection. Sales are read page by page:
// a refresh upserts the first page instead of replacing the collection.
func NewSaleService(ctx context.Context, deps RecordServiceDeps, pageSize int) (SaleService, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	s := &saleService{
		recordService: newRecordService[models.Sale](deps, models.CollectionSales, salesResource),
		pageSize:      pageSize,
		now:           time.Now,
	}
	s.pull = s.refreshFirstPage

	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Create fills in the sale date and total when they are missing.
func (s *saleService) Create(ctx context.Context, sale models.Sale) (models.Sale, error) {
	if len(sale.Items) == 0 {
		return models.Sale{}, fmt.Errorf("%w: sale without items", ErrInvalidRecord)
	}
	if sale.SaleDate.IsZero() {
		sale.SaleDate = s.now().UTC()
	}
	if sale.Total == 0 {
		sale.Total = sale.ComputeTotal()
	}
	return s.recordService.Create(ctx, sale)
}

func (s *saleService) FetchPage(ctx context.Context, req models.PageRequest) (models.Page[models.Sale], error) {
	req = s.normalizePage(req)

	if s.monitor.IsOnlineNow() {
		page, err := s.fetchRemotePage(ctx, req)
		switch {
		case err == nil:
			return page, nil
		case !errors.Is(err, adapter.ErrUnreachable):
			return models.Page[models.Sale]{}, err
		}
		s.logger.Info().Err(err).Msg("api unreachable, paging local sales")
	}

	return paginateSales(s.All(), req), nil
}

func (s *saleService) normalizePage(req models.PageRequest) models.PageRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = s.pageSize
	}
	req.PageSize = min(req.PageSize, maxPageSize)
	req.Search = strings.TrimSpace(req.Search)
	return req
}

func (s *saleService) refreshFirstPage(ctx context.Context) error {
	_, err := s.fetchRemotePage(ctx, models.PageRequest{Page: 1, PageSize: s.pageSize})
	return err
}

// fetchRemotePage reads one page from the API and upserts its sales.
func (s *saleService) fetchRemotePage(ctx context.Context, req models.PageRequest) (models.Page[models.Sale], error) {
	query := map[string]string{
		"page":      strconv.Itoa(req.Page),
		"page_size": strconv.Itoa(req.PageSize),
	}
	if req.Search != "" {
		query["search"] = req.Search
	}

	resp, err := s.api.Do(ctx, models.APIRequest{Method: http.MethodGet, URL: s.resource, Query: query})
	if err != nil {
		return models.Page[models.Sale]{}, fmt.Errorf("failed to fetch sales page %d: %w", req.Page, err)
	}

	var body struct {
		Items    []json.RawMessage `json:"items"`
		Total    int               `json:"total"`
		Page     int               `json:"page"`
		PageSize int               `json:"page_size"`
	}
	if err = json.Unmarshal(resp.Body, &body); err != nil {
		return models.Page[models.Sale]{}, fmt.Errorf("failed to decode sales page: %w", err)
	}

	page := models.Page[models.Sale]{
		Items:    make([]models.Sale, 0, len(body.Items)),
		Total:    body.Total,
		Page:     body.Page,
		PageSize: body.PageSize,
	}
	if page.Page == 0 {
		page.Page = req.Page
	}
	if page.PageSize == 0 {
		page.PageSize = req.PageSize
	}

	for _, doc := range body.Items {
		rec, convErr := s.toStored(doc)
		if convErr != nil {
			s.logger.Warn().Err(convErr).Msg("skipping server sale")
			continue
		}
		if err = s.records.Put(ctx, s.collection, rec); err != nil {
			return models.Page[models.Sale]{}, err
		}

		var sale models.Sale
		if err = json.Unmarshal(rec.Data, &sale); err != nil {
			return models.Page[models.Sale]{}, err
		}
		page.Items = append(page.Items, sale)
	}

	if err = s.Reload(ctx); err != nil {
		return models.Page[models.Sale]{}, err
	}
	return page, nil
}

// paginateSales filters, orders and slices the local sales the way the API
// pages them.
func paginateSales(all []models.Sale, req models.PageRequest) models.Page[models.Sale] {
	needle := strings.ToLower(req.Search)

	matched := make([]models.Sale, 0, len(all))
	for _, sale := range all {
		if needle == "" || saleMatches(sale, needle) {
			matched = append(matched, sale)
		}
	}

	slices.SortStableFunc(matched, func(a, b models.Sale) int {
		if c := b.SaleDate.Compare(a.SaleDate); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	page := models.Page[models.Sale]{
		Items:    []models.Sale{},
		Total:    len(matched),
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	// compared by division so huge pages cannot overflow
	if req.Page < 1 || req.PageSize < 1 || len(matched) == 0 || req.Page-1 > (len(matched)-1)/req.PageSize {
		return page
	}
	start := (req.Page - 1) * req.PageSize
	end := start + min(req.PageSize, len(matched)-start)
	page.Items = append(page.Items, matched[start:end]...)
	return page
}

func saleMatches(sale models.Sale, needle string) bool {
	if strings.Contains(strconv.FormatInt(sale.ID, 10), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(sale.Status), needle) {
		return true
	}
	if sale.CustomerID != nil && strings.Contains(strconv.FormatInt(*sale.CustomerID, 10), needle) {
		return true
	}
	for _, item := range sale.Items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			return true
		}
	}
	return false
}

package http

import (
	"net/http"

	"github.com/devninja1/kiosk-app/models"
)

// listSales serves one page of sales: ?page=&page_size=&search=.
func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err, "invalid page")
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, r, err, "invalid page size")
		return
	}

	result, err := h.services.Sales.FetchPage(r.Context(), models.PageRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   r.URL.Query().Get("search"),
	})
	if err != nil {
		writeError(w, r, err, "error fetching sales")
		return
	}
	if result.Items == nil {
		result.Items = []models.Sale{}
	}
	writeJSON(w, result, http.StatusOK)
}

package http

import (
	"context"
	"net/http"

	"github.com/devninja1/kiosk-app/models"
)

type syncStatusResponse struct {
	Online  bool `json:"online"`
	Pending int  `json:"pending"`
	Failed  int  `json:"failed"`
}

func (h *Handler) status() syncStatusResponse {
	engine := h.services.SyncEngine
	return syncStatusResponse{
		Online:  latest(engine.IsOnline),
		Pending: latest(engine.PendingRequestCount),
		Failed:  len(latest(engine.FailedRequests)),
	}
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.status(), http.StatusOK)
}

// runQueue processes the queue before answering. The run is not tied to the
// request: a client that disconnects does not cut it short.
func (h *Handler) runQueue(w http.ResponseWriter, r *http.Request) {
	h.services.SyncEngine.ProcessQueue(context.WithoutCancel(r.Context()))
	writeJSON(w, h.status(), http.StatusOK)
}

func (h *Handler) pendingRequests(w http.ResponseWriter, r *http.Request) {
	items := latest(h.services.SyncEngine.PendingRequests)
	if items == nil {
		items = []models.QueuedRequest{}
	}
	writeJSON(w, items, http.StatusOK)
}

func (h *Handler) failedRequests(w http.ResponseWriter, r *http.Request) {
	items := latest(h.services.SyncEngine.FailedRequests)
	if items == nil {
		items = []models.FailedRequest{}
	}
	writeJSON(w, items, http.StatusOK)
}

func (h *Handler) retryAllFailed(w http.ResponseWriter, r *http.Request) {
	if err := h.services.SyncEngine.RetryAllFailedRequests(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, r, err, "error retrying failed requests")
		return
	}
	writeJSON(w, h.status(), http.StatusOK)
}

func (h *Handler) retryFailed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, "invalid failed request id")
		return
	}

	var (
		item  models.FailedRequest
		found bool
	)
	for _, failed := range latest(h.services.SyncEngine.FailedRequests) {
		if failed.ID == id {
			item, found = failed, true
			break
		}
	}
	if !found {
		writeError(w, r, errFailedRequestNotFound, "unknown failed request")
		return
	}

	if err = h.services.SyncEngine.RetryFailedRequest(context.WithoutCancel(r.Context()), item); err != nil {
		writeError(w, r, err, "error retrying failed request")
		return
	}
	writeJSON(w, h.status(), http.StatusOK)
}

func (h *Handler) deleteFailed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, "invalid failed request id")
		return
	}

	if err = h.services.SyncEngine.DeleteFailedRequest(r.Context(), id); err != nil {
		writeError(w, r, err, "error deleting failed request")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

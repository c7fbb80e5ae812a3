package http

import (
	"net/http"

	"github.com/devninja1/kiosk-app/internal/service"
	"github.com/devninja1/kiosk-app/models"
	"github.com/go-chi/chi/v5"
)

// recordHandlers serves one record collection.
type recordHandlers[T models.Record[T]] struct {
	service service.RecordService[T]
}

func (rh recordHandlers[T]) mount(r chi.Router) {
	r.Post("/", rh.create)
	r.Get("/{id}", rh.get)
	r.Put("/{id}", rh.update)
	r.Delete("/{id}", rh.delete)
}

func (rh recordHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	items := rh.service.All()
	if items == nil {
		items = []T{}
	}
	writeJSON(w, items, http.StatusOK)
}

func (rh recordHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, "invalid record id")
		return
	}

	record, err := rh.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "error reading record")
		return
	}
	writeJSON(w, record, http.StatusOK)
}

func (rh recordHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	var record T
	if err := decodeJSON(w, r, &record); err != nil {
		writeError(w, r, err, "invalid record")
		return
	}

	created, err := rh.service.Create(r.Context(), record.WithID(0))
	if err != nil {
		writeError(w, r, err, "error creating record")
		return
	}

	status := http.StatusCreated
	if models.IsTempID(created.RecordID()) {
		// stored locally, creation is queued
		status = http.StatusAccepted
	}
	writeJSON(w, created, status)
}

func (rh recordHandlers[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, "invalid record id")
		return
	}

	var record T
	if err = decodeJSON(w, r, &record); err != nil {
		writeError(w, r, err, "invalid record")
		return
	}

	updated, err := rh.service.Update(r.Context(), record.WithID(id))
	if err != nil {
		writeError(w, r, err, "error updating record")
		return
	}
	writeJSON(w, updated, http.StatusOK)
}

func (rh recordHandlers[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, "invalid record id")
		return
	}

	if err = rh.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, "error deleting record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package http

import "net/http"

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version": h.buildInfo.BuildVersion(),
		"date":    h.buildInfo.BuildDate(),
		"commit":  h.buildInfo.BuildCommit(),
	}, http.StatusOK)
}

package discovery

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// NewHandler serves d over HTTP:
//
//	GET    /{name}           one entry, 404 if unknown
//	GET    /services         all entries
//	POST   /services         add or replace one entry
//	DELETE /services/{name}  remove an entry
func NewHandler(d *Directory, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{dir: d, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /services", h.list)
	mux.HandleFunc("POST /services", h.put)
	mux.HandleFunc("DELETE /services/{name}", h.remove)
	mux.HandleFunc("GET /{name}", h.lookup)
	return mux
}

type handler struct {
	dir *Directory
	log *zap.Logger
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	e, err := h.dir.Lookup(r.PathValue("name"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.dir.List())
}

func (h *handler) put(w http.ResponseWriter, r *http.Request) {
	var e Entry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&e); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.dir.Put(e); err != nil {
		h.fail(w, err)
		return
	}
	h.log.Info("directory entry stored", zap.String("service", e.Name), zap.Strings("ips", e.IPs))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.dir.Remove(name); err != nil {
		h.fail(w, err)
		return
	}
	h.log.Info("directory entry removed", zap.String("service", name))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownService):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidEntry):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error("directory request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package handler exposes a Store over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/stevemurr/persistent-data-store/store"
)

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store *store.Store
	log   *zap.Logger
	mux   *http.ServeMux
}

// New creates a Handler and wires up all routes.
func New(s *store.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{store: s, log: log, mux: http.NewServeMux()}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /health", h.health)

	// GET also answers HEAD, which doubles as the exists check.
	h.mux.HandleFunc("GET /records/{type}", h.getRecord)
	h.mux.HandleFunc("GET /records/{type}/{uid}", h.getRecord)
	h.mux.HandleFunc("PUT /records/{type}", h.putRecord)
	h.mux.HandleFunc("PUT /records/{type}/{uid}", h.putRecord)
	h.mux.HandleFunc("DELETE /records/{type}", h.deleteRecord)
	h.mux.HandleFunc("DELETE /records/{type}/{uid}", h.deleteRecord)

	h.mux.HandleFunc("GET /types/{type}/uids", h.listUIDs)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// maxBodyBytes caps a single record upload.
const maxBodyBytes = 8 << 20

var errTrailingData = errors.New("unexpected data after JSON document")

// readJSON decodes exactly one JSON document from the body.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrInvalidArgument) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error("store operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ---------- endpoints ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	var doc json.RawMessage
	if !h.store.Load(r.PathValue("type"), r.PathValue("uid"), &doc) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) putRecord(w http.ResponseWriter, r *http.Request) {
	// RawMessage keeps numbers exactly as sent.
	var doc json.RawMessage
	if err := readJSON(w, r, &doc); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	typeName, uid := r.PathValue("type"), r.PathValue("uid")
	if err := h.store.Save(typeName, uid, doc); err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"type": typeName, "uid": uid})
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.Delete(r.PathValue("type"), r.PathValue("uid"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) listUIDs(w http.ResponseWriter, r *http.Request) {
	uids, err := h.store.List(r.PathValue("type"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uids)
}

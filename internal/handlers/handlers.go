package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"procurement/internal/apperr"
	"procurement/internal/blob"
	"procurement/internal/config"
	"procurement/internal/notify"
)

// Handler wires the HTTP surface to storage, the blob store and the
// event publisher.
type Handler struct {
	Store  StorageInterface
	Blob   blob.Store
	Files  FileStore
	Notify notify.Publisher

	TechScoreThreshold int
	BidURLTTL          time.Duration
	EvalURLTTL         time.Duration

	// Now is swappable so deadline gates can be tested around the boundary.
	Now func() time.Time
}

func NewHandler(store StorageInterface, bs blob.Store, files FileStore, pub notify.Publisher, cfg *config.Config) *Handler {
	h := &Handler{
		Store:              store,
		Blob:               bs,
		Files:              files,
		Notify:             pub,
		TechScoreThreshold: config.DefaultTechScoreThreshold,
		BidURLTTL:          config.DefaultBidURLTTL,
		EvalURLTTL:         config.DefaultEvalURLTTL,
		Now:                time.Now,
	}
	if cfg != nil {
		h.TechScoreThreshold = cfg.TechScoreThreshold
		h.BidURLTTL = cfg.BidURLTTL
		h.EvalURLTTL = cfg.EvalURLTTL
	}
	return h
}

// envelope is the uniform response shape: {success, message?, data?}.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

func (h *Handler) respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func (h *Handler) respondMessage(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= 500 {
		log.Printf("handler error: %v", err)
	}
	writeJSON(w, status, envelope{Success: false, Message: apperr.UserMessage(err)})
}

// PingHandler answers "ok" for liveness checks.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams parses limit and offset from the query, with
// defaults and caps.
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 20, Offset: 0}

	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 50 {
			params.Limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}

// uuidParam parses a chi URL parameter as a UUID. Parsing is strict: no
// trimming or case folding beyond what the canonical format allows.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid " + name)
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid JSON format")
	}
	return nil
}

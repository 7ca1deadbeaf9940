package handlers

import (
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"procurement/internal/apperr"
	"procurement/internal/blob"
)

// ServeFileHandler handles GET /files/{bucket}/* with exp and sig query
// params produced by the blob store's SignedURL. Within the TTL the served
// bytes are identical to what was uploaded.
func (h *Handler) ServeFileHandler(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	path := chi.URLParam(r, "*")
	if bucket == "" || path == "" {
		h.respondError(w, apperr.Validation("Missing bucket or path"))
		return
	}
	// The wildcard keeps percent escapes; the signature covers the raw path.
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	// Tender notice documents are public; everything else needs a valid
	// signature.
	if bucket != blob.BucketTenderDocs {
		exp := r.URL.Query().Get("exp")
		sig := r.URL.Query().Get("sig")
		if !h.Files.Verify(bucket, path, exp, sig) {
			h.respondError(w, apperr.Forbidden("Invalid or expired signature"))
			return
		}
	}

	rc, err := h.Files.Get(r.Context(), bucket, path)
	if err != nil {
		h.respondError(w, apperr.NotFound("Object not found"))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, rc)
}

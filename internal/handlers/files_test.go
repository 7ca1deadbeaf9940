package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"procurement/internal/blob"
	"procurement/internal/handlers"
	"procurement/internal/handlers/testutils"
	"procurement/internal/notify"
)

func TestServeFileHandlerRoundTrip(t *testing.T) {
	fs := blob.NewFSStore(t.TempDir(), "http://localhost:8080", []byte("test-key"))
	h := handlers.NewHandler(&MockStorage{}, fs, fs, notify.Noop{}, nil)

	content := []byte("%PDF-1.4 technical proposal")
	_, err := fs.Put(context.Background(), blob.BucketTechnicalBids, "t1/s1/technical.pdf", bytes.NewReader(content))
	require.NoError(t, err)

	signed, err := fs.SignedURL(blob.BucketTechnicalBids, "t1/s1/technical.pdf", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, u.String(), nil)
	req = testutils.WithChiURLParams(req, map[string]string{
		"bucket": blob.BucketTechnicalBids,
		"*":      "t1/s1/technical.pdf",
	})
	w := httptest.NewRecorder()

	h.ServeFileHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, content, w.Body.Bytes())
}

func TestServeFileHandlerExpiredSignature(t *testing.T) {
	fs := blob.NewFSStore(t.TempDir(), "http://localhost:8080", []byte("test-key"))
	h := handlers.NewHandler(&MockStorage{}, fs, fs, notify.Noop{}, nil)

	_, err := fs.Put(context.Background(), blob.BucketFinancialBids, "t1/s1/financial.pdf", bytes.NewReader([]byte("sealed")))
	require.NoError(t, err)

	// A negative TTL yields a URL that is already expired.
	signed, err := fs.SignedURL(blob.BucketFinancialBids, "t1/s1/financial.pdf", -time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, u.String(), nil)
	req = testutils.WithChiURLParams(req, map[string]string{
		"bucket": blob.BucketFinancialBids,
		"*":      "t1/s1/financial.pdf",
	})
	w := httptest.NewRecorder()

	h.ServeFileHandler(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServeFileHandlerBadSignature(t *testing.T) {
	fs := blob.NewFSStore(t.TempDir(), "http://localhost:8080", []byte("test-key"))
	h := handlers.NewHandler(&MockStorage{}, fs, fs, notify.Noop{}, nil)

	_, err := fs.Put(context.Background(), blob.BucketSupplierDocs, "t1/s1/emd.pdf", bytes.NewReader([]byte("receipt")))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/files/supplier-docs/t1/s1/emd.pdf?exp=9999999999&sig=forged", nil)
	req = testutils.WithChiURLParams(req, map[string]string{
		"bucket": blob.BucketSupplierDocs,
		"*":      "t1/s1/emd.pdf",
	})
	w := httptest.NewRecorder()

	h.ServeFileHandler(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestServeFileHandlerEscapedPath(t *testing.T) {
	// chi's wildcard keeps percent escapes; both the signature check and the
	// lookup must run against the unescaped object path.
	fs := blob.NewFSStore(t.TempDir(), "http://localhost:8080", []byte("test-key"))
	h := handlers.NewHandler(&MockStorage{}, fs, fs, notify.Noop{}, nil)

	_, err := fs.Put(context.Background(), blob.BucketTenderDocs, "t1/notice v2.pdf", bytes.NewReader([]byte("notice")))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/files/tender-docs/t1/notice%20v2.pdf", nil)
	req = testutils.WithChiURLParams(req, map[string]string{
		"bucket": blob.BucketTenderDocs,
		"*":      "t1/notice%20v2.pdf",
	})
	w := httptest.NewRecorder()

	h.ServeFileHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "notice", w.Body.String())
}

func TestServeFileHandlerPublicTenderDocs(t *testing.T) {
	fs := blob.NewFSStore(t.TempDir(), "http://localhost:8080", []byte("test-key"))
	h := handlers.NewHandler(&MockStorage{}, fs, fs, notify.Noop{}, nil)

	_, err := fs.Put(context.Background(), blob.BucketTenderDocs, "t1/notice.pdf", bytes.NewReader([]byte("tender notice")))
	require.NoError(t, err)

	// No signature needed for published tender documents.
	req := httptest.NewRequest(http.MethodGet, "/files/tender-docs/t1/notice.pdf", nil)
	req = testutils.WithChiURLParams(req, map[string]string{
		"bucket": blob.BucketTenderDocs,
		"*":      "t1/notice.pdf",
	})
	w := httptest.NewRecorder()

	h.ServeFileHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "tender notice", w.Body.String())
}

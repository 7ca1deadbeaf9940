package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"procurement/db"
	"procurement/internal/handlers"
	"procurement/internal/handlers/testutils"
	"procurement/models"
)

func awardRequest(tenderID, bidID uuid.UUID) *http.Request {
	body := fmt.Sprintf(`{"tender_id":%q,"winning_bid_id":%q}`, tenderID, bidID)
	req := httptest.NewRequest(http.MethodPost, "/api/awards/award-winner", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return handlers.WithUser(req, adminUser())
}

func TestAwardWinnerHandler(t *testing.T) {
	tenderID := uuid.New()
	bidID := uuid.New()
	store := &MockStorage{
		GetBidFunc: func(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
			return &models.Bid{ID: id, TenderID: tenderID, SupplierID: uuid.New(), Status: models.BidTechQualified}, nil
		},
	}
	h := newTestHandler(store, newMockBlob())

	w := httptest.NewRecorder()
	h.AwardWinnerHandler(w, awardRequest(tenderID, bidID))

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "Tender awarded")
}

func TestAwardWinnerHandlerAlreadyAwarded(t *testing.T) {
	store := &MockStorage{
		GetAwardForTenderFunc: func(ctx context.Context, tenderID uuid.UUID) (*models.TenderAward, error) {
			return &models.TenderAward{ID: uuid.New(), TenderID: tenderID}, nil
		},
	}
	h := newTestHandler(store, newMockBlob())

	w := httptest.NewRecorder()
	h.AwardWinnerHandler(w, awardRequest(uuid.New(), uuid.New()))

	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "already awarded")
}

func TestAwardWinnerHandlerAwardRace(t *testing.T) {
	// The pre-check sees no award, but a concurrent request won the insert.
	tenderID := uuid.New()
	store := &MockStorage{
		GetBidFunc: func(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
			return &models.Bid{ID: id, TenderID: tenderID, Status: models.BidTechQualified}, nil
		},
		AwardTenderFunc: func(ctx context.Context, a *models.TenderAward) error {
			return db.ErrAlreadyAwarded
		},
	}
	h := newTestHandler(store, newMockBlob())

	w := httptest.NewRecorder()
	h.AwardWinnerHandler(w, awardRequest(tenderID, uuid.New()))

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAwardWinnerHandlerBidFromOtherTender(t *testing.T) {
	store := &MockStorage{
		GetBidFunc: func(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
			return &models.Bid{ID: id, TenderID: uuid.New(), Status: models.BidTechQualified}, nil
		},
	}
	h := newTestHandler(store, newMockBlob())

	w := httptest.NewRecorder()
	h.AwardWinnerHandler(w, awardRequest(uuid.New(), uuid.New()))

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "not found for this tender")
}

func TestFinalizeAwardHandler(t *testing.T) {
	h := newTestHandler(&MockStorage{}, newMockBlob())

	body, contentType := multipartBody(t, nil, map[string]string{
		"loi_file":      "letter of intent",
		"contract_file": "signed contract",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/awards/finalize/x", body)
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"awardId": uuid.New().String()})
	req = handlers.WithUser(req, adminUser())
	w := httptest.NewRecorder()

	h.FinalizeAwardHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "finalized")
}

func TestFinalizeAwardHandlerMissingFile(t *testing.T) {
	h := newTestHandler(&MockStorage{}, newMockBlob())

	body, contentType := multipartBody(t, nil, map[string]string{
		"loi_file": "letter of intent",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/awards/finalize/x", body)
	req.Header.Set("Content-Type", contentType)
	req = testutils.WithChiURLParams(req, map[string]string{"awardId": uuid.New().String()})
	req = handlers.WithUser(req, adminUser())
	w := httptest.NewRecorder()

	h.FinalizeAwardHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "contract_file")
}

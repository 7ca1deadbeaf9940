package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/blob"
	"procurement/internal/notify"
	"procurement/models"
)

// AwardWinnerHandler handles POST /api/awards/award-winner (admin).
//
// The pre-check on an existing award is a fast path; the UNIQUE constraint on
// tender_award.tender_id inside the award transaction is the guard that
// actually closes the double-award race.
func (h *Handler) AwardWinnerHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TenderID     uuid.UUID `json:"tender_id"`
		WinningBidID uuid.UUID `json:"winning_bid_id"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		h.respondError(w, err)
		return
	}
	if input.TenderID == uuid.Nil || input.WinningBidID == uuid.Nil {
		h.respondError(w, apperr.Validation("tender_id and winning_bid_id are required"))
		return
	}

	if _, err := h.Store.GetTender(r.Context(), input.TenderID); err != nil {
		h.respondError(w, apperr.FromDB(err, "Tender not found"))
		return
	}

	existing, err := h.Store.GetAwardForTender(r.Context(), input.TenderID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	if existing != nil {
		h.respondError(w, apperr.Conflict("Tender already awarded"))
		return
	}

	bid, err := h.Store.GetBid(r.Context(), input.WinningBidID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Winning bid not found"))
		return
	}
	if bid.TenderID != input.TenderID {
		h.respondError(w, apperr.NotFound("Winning bid not found for this tender"))
		return
	}

	award := models.TenderAward{
		TenderID:   input.TenderID,
		BidID:      bid.ID,
		SupplierID: bid.SupplierID,
	}
	if err := h.Store.AwardTender(r.Context(), &award); err != nil {
		switch {
		case errors.Is(err, db.ErrAlreadyAwarded):
			h.respondError(w, apperr.Conflict("Tender already awarded"))
		case errors.Is(err, db.ErrBidNotInTender):
			h.respondError(w, apperr.NotFound("Winning bid not found for this tender"))
		default:
			h.respondError(w, apperr.Dependency(err))
		}
		return
	}

	// Notification is decoupled from award success.
	h.Notify.Publish(notify.SubjectAwardGranted, notify.Event{
		TenderID:   award.TenderID,
		BidID:      award.BidID,
		SupplierID: award.SupplierID,
		Status:     string(models.BidWon),
	})

	h.respondMessage(w, http.StatusCreated, "Tender awarded", award)
}

// FinalizeAwardHandler handles PUT /api/awards/finalize/{awardId} (admin,
// multipart). Both the LOI and the contract must be attached.
func (h *Handler) FinalizeAwardHandler(w http.ResponseWriter, r *http.Request) {
	awardID, err := uuidParam(r, "awardId")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondError(w, apperr.Validation("Invalid multipart form"))
		return
	}

	loiFH, err := formFile(r, "loi_file")
	if err != nil {
		h.respondError(w, err)
		return
	}
	contractFH, err := formFile(r, "contract_file")
	if err != nil {
		h.respondError(w, err)
		return
	}

	award, err := h.Store.GetAward(r.Context(), awardID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Award not found"))
		return
	}

	loiPath := fmt.Sprintf("%s/loi%s", awardID, fileExt(loiFH.Filename))
	contractPath := fmt.Sprintf("%s/contract%s", awardID, fileExt(contractFH.Filename))

	if err := h.uploadFile(r, loiFH, blob.BucketContracts, loiPath); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	if err := h.uploadFile(r, contractFH, blob.BucketContracts, contractPath); err != nil {
		h.Blob.Remove(r.Context(), blob.BucketContracts, []string{loiPath})
		h.respondError(w, apperr.Dependency(err))
		return
	}

	if err := h.Store.FinalizeAward(r.Context(), awardID, loiPath, contractPath); err != nil {
		if cleanupErr := h.Blob.Remove(r.Context(), blob.BucketContracts, []string{loiPath, contractPath}); cleanupErr != nil {
			h.respondError(w, apperr.PartialWrite("Award finalization failed; uploaded documents were not cleaned up", err))
			return
		}
		h.respondError(w, apperr.Dependency(err))
		return
	}
	award.LOIFile = loiPath
	award.ContractFile = contractPath

	h.Notify.Publish(notify.SubjectAwardFinalized, notify.Event{
		TenderID:   award.TenderID,
		BidID:      award.BidID,
		SupplierID: award.SupplierID,
	})

	h.respondMessage(w, http.StatusOK, "Award finalized", award)
}

type awardView struct {
	models.TenderAward
	LOIURL      string `json:"loiUrl,omitempty"`
	ContractURL string `json:"contractUrl,omitempty"`
}

// GetAwardForTenderHandler returns the award with signed document URLs.
func (h *Handler) GetAwardForTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := uuidParam(r, "tenderId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	award, err := h.Store.GetAwardForTender(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	if award == nil {
		h.respondError(w, apperr.NotFound("Tender has not been awarded"))
		return
	}

	view := awardView{TenderAward: *award}
	if award.LOIFile != "" {
		if url, err := h.Blob.SignedURL(blob.BucketContracts, award.LOIFile, h.BidURLTTL); err == nil {
			view.LOIURL = url
		}
	}
	if award.ContractFile != "" {
		if url, err := h.Blob.SignedURL(blob.BucketContracts, award.ContractFile, h.BidURLTTL); err == nil {
			view.ContractURL = url
		}
	}

	h.respondData(w, http.StatusOK, view)
}

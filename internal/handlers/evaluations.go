package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"procurement/internal/apperr"
	"procurement/internal/blob"
	"procurement/models"
)

// ScoreTechnicalHandler handles POST /api/evaluations/score-tech (admin).
// The acting admin is provisioned as an evaluator on first use; the bid moves
// to TECH_QUALIFIED when the score meets the threshold, TECH_REJECTED
// otherwise.
func (h *Handler) ScoreTechnicalHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BidID   uuid.UUID `json:"bid_id"`
		Score   *int      `json:"score"`
		Remarks string    `json:"remarks"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		h.respondError(w, err)
		return
	}
	if input.BidID == uuid.Nil {
		h.respondError(w, apperr.Validation("bid_id is required"))
		return
	}
	if input.Score == nil || *input.Score < 0 || *input.Score > 100 {
		h.respondError(w, apperr.Validation("score must be between 0 and 100"))
		return
	}

	bid, err := h.Store.GetBid(r.Context(), input.BidID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Bid not found"))
		return
	}
	// Re-scoring is allowed only before the award decides the bid.
	if bid.Status == models.BidWon || bid.Status == models.BidLost {
		h.respondError(w, apperr.Forbidden("Bid has been decided by an award and can no longer be scored"))
		return
	}

	admin := CurrentUser(r)
	if err := h.Store.EnsureEvaluator(r.Context(), admin.ID); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}

	status := models.BidTechRejected
	if *input.Score >= h.TechScoreThreshold {
		status = models.BidTechQualified
	}

	ev := models.TechnicalEvaluation{
		BidID:       input.BidID,
		EvaluatorID: admin.ID,
		Score:       *input.Score,
		Remarks:     input.Remarks,
	}
	if err := h.Store.SaveEvaluation(r.Context(), &ev, status); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}

	h.respondMessage(w, http.StatusOK, "Technical score recorded", map[string]interface{}{
		"evaluation": ev,
		"bidStatus":  status,
	})
}

// GetEvaluationsHandler lists the scores recorded for a bid.
func (h *Handler) GetEvaluationsHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := uuidParam(r, "bidId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	evs, err := h.Store.GetEvaluationsForBid(r.Context(), bidID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	h.respondData(w, http.StatusOK, evs)
}

// ViewTechnicalHandler returns a short-lived signed URL for the technical
// envelope. Technical envelopes carry no status gate.
func (h *Handler) ViewTechnicalHandler(w http.ResponseWriter, r *http.Request) {
	h.serveTechnicalURL(w, r)
}

// DownloadTechnicalHandler mirrors ViewTechnicalHandler; both mint the same
// signed URL.
func (h *Handler) DownloadTechnicalHandler(w http.ResponseWriter, r *http.Request) {
	h.serveTechnicalURL(w, r)
}

func (h *Handler) serveTechnicalURL(w http.ResponseWriter, r *http.Request) {
	bidID, err := uuidParam(r, "bidId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	doc, err := h.Store.GetTechnicalDocument(r.Context(), bidID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Technical document not found"))
		return
	}

	url, err := h.Blob.SignedURL(blob.BucketTechnicalBids, doc.FilePath, h.EvalURLTTL)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	h.respondData(w, http.StatusOK, map[string]string{"url": url})
}

// ViewFinancialHandler enforces the sealed envelope: the financial bid is
// unreachable until the technical gate passes.
func (h *Handler) ViewFinancialHandler(w http.ResponseWriter, r *http.Request) {
	h.serveFinancialURL(w, r, models.BidTechQualified)
}

// DownloadFinancialHandler additionally allows WON, so an awarded bid's
// financial stays downloadable.
func (h *Handler) DownloadFinancialHandler(w http.ResponseWriter, r *http.Request) {
	h.serveFinancialURL(w, r, models.BidTechQualified, models.BidWon)
}

func (h *Handler) serveFinancialURL(w http.ResponseWriter, r *http.Request, allowed ...models.BidStatus) {
	bidID, err := uuidParam(r, "bidId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	bid, err := h.Store.GetBid(r.Context(), bidID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Bid not found"))
		return
	}

	permitted := false
	for _, s := range allowed {
		if bid.Status == s {
			permitted = true
			break
		}
	}
	if !permitted {
		h.respondError(w, apperr.Forbidden("Financial bid is sealed until technical qualification"))
		return
	}

	doc, err := h.Store.GetFinancialDocument(r.Context(), bidID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Financial document not found"))
		return
	}

	url, err := h.Blob.SignedURL(blob.BucketFinancialBids, doc.FilePath, h.EvalURLTTL)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	h.respondData(w, http.StatusOK, map[string]string{
		"url":         url,
		"totalAmount": doc.TotalAmount.String(),
	})
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/blob"
	"procurement/internal/notify"
	"procurement/models"
)

// CreateCarnivalHandler handles POST /api/carnivals (admin).
func (h *Handler) CreateCarnivalHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title        string    `json:"title"`
		Description  string    `json:"description"`
		StallDetails string    `json:"stallDetails"`
		BidDeadline  time.Time `json:"bidDeadline"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		h.respondError(w, err)
		return
	}
	if input.Title == "" {
		h.respondError(w, apperr.Validation("Title is required"))
		return
	}
	if input.BidDeadline.IsZero() {
		h.respondError(w, apperr.Validation("bidDeadline is required"))
		return
	}

	carnival := models.Carnival{
		Title:        input.Title,
		Description:  input.Description,
		StallDetails: input.StallDetails,
		BidDeadline:  input.BidDeadline,
		CreatedBy:    CurrentUser(r).ID,
	}
	if err := h.Store.CreateCarnival(r.Context(), &carnival); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}

	h.respondData(w, http.StatusCreated, carnival)
}

// GetCarnivalsHandler lists carnivals.
func (h *Handler) GetCarnivalsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	carnivals, err := h.Store.GetCarnivals(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	h.respondData(w, http.StatusOK, carnivals)
}

// SubmitCarnivalBidHandler handles POST /api/carnivals/submit-bid (supplier,
// multipart). Same deadline gate as tender bids, no envelope separation.
func (h *Handler) SubmitCarnivalBidHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondError(w, apperr.Validation("Invalid multipart form"))
		return
	}

	carnivalID, err := uuid.Parse(r.FormValue("carnival_id"))
	if err != nil {
		h.respondError(w, apperr.Validation("Invalid carnival_id"))
		return
	}
	supplier := CurrentUser(r)

	carnival, err := h.Store.GetCarnival(r.Context(), carnivalID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Carnival not found"))
		return
	}

	if h.Now().After(carnival.BidDeadline) {
		h.respondError(w, apperr.Forbidden("Bid submission is closed for this carnival"))
		return
	}

	techFH, err := formFile(r, "technical_doc")
	if err != nil {
		h.respondError(w, err)
		return
	}
	finFH, err := formFile(r, "financial_doc")
	if err != nil {
		h.respondError(w, err)
		return
	}

	bidAmount, err := parseDecimalField(r, "bid_amount")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if bidAmount.Sign() <= 0 {
		h.respondError(w, apperr.Validation("bid_amount must be positive"))
		return
	}

	existing, err := h.Store.GetSupplierCarnivalBid(r.Context(), carnivalID, supplier.ID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	if existing != nil {
		h.respondError(w, apperr.Conflict("Bid already submitted for this carnival"))
		return
	}

	prefix := fmt.Sprintf("%s/%s", carnivalID, supplier.ID)
	techPath := prefix + "/technical" + fileExt(techFH.Filename)
	finPath := prefix + "/financial" + fileExt(finFH.Filename)

	if err := h.uploadFile(r, techFH, blob.BucketCarnivalDocs, techPath); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	if err := h.uploadFile(r, finFH, blob.BucketCarnivalDocs, finPath); err != nil {
		h.Blob.Remove(r.Context(), blob.BucketCarnivalDocs, []string{techPath})
		h.respondError(w, apperr.Dependency(err))
		return
	}

	bid := models.CarnivalBid{
		CarnivalID:          carnivalID,
		SupplierID:          supplier.ID,
		BidAmount:           bidAmount,
		ProposalDescription: r.FormValue("proposal_description"),
		TechnicalDocPath:    techPath,
		FinancialDocPath:    finPath,
		Status:              models.CarnivalBidPending,
	}
	if err := h.Store.CreateCarnivalBid(r.Context(), &bid); err != nil {
		if errors.Is(err, db.ErrDuplicateBid) {
			// Shared per-(carnival, supplier) paths: the objects belong to
			// the bid that won the insert, so they must stay.
			h.respondError(w, apperr.Conflict("Bid already submitted for this carnival"))
			return
		}
		if cleanupErr := h.Blob.Remove(r.Context(), blob.BucketCarnivalDocs, []string{techPath, finPath}); cleanupErr != nil {
			h.respondError(w, apperr.PartialWrite("Carnival bid failed; uploaded documents were not cleaned up", err))
			return
		}
		h.respondError(w, apperr.Dependency(err))
		return
	}

	h.respondMessage(w, http.StatusCreated, "Carnival bid submitted", bid)
}

// UpdateCarnivalBidStatusHandler handles PUT /api/carnivals/update-status
// (admin): PENDING moves to APPROVED or REJECTED, once.
func (h *Handler) UpdateCarnivalBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BidID  uuid.UUID                `json:"bid_id"`
		Status models.CarnivalBidStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		h.respondError(w, err)
		return
	}
	if input.BidID == uuid.Nil {
		h.respondError(w, apperr.Validation("bid_id is required"))
		return
	}
	if !models.ValidCarnivalDecision(input.Status) {
		h.respondError(w, apperr.Validation("status must be APPROVED or REJECTED"))
		return
	}

	bid, err := h.Store.GetCarnivalBid(r.Context(), input.BidID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Carnival bid not found"))
		return
	}
	if bid.Status != models.CarnivalBidPending {
		h.respondError(w, apperr.Conflict("Carnival bid already decided"))
		return
	}

	if err := h.Store.UpdateCarnivalBidStatus(r.Context(), bid.ID, input.Status); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	bid.Status = input.Status

	h.Notify.Publish(notify.SubjectCarnivalDecision, notify.Event{
		CarnivalID: bid.CarnivalID,
		BidID:      bid.ID,
		SupplierID: bid.SupplierID,
		Status:     string(bid.Status),
	})

	h.respondMessage(w, http.StatusOK, "Carnival bid status updated", bid)
}

type carnivalBidView struct {
	models.CarnivalBid
	TechnicalURL string `json:"technicalUrl"`
	FinancialURL string `json:"financialUrl"`
}

// GetMyCarnivalBidHandler handles GET /api/carnivals/my-bid/{carnivalId}.
// Absence of a bid is not an error: data is null.
func (h *Handler) GetMyCarnivalBidHandler(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := uuidParam(r, "carnivalId")
	if err != nil {
		h.respondError(w, err)
		return
	}
	supplier := CurrentUser(r)

	bid, err := h.Store.GetSupplierCarnivalBid(r.Context(), carnivalID, supplier.ID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	if bid == nil {
		h.respondData(w, http.StatusOK, nil)
		return
	}

	view := carnivalBidView{CarnivalBid: *bid}
	if url, err := h.Blob.SignedURL(blob.BucketCarnivalDocs, bid.TechnicalDocPath, h.BidURLTTL); err == nil {
		view.TechnicalURL = url
	}
	if url, err := h.Blob.SignedURL(blob.BucketCarnivalDocs, bid.FinancialDocPath, h.BidURLTTL); err == nil {
		view.FinancialURL = url
	}

	h.respondData(w, http.StatusOK, view)
}

package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/blob"
	"procurement/models"
)

// SubmitBidHandler handles POST /api/bids/submit (supplier, multipart).
//
// Precondition order is fixed: timeline present, deadline not passed, all
// three files attached, no prior bid by this supplier. Nothing is written
// until every precondition holds.
func (h *Handler) SubmitBidHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondError(w, apperr.Validation("Invalid multipart form"))
		return
	}

	tenderID, err := uuid.Parse(r.FormValue("tender_id"))
	if err != nil {
		h.respondError(w, apperr.Validation("Invalid tender_id"))
		return
	}
	supplier := CurrentUser(r)

	timeline, err := h.Store.GetTimeline(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Tender timeline not found"))
		return
	}

	// The deadline gate is a wall-clock comparison at request time; no
	// server-side sweep closes tenders.
	if h.Now().After(timeline.SubmissionDeadline) {
		h.respondError(w, apperr.Forbidden("Bid submission is closed for this tender"))
		return
	}

	techFH, err := formFile(r, "technical_bid")
	if err != nil {
		h.respondError(w, err)
		return
	}
	finFH, err := formFile(r, "financial_bid")
	if err != nil {
		h.respondError(w, err)
		return
	}
	emdFH, err := formFile(r, "emd_proof")
	if err != nil {
		h.respondError(w, err)
		return
	}

	totalAmount, err := parseDecimalField(r, "total_amount")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if totalAmount.Sign() <= 0 {
		h.respondError(w, apperr.Validation("total_amount must be positive"))
		return
	}

	existing, err := h.Store.GetSupplierBid(r.Context(), tenderID, supplier.ID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	if existing != nil {
		h.respondError(w, apperr.Conflict("Bid already submitted for this tender"))
		return
	}

	// Deterministic per-tender/per-supplier paths; a re-upload overwrites.
	prefix := fmt.Sprintf("%s/%s", tenderID, supplier.ID)
	techPath := prefix + "/technical" + fileExt(techFH.Filename)
	finPath := prefix + "/financial" + fileExt(finFH.Filename)
	emdPath := prefix + "/emd" + fileExt(emdFH.Filename)

	type upload struct {
		fh     *multipart.FileHeader
		bucket string
		path   string
	}
	uploads := []upload{
		{techFH, blob.BucketTechnicalBids, techPath},
		{finFH, blob.BucketFinancialBids, finPath},
		{emdFH, blob.BucketSupplierDocs, emdPath},
	}
	var done []upload
	cleanup := func() error {
		var firstErr error
		for _, u := range done {
			if err := h.Blob.Remove(r.Context(), u.bucket, []string{u.path}); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, u := range uploads {
		if err := h.uploadFile(r, u.fh, u.bucket, u.path); err != nil {
			cleanup()
			h.respondError(w, apperr.Dependency(err))
			return
		}
		done = append(done, u)
	}

	pkg := &db.BidPackage{
		Bid: models.Bid{
			TenderID:   tenderID,
			SupplierID: supplier.ID,
			Status:     models.BidSubmitted,
		},
		Declarations: models.Declarations{
			NoDeviation:   r.FormValue("no_deviation") == "true",
			TermsAccepted: r.FormValue("terms_accepted") == "true",
		},
		CommonDocs: models.CommonDocuments{
			EMDProofFile:    emdPath,
			WarrantyDetails: r.FormValue("warranty_details"),
		},
		Technical: models.TechnicalDocument{FilePath: techPath},
		Financial: models.FinancialDocument{FilePath: finPath, TotalAmount: totalAmount},
	}
	if err := h.Store.CreateBid(r.Context(), pkg); err != nil {
		if errors.Is(err, db.ErrDuplicateBid) {
			// A concurrent submission won the insert. The paths are shared
			// per (tender, supplier), so the objects now belong to the
			// surviving bid; removing them would orphan its document rows.
			h.respondError(w, apperr.Conflict("Bid already submitted for this tender"))
			return
		}
		if cleanupErr := cleanup(); cleanupErr != nil {
			h.respondError(w, apperr.PartialWrite("Bid submission failed; uploaded documents were not cleaned up", err))
			return
		}
		h.respondError(w, apperr.Dependency(err))
		return
	}

	h.respondMessage(w, http.StatusCreated, "Bid submitted", pkg.Bid)
}

func formFile(r *http.Request, name string) (*multipart.FileHeader, error) {
	_, fh, err := r.FormFile(name)
	if err != nil {
		return nil, apperr.Validation(name + " file is required")
	}
	return fh, nil
}

// bidStatusView always carries the deadline so the client can render a
// countdown before any bid exists.
type bidStatusView struct {
	SubmissionDeadline time.Time  `json:"submissionDeadline"`
	Bid                *myBidView `json:"bid"`
}

type myBidView struct {
	models.Bid
	TotalAmount     string `json:"totalAmount"`
	WarrantyDetails string `json:"warrantyDetails"`
	TechnicalURL    string `json:"technicalUrl"`
	FinancialURL    string `json:"financialUrl"`
	EMDProofURL     string `json:"emdProofUrl"`
}

// GetMyBidStatusHandler handles GET /api/bids/my-status/{tenderId}.
func (h *Handler) GetMyBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := uuidParam(r, "tenderId")
	if err != nil {
		h.respondError(w, err)
		return
	}
	supplier := CurrentUser(r)

	timeline, err := h.Store.GetTimeline(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Tender timeline not found"))
		return
	}

	view := bidStatusView{SubmissionDeadline: timeline.SubmissionDeadline}

	bid, err := h.Store.GetSupplierBid(r.Context(), tenderID, supplier.ID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	if bid == nil {
		h.respondData(w, http.StatusOK, view)
		return
	}

	tech, err := h.Store.GetTechnicalDocument(r.Context(), bid.ID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Technical document not found"))
		return
	}
	fin, err := h.Store.GetFinancialDocument(r.Context(), bid.ID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Financial document not found"))
		return
	}
	common, err := h.Store.GetCommonDocuments(r.Context(), bid.ID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Bid documents not found"))
		return
	}

	techURL, err := h.Blob.SignedURL(blob.BucketTechnicalBids, tech.FilePath, h.BidURLTTL)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	finURL, err := h.Blob.SignedURL(blob.BucketFinancialBids, fin.FilePath, h.BidURLTTL)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	emdURL, err := h.Blob.SignedURL(blob.BucketSupplierDocs, common.EMDProofFile, h.BidURLTTL)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}

	view.Bid = &myBidView{
		Bid:             *bid,
		TotalAmount:     fin.TotalAmount.String(),
		WarrantyDetails: common.WarrantyDetails,
		TechnicalURL:    techURL,
		FinancialURL:    finURL,
		EMDProofURL:     emdURL,
	}
	h.respondData(w, http.StatusOK, view)
}

// GetBidsForTenderHandler lists a tender's bids with supplier names for the
// evaluation screen. Financial amounts are not included here; the sealed
// envelope is only reachable through the evaluator endpoints.
func (h *Handler) GetBidsForTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := uuidParam(r, "tenderId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	if _, err := h.Store.GetTender(r.Context(), tenderID); err != nil {
		h.respondError(w, apperr.FromDB(err, "Tender not found"))
		return
	}

	bids, err := h.Store.GetBidsForTender(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	h.respondData(w, http.StatusOK, bids)
}

package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"procurement/internal/apperr"
	"procurement/internal/blob"
	"procurement/models"
)

const maxUploadBytes = 32 << 20

// tenderView is the joined read model: tender plus timeline, eligibility and
// notice documents.
type tenderView struct {
	models.Tender
	Timeline    *models.Timeline            `json:"timeline"`
	Eligibility *models.EligibilityCriteria `json:"eligibility"`
	Documents   []tenderDocumentView        `json:"documents"`
}

type tenderDocumentView struct {
	models.TenderDocument
	URL string `json:"url"`
}

// CreateTenderHandler handles POST /api/tenders (admin, multipart). The
// tender, timeline and eligibility rows are written in one transaction after
// the notice documents are uploaded.
func (h *Handler) CreateTenderHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondError(w, apperr.Validation("Invalid multipart form"))
		return
	}

	tender := models.Tender{
		ID:          uuid.New(),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		ScopeOfWork: r.FormValue("scope_of_work"),
		Status:      models.TenderPublished,
		CreatedBy:   CurrentUser(r).ID,
	}
	if tender.Title == "" {
		h.respondError(w, apperr.Validation("Title is required"))
		return
	}

	var err error
	if tender.BudgetEstimate, err = parseDecimalField(r, "budget_estimate"); err != nil {
		h.respondError(w, err)
		return
	}
	if tender.EMDAmount, err = parseDecimalField(r, "emd_amount"); err != nil {
		h.respondError(w, err)
		return
	}
	if tender.PriceWeightage, err = parseIntField(r, "price_weightage"); err != nil {
		h.respondError(w, err)
		return
	}
	if tender.TechnicalWeightage, err = parseIntField(r, "technical_weightage"); err != nil {
		h.respondError(w, err)
		return
	}
	if tender.BidValidityDays, err = parseIntField(r, "bid_validity_days"); err != nil {
		h.respondError(w, err)
		return
	}
	if tender.PriceWeightage+tender.TechnicalWeightage != 100 {
		h.respondError(w, apperr.Validation("Price and technical weightage must sum to 100"))
		return
	}

	timeline := models.Timeline{}
	if timeline.SubmissionDeadline, err = parseTimeField(r, "submission_deadline"); err != nil {
		h.respondError(w, err)
		return
	}
	if timeline.OpeningDate, err = parseTimeField(r, "opening_date"); err != nil {
		h.respondError(w, err)
		return
	}
	if timeline.ClarificationDeadline, err = parseTimeField(r, "clarification_deadline"); err != nil {
		h.respondError(w, err)
		return
	}

	eligibility := models.EligibilityCriteria{
		RequiredCertifications: r.FormValue("required_certifications"),
	}
	if eligibility.MinExperienceYears, err = parseIntField(r, "min_experience_years"); err != nil {
		h.respondError(w, err)
		return
	}
	if eligibility.MinTurnover, err = parseDecimalField(r, "min_turnover"); err != nil {
		h.respondError(w, err)
		return
	}

	// Notice documents are optional, any number under the "documents" field.
	var docs []models.TenderDocument
	var uploaded []string
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["documents"] {
			path := fmt.Sprintf("%s/%s", tenderDocPrefix(&tender), fh.Filename)
			if err := h.uploadFile(r, fh, blob.BucketTenderDocs, path); err != nil {
				h.Blob.Remove(r.Context(), blob.BucketTenderDocs, uploaded)
				h.respondError(w, apperr.Dependency(err))
				return
			}
			uploaded = append(uploaded, path)
			docs = append(docs, models.TenderDocument{FileName: fh.Filename, FilePath: path})
		}
	}

	if err := h.Store.CreateTender(r.Context(), &tender, &timeline, &eligibility, docs); err != nil {
		if cleanupErr := h.Blob.Remove(r.Context(), blob.BucketTenderDocs, uploaded); cleanupErr != nil {
			h.respondError(w, apperr.PartialWrite("Tender creation failed; uploaded documents were not cleaned up", err))
			return
		}
		h.respondError(w, apperr.Dependency(err))
		return
	}

	h.respondData(w, http.StatusCreated, tenderView{
		Tender:      tender,
		Timeline:    &timeline,
		Eligibility: &eligibility,
		Documents:   h.tenderDocumentViews(docs),
	})
}

func tenderDocPrefix(t *models.Tender) string {
	return t.ID.String()
}

// uploadFile streams one multipart file into the blob store.
func (h *Handler) uploadFile(r *http.Request, fh *multipart.FileHeader, bucket, path string) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = h.Blob.Put(r.Context(), bucket, path, f)
	return err
}

func (h *Handler) tenderDocumentViews(docs []models.TenderDocument) []tenderDocumentView {
	views := make([]tenderDocumentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, tenderDocumentView{
			TenderDocument: d,
			URL:            h.Blob.PublicURL(blob.BucketTenderDocs, d.FilePath),
		})
	}
	return views
}

// GetTendersHandler lists tenders.
func (h *Handler) GetTendersHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	tenders, err := h.Store.GetTenders(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	h.respondData(w, http.StatusOK, tenders)
}

// GetTenderHandler returns one tender joined with timeline, eligibility and
// documents.
func (h *Handler) GetTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := uuidParam(r, "tenderId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	tender, err := h.Store.GetTender(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Tender not found"))
		return
	}

	view := tenderView{Tender: *tender, Documents: []tenderDocumentView{}}
	if tl, err := h.Store.GetTimeline(r.Context(), tenderID); err == nil {
		view.Timeline = tl
	}
	if ec, err := h.Store.GetEligibility(r.Context(), tenderID); err == nil {
		view.Eligibility = ec
	}
	if docs, err := h.Store.GetTenderDocuments(r.Context(), tenderID); err == nil {
		view.Documents = h.tenderDocumentViews(docs)
	}

	h.respondData(w, http.StatusOK, view)
}

// UpdateTenderHandler handles PUT /api/tenders/{tenderId}. Awarded tenders
// are immutable apart from document attachment.
func (h *Handler) UpdateTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := uuidParam(r, "tenderId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	var input struct {
		Title           *string          `json:"title"`
		Description     *string          `json:"description"`
		ScopeOfWork     *string          `json:"scopeOfWork"`
		BudgetEstimate  *decimal.Decimal `json:"budgetEstimate"`
		EMDAmount       *decimal.Decimal `json:"emdAmount"`
		BidValidityDays *int             `json:"bidValidityDays"`

		Timeline    *models.Timeline            `json:"timeline"`
		Eligibility *models.EligibilityCriteria `json:"eligibility"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		h.respondError(w, err)
		return
	}

	tender, err := h.Store.GetTender(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, apperr.FromDB(err, "Tender not found"))
		return
	}
	if tender.Status == models.TenderAwarded {
		h.respondError(w, apperr.Forbidden("Awarded tender cannot be modified"))
		return
	}

	if input.Title != nil {
		if *input.Title == "" {
			h.respondError(w, apperr.Validation("Title cannot be empty"))
			return
		}
		tender.Title = *input.Title
	}
	if input.Description != nil {
		tender.Description = *input.Description
	}
	if input.ScopeOfWork != nil {
		tender.ScopeOfWork = *input.ScopeOfWork
	}
	if input.BudgetEstimate != nil {
		tender.BudgetEstimate = *input.BudgetEstimate
	}
	if input.EMDAmount != nil {
		tender.EMDAmount = *input.EMDAmount
	}
	if input.BidValidityDays != nil {
		tender.BidValidityDays = *input.BidValidityDays
	}

	if err := h.Store.UpdateTender(r.Context(), tender); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}

	// Timeline and eligibility are upserted, covering tenders created before
	// those records existed.
	if input.Timeline != nil {
		input.Timeline.TenderID = tenderID
		if err := h.Store.UpsertTimeline(r.Context(), input.Timeline); err != nil {
			h.respondError(w, apperr.Dependency(err))
			return
		}
	}
	if input.Eligibility != nil {
		input.Eligibility.TenderID = tenderID
		if err := h.Store.UpsertEligibility(r.Context(), input.Eligibility); err != nil {
			h.respondError(w, apperr.Dependency(err))
			return
		}
	}

	h.respondMessage(w, http.StatusOK, "Tender updated", tender)
}

// AttachTenderDocumentHandler adds a notice document; allowed even after the
// tender is awarded.
func (h *Handler) AttachTenderDocumentHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := uuidParam(r, "tenderId")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondError(w, apperr.Validation("Invalid multipart form"))
		return
	}

	if _, err := h.Store.GetTender(r.Context(), tenderID); err != nil {
		h.respondError(w, apperr.FromDB(err, "Tender not found"))
		return
	}

	_, fh, err := r.FormFile("document")
	if err != nil {
		h.respondError(w, apperr.Validation("Document file is required"))
		return
	}

	path := fmt.Sprintf("%s/%s", tenderID, fh.Filename)
	if err := h.uploadFile(r, fh, blob.BucketTenderDocs, path); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}

	doc := models.TenderDocument{TenderID: tenderID, FileName: fh.Filename, FilePath: path}
	if err := h.Store.AddTenderDocument(r.Context(), &doc); err != nil {
		if cleanupErr := h.Blob.Remove(r.Context(), blob.BucketTenderDocs, []string{path}); cleanupErr != nil {
			h.respondError(w, apperr.PartialWrite("Document record failed; uploaded file was not cleaned up", err))
			return
		}
		h.respondError(w, apperr.Dependency(err))
		return
	}

	h.respondData(w, http.StatusCreated, tenderDocumentView{
		TenderDocument: doc,
		URL:            h.Blob.PublicURL(blob.BucketTenderDocs, doc.FilePath),
	})
}

// DeleteTenderHandler removes the blob objects first, then the rows.
func (h *Handler) DeleteTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := uuidParam(r, "tenderId")
	if err != nil {
		h.respondError(w, err)
		return
	}

	if _, err := h.Store.GetTender(r.Context(), tenderID); err != nil {
		h.respondError(w, apperr.FromDB(err, "Tender not found"))
		return
	}

	docs, err := h.Store.GetTenderDocuments(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.FilePath)
	}
	if err := h.Blob.Remove(r.Context(), blob.BucketTenderDocs, paths); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}

	if err := h.Store.DeleteTender(r.Context(), tenderID); err != nil {
		h.respondError(w, apperr.Dependency(err))
		return
	}

	h.respondMessage(w, http.StatusOK, "Tender deleted", nil)
}

// Form field parsing helpers.

func parseDecimalField(r *http.Request, name string) (decimal.Decimal, error) {
	v := r.FormValue(name)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, apperr.Validation("Invalid " + name)
	}
	return d, nil
}

func parseIntField(r *http.Request, name string) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("Invalid " + name)
	}
	return n, nil
}

func parseTimeField(r *http.Request, name string) (time.Time, error) {
	v := r.FormValue(name)
	if v == "" {
		return time.Time{}, apperr.Validation(name + " is required")
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid " + name + ", expected RFC3339")
	}
	return t, nil
}

// fileExt normalizes a client-supplied extension for use in object paths.
// Anything outside [a-z0-9] falls back to .bin so paths never need URL
// escaping that could diverge from the signed string.
func fileExt(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return ".bin"
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".bin"
		}
	}
	return "." + ext
}

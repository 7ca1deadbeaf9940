package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"procurement/db"
	"procurement/internal/handlers"
	"procurement/internal/handlers/testutils"
	"procurement/internal/notify"
	"procurement/models"
)

// MockStorage implements handlers.StorageInterface with overridable func
// fields and canned defaults.
type MockStorage struct {
	user *models.User

	GetTenderFunc              func(ctx context.Context, id uuid.UUID) (*models.Tender, error)
	GetTimelineFunc            func(ctx context.Context, tenderID uuid.UUID) (*models.Timeline, error)
	CreateBidFunc              func(ctx context.Context, p *db.BidPackage) error
	GetBidFunc                 func(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	GetSupplierBidFunc         func(ctx context.Context, tenderID, supplierID uuid.UUID) (*models.Bid, error)
	SaveEvaluationFunc         func(ctx context.Context, ev *models.TechnicalEvaluation, status models.BidStatus) error
	AwardTenderFunc            func(ctx context.Context, a *models.TenderAward) error
	GetAwardForTenderFunc      func(ctx context.Context, tenderID uuid.UUID) (*models.TenderAward, error)
	GetCarnivalFunc            func(ctx context.Context, id uuid.UUID) (*models.Carnival, error)
	CreateCarnivalBidFunc      func(ctx context.Context, b *models.CarnivalBid) error
	GetCarnivalBidFunc         func(ctx context.Context, id uuid.UUID) (*models.CarnivalBid, error)
	GetSupplierCarnivalBidFunc func(ctx context.Context, carnivalID, supplierID uuid.UUID) (*models.CarnivalBid, error)

	createBidCalls     int
	ensureEvalCalls    int
	savedStatus        models.BidStatus
	createdCarnivalBid *models.CarnivalBid
	updatedBidStatus   models.CarnivalBidStatus
}

func (m *MockStorage) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	if m.user == nil {
		return nil, errors.New("not found")
	}
	return m.user, nil
}

func (m *MockStorage) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.user == nil {
		return nil, errors.New("not found")
	}
	return m.user, nil
}

func (m *MockStorage) CreateTender(ctx context.Context, t *models.Tender, tl *models.Timeline, ec *models.EligibilityCriteria, docs []models.TenderDocument) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	return nil
}

func (m *MockStorage) GetTender(ctx context.Context, id uuid.UUID) (*models.Tender, error) {
	if m.GetTenderFunc != nil {
		return m.GetTenderFunc(ctx, id)
	}
	return &models.Tender{ID: id, Title: "Road Resurfacing", Status: models.TenderPublished}, nil
}

func (m *MockStorage) GetTenders(ctx context.Context, limit, offset int) ([]models.Tender, error) {
	return []models.Tender{{ID: uuid.New(), Title: "Sample Tender", Status: models.TenderPublished}}, nil
}

func (m *MockStorage) UpdateTender(ctx context.Context, t *models.Tender) error { return nil }
func (m *MockStorage) DeleteTender(ctx context.Context, id uuid.UUID) error     { return nil }

func (m *MockStorage) GetTimeline(ctx context.Context, tenderID uuid.UUID) (*models.Timeline, error) {
	if m.GetTimelineFunc != nil {
		return m.GetTimelineFunc(ctx, tenderID)
	}
	return &models.Timeline{
		TenderID:           tenderID,
		SubmissionDeadline: time.Now().Add(24 * time.Hour),
	}, nil
}

func (m *MockStorage) UpsertTimeline(ctx context.Context, tl *models.Timeline) error { return nil }

func (m *MockStorage) GetEligibility(ctx context.Context, tenderID uuid.UUID) (*models.EligibilityCriteria, error) {
	return &models.EligibilityCriteria{TenderID: tenderID, MinExperienceYears: 3}, nil
}

func (m *MockStorage) UpsertEligibility(ctx context.Context, ec *models.EligibilityCriteria) error {
	return nil
}

func (m *MockStorage) GetTenderDocuments(ctx context.Context, tenderID uuid.UUID) ([]models.TenderDocument, error) {
	return []models.TenderDocument{}, nil
}

func (m *MockStorage) AddTenderDocument(ctx context.Context, d *models.TenderDocument) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (m *MockStorage) CreateBid(ctx context.Context, p *db.BidPackage) error {
	m.createBidCalls++
	if m.CreateBidFunc != nil {
		return m.CreateBidFunc(ctx, p)
	}
	if p.Bid.ID == uuid.Nil {
		p.Bid.ID = uuid.New()
	}
	p.Bid.SubmittedAt = time.Now()
	return nil
}

func (m *MockStorage) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	if m.GetBidFunc != nil {
		return m.GetBidFunc(ctx, id)
	}
	return &models.Bid{ID: id, TenderID: uuid.New(), SupplierID: uuid.New(), Status: models.BidSubmitted}, nil
}

func (m *MockStorage) GetSupplierBid(ctx context.Context, tenderID, supplierID uuid.UUID) (*models.Bid, error) {
	if m.GetSupplierBidFunc != nil {
		return m.GetSupplierBidFunc(ctx, tenderID, supplierID)
	}
	return nil, nil
}

func (m *MockStorage) GetBidsForTender(ctx context.Context, tenderID uuid.UUID) ([]db.BidWithSupplier, error) {
	return []db.BidWithSupplier{}, nil
}

func (m *MockStorage) GetTechnicalDocument(ctx context.Context, bidID uuid.UUID) (*models.TechnicalDocument, error) {
	return &models.TechnicalDocument{BidID: bidID, FilePath: "t/s/technical.pdf"}, nil
}

func (m *MockStorage) GetFinancialDocument(ctx context.Context, bidID uuid.UUID) (*models.FinancialDocument, error) {
	return &models.FinancialDocument{
		BidID:       bidID,
		FilePath:    "t/s/financial.pdf",
		TotalAmount: decimal.NewFromInt(50000),
	}, nil
}

func (m *MockStorage) GetCommonDocuments(ctx context.Context, bidID uuid.UUID) (*models.CommonDocuments, error) {
	return &models.CommonDocuments{BidID: bidID, EMDProofFile: "t/s/emd.pdf"}, nil
}

func (m *MockStorage) EnsureEvaluator(ctx context.Context, userID uuid.UUID) error {
	m.ensureEvalCalls++
	return nil
}

func (m *MockStorage) SaveEvaluation(ctx context.Context, ev *models.TechnicalEvaluation, status models.BidStatus) error {
	m.savedStatus = status
	if m.SaveEvaluationFunc != nil {
		return m.SaveEvaluationFunc(ctx, ev, status)
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.CreatedAt = time.Now()
	return nil
}

func (m *MockStorage) GetEvaluationsForBid(ctx context.Context, bidID uuid.UUID) ([]models.TechnicalEvaluation, error) {
	return []models.TechnicalEvaluation{}, nil
}

func (m *MockStorage) AwardTender(ctx context.Context, a *models.TenderAward) error {
	if m.AwardTenderFunc != nil {
		return m.AwardTenderFunc(ctx, a)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.AwardDate = time.Now()
	return nil
}

func (m *MockStorage) GetAward(ctx context.Context, id uuid.UUID) (*models.TenderAward, error) {
	return &models.TenderAward{ID: id, TenderID: uuid.New(), BidID: uuid.New(), SupplierID: uuid.New()}, nil
}

func (m *MockStorage) GetAwardForTender(ctx context.Context, tenderID uuid.UUID) (*models.TenderAward, error) {
	if m.GetAwardForTenderFunc != nil {
		return m.GetAwardForTenderFunc(ctx, tenderID)
	}
	return nil, nil
}

func (m *MockStorage) FinalizeAward(ctx context.Context, id uuid.UUID, loiFile, contractFile string) error {
	return nil
}

func (m *MockStorage) CreateCarnival(ctx context.Context, c *models.Carnival) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	return nil
}

func (m *MockStorage) GetCarnival(ctx context.Context, id uuid.UUID) (*models.Carnival, error) {
	if m.GetCarnivalFunc != nil {
		return m.GetCarnivalFunc(ctx, id)
	}
	return &models.Carnival{ID: id, Title: "Spring Carnival", BidDeadline: time.Now().Add(24 * time.Hour)}, nil
}

func (m *MockStorage) GetCarnivals(ctx context.Context, limit, offset int) ([]models.Carnival, error) {
	return []models.Carnival{}, nil
}

func (m *MockStorage) CreateCarnivalBid(ctx context.Context, b *models.CarnivalBid) error {
	if m.CreateCarnivalBidFunc != nil {
		return m.CreateCarnivalBidFunc(ctx, b)
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.SubmittedAt = time.Now()
	m.createdCarnivalBid = b
	return nil
}

func (m *MockStorage) GetCarnivalBid(ctx context.Context, id uuid.UUID) (*models.CarnivalBid, error) {
	if m.GetCarnivalBidFunc != nil {
		return m.GetCarnivalBidFunc(ctx, id)
	}
	return &models.CarnivalBid{ID: id, CarnivalID: uuid.New(), SupplierID: uuid.New(), Status: models.CarnivalBidPending}, nil
}

func (m *MockStorage) GetSupplierCarnivalBid(ctx context.Context, carnivalID, supplierID uuid.UUID) (*models.CarnivalBid, error) {
	if m.GetSupplierCarnivalBidFunc != nil {
		return m.GetSupplierCarnivalBidFunc(ctx, carnivalID, supplierID)
	}
	return nil, nil
}

func (m *MockStorage) UpdateCarnivalBidStatus(ctx context.Context, bidID uuid.UUID, status models.CarnivalBidStatus) error {
	m.updatedBidStatus = status
	return nil
}

// mockBlob is an in-memory blob store; it also satisfies handlers.FileStore.
type mockBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newMockBlob() *mockBlob {
	return &mockBlob{objects: map[string][]byte{}}
}

func (m *mockBlob) key(bucket, path string) string { return bucket + "/" + path }

func (m *mockBlob) Put(ctx context.Context, bucket, path string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[m.key(bucket, path)] = data
	m.puts++
	return path, nil
}

func (m *mockBlob) Get(ctx context.Context, bucket, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[m.key(bucket, path)]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockBlob) SignedURL(bucket, path string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://files.test/files/%s/%s?exp=1&sig=ok", bucket, path), nil
}

func (m *mockBlob) PublicURL(bucket, path string) string {
	return fmt.Sprintf("https://files.test/files/%s/%s", bucket, path)
}

func (m *mockBlob) Remove(ctx context.Context, bucket string, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.objects, m.key(bucket, p))
	}
	return nil
}

func (m *mockBlob) Verify(bucket, path, exp, sig string) bool { return sig == "ok" }

func (m *mockBlob) objectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func (m *mockBlob) objectKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

func newTestHandler(store *MockStorage, bs *mockBlob) *handlers.Handler {
	return handlers.NewHandler(store, bs, bs, notify.Noop{}, nil)
}

func adminUser() *models.User {
	return &models.User{ID: uuid.New(), Username: "admin1", Role: models.RoleAdmin}
}

func supplierUser() *models.User {
	return &models.User{ID: uuid.New(), Username: "acme", Role: models.RoleSupplier}
}

// multipartBody builds a multipart form from fields and files.
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestPingHandler(t *testing.T) {
	h := newTestHandler(&MockStorage{}, newMockBlob())

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	w := httptest.NewRecorder()
	h.PingHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}

func TestGetTendersHandler(t *testing.T) {
	h := newTestHandler(&MockStorage{}, newMockBlob())

	req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	w := httptest.NewRecorder()
	h.GetTendersHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Sample Tender")
	require.Contains(t, w.Body.String(), `"success":true`)
}

func TestCreateTenderHandler(t *testing.T) {
	h := newTestHandler(&MockStorage{}, newMockBlob())

	deadline := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	body, contentType := multipartBody(t, map[string]string{
		"title":                  "Community Hall Renovation",
		"budget_estimate":        "250000.00",
		"emd_amount":             "5000.00",
		"price_weightage":        "60",
		"technical_weightage":    "40",
		"bid_validity_days":      "90",
		"submission_deadline":    deadline,
		"opening_date":           deadline,
		"clarification_deadline": deadline,
		"min_experience_years":   "5",
		"min_turnover":           "1000000",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tenders", body)
	req.Header.Set("Content-Type", contentType)
	req = handlers.WithUser(req, adminUser())
	w := httptest.NewRecorder()

	h.CreateTenderHandler(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "Community Hall Renovation")
	require.Contains(t, w.Body.String(), "PUBLISHED")
}

func TestCreateTenderHandlerWeightageMustSum(t *testing.T) {
	h := newTestHandler(&MockStorage{}, newMockBlob())

	deadline := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	body, contentType := multipartBody(t, map[string]string{
		"title":               "Broken Weightage",
		"price_weightage":     "60",
		"technical_weightage": "60",
		"submission_deadline": deadline,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tenders", body)
	req.Header.Set("Content-Type", contentType)
	req = handlers.WithUser(req, adminUser())
	w := httptest.NewRecorder()

	h.CreateTenderHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "sum to 100")
}

func TestUpdateTenderHandlerAwardedImmutable(t *testing.T) {
	store := &MockStorage{
		GetTenderFunc: func(ctx context.Context, id uuid.UUID) (*models.Tender, error) {
			return &models.Tender{ID: id, Title: "Done Deal", Status: models.TenderAwarded}, nil
		},
	}
	h := newTestHandler(store, newMockBlob())

	req := httptest.NewRequest(http.MethodPut, "/api/tenders/x", strings.NewReader(`{"title":"New Title"}`))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": uuid.New().String()})
	req = handlers.WithUser(req, adminUser())
	w := httptest.NewRecorder()

	h.UpdateTenderHandler(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "cannot be modified")
}

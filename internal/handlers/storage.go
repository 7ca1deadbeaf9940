package handlers

import (
	"context"
	"io"

	"github.com/google/uuid"

	"procurement/db"
	"procurement/models"
)

type StorageInterface interface {
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	CreateTender(ctx context.Context, t *models.Tender, tl *models.Timeline, ec *models.EligibilityCriteria, docs []models.TenderDocument) error
	GetTender(ctx context.Context, id uuid.UUID) (*models.Tender, error)
	GetTenders(ctx context.Context, limit, offset int) ([]models.Tender, error)
	UpdateTender(ctx context.Context, t *models.Tender) error
	DeleteTender(ctx context.Context, id uuid.UUID) error
	GetTimeline(ctx context.Context, tenderID uuid.UUID) (*models.Timeline, error)
	UpsertTimeline(ctx context.Context, tl *models.Timeline) error
	GetEligibility(ctx context.Context, tenderID uuid.UUID) (*models.EligibilityCriteria, error)
	UpsertEligibility(ctx context.Context, ec *models.EligibilityCriteria) error
	GetTenderDocuments(ctx context.Context, tenderID uuid.UUID) ([]models.TenderDocument, error)
	AddTenderDocument(ctx context.Context, d *models.TenderDocument) error

	CreateBid(ctx context.Context, p *db.BidPackage) error
	GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)
	GetSupplierBid(ctx context.Context, tenderID, supplierID uuid.UUID) (*models.Bid, error)
	GetBidsForTender(ctx context.Context, tenderID uuid.UUID) ([]db.BidWithSupplier, error)
	GetTechnicalDocument(ctx context.Context, bidID uuid.UUID) (*models.TechnicalDocument, error)
	GetFinancialDocument(ctx context.Context, bidID uuid.UUID) (*models.FinancialDocument, error)
	GetCommonDocuments(ctx context.Context, bidID uuid.UUID) (*models.CommonDocuments, error)

	EnsureEvaluator(ctx context.Context, userID uuid.UUID) error
	SaveEvaluation(ctx context.Context, ev *models.TechnicalEvaluation, status models.BidStatus) error
	GetEvaluationsForBid(ctx context.Context, bidID uuid.UUID) ([]models.TechnicalEvaluation, error)

	AwardTender(ctx context.Context, a *models.TenderAward) error
	GetAward(ctx context.Context, id uuid.UUID) (*models.TenderAward, error)
	GetAwardForTender(ctx context.Context, tenderID uuid.UUID) (*models.TenderAward, error)
	FinalizeAward(ctx context.Context, id uuid.UUID, loiFile, contractFile string) error

	CreateCarnival(ctx context.Context, c *models.Carnival) error
	GetCarnival(ctx context.Context, id uuid.UUID) (*models.Carnival, error)
	GetCarnivals(ctx context.Context, limit, offset int) ([]models.Carnival, error)
	CreateCarnivalBid(ctx context.Context, b *models.CarnivalBid) error
	GetCarnivalBid(ctx context.Context, id uuid.UUID) (*models.CarnivalBid, error)
	GetSupplierCarnivalBid(ctx context.Context, carnivalID, supplierID uuid.UUID) (*models.CarnivalBid, error)
	UpdateCarnivalBidStatus(ctx context.Context, bidID uuid.UUID, status models.CarnivalBidStatus) error
}

// FileStore is what the signed-download endpoint needs from the blob store.
type FileStore interface {
	Get(ctx context.Context, bucket, path string) (io.ReadCloser, error)
	Verify(bucket, path, exp, sig string) bool
}

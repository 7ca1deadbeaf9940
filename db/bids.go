package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"procurement/models"
)

// BidPackage bundles the bid row with its child records for submission.
type BidPackage struct {
	Bid          models.Bid
	Declarations models.Declarations
	CommonDocs   models.CommonDocuments
	Technical    models.TechnicalDocument
	Financial    models.FinancialDocument
}

// BidWithSupplier is the evaluation-screen projection: no financials here,
// the sealed envelope is only reachable through the evaluator endpoints.
type BidWithSupplier struct {
	models.Bid
	SupplierUsername string `db:"supplier_username" json:"supplierUsername"`
}

// CreateBid inserts the bid and its four dependent records in one
// transaction. A duplicate (tender_id, supplier_id) pair surfaces as
// ErrDuplicateBid via the unique index.
func (s *Storage) CreateBid(ctx context.Context, p *BidPackage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if p.Bid.ID == uuid.Nil {
		p.Bid.ID = uuid.New()
	}
	query := `
        INSERT INTO bid (id, tender_id, supplier_id, status)
        VALUES ($1, $2, $3, $4)
        RETURNING submitted_at`
	err = tx.QueryRowContext(ctx, query,
		p.Bid.ID, p.Bid.TenderID, p.Bid.SupplierID, p.Bid.Status).
		Scan(&p.Bid.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBid
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO bid_declarations (bid_id, no_deviation, terms_accepted)
        VALUES ($1, $2, $3)`,
		p.Bid.ID, p.Declarations.NoDeviation, p.Declarations.TermsAccepted)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO bid_common_documents (bid_id, emd_proof_file, warranty_details)
        VALUES ($1, $2, $3)`,
		p.Bid.ID, p.CommonDocs.EMDProofFile, p.CommonDocs.WarrantyDetails)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO bid_technical_document (bid_id, file_path)
        VALUES ($1, $2)`,
		p.Bid.ID, p.Technical.FilePath)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO bid_financial_document (bid_id, file_path, total_amount)
        VALUES ($1, $2, $3)`,
		p.Bid.ID, p.Financial.FilePath, p.Financial.TotalAmount)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Storage) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM bid WHERE id=$1`
	err := s.db.GetContext(ctx, b, query, id)
	return b, err
}

// GetSupplierBid returns the supplier's bid on a tender, or (nil, nil) when
// none exists yet.
func (s *Storage) GetSupplierBid(ctx context.Context, tenderID, supplierID uuid.UUID) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM bid WHERE tender_id=$1 AND supplier_id=$2`
	err := s.db.GetContext(ctx, b, query, tenderID, supplierID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Storage) GetBidsForTender(ctx context.Context, tenderID uuid.UUID) ([]BidWithSupplier, error) {
	bids := []BidWithSupplier{}
	query := `
        SELECT b.*, u.username AS supplier_username
        FROM bid b
        JOIN users u ON b.supplier_id = u.id
        WHERE b.tender_id = $1
        ORDER BY b.submitted_at ASC`
	err := s.db.SelectContext(ctx, &bids, query, tenderID)
	return bids, err
}

func (s *Storage) GetTechnicalDocument(ctx context.Context, bidID uuid.UUID) (*models.TechnicalDocument, error) {
	d := &models.TechnicalDocument{}
	query := `SELECT * FROM bid_technical_document WHERE bid_id=$1`
	err := s.db.GetContext(ctx, d, query, bidID)
	return d, err
}

func (s *Storage) GetFinancialDocument(ctx context.Context, bidID uuid.UUID) (*models.FinancialDocument, error) {
	d := &models.FinancialDocument{}
	query := `SELECT * FROM bid_financial_document WHERE bid_id=$1`
	err := s.db.GetContext(ctx, d, query, bidID)
	return d, err
}

func (s *Storage) GetCommonDocuments(ctx context.Context, bidID uuid.UUID) (*models.CommonDocuments, error) {
	d := &models.CommonDocuments{}
	query := `SELECT * FROM bid_common_documents WHERE bid_id=$1`
	err := s.db.GetContext(ctx, d, query, bidID)
	return d, err
}

func (s *Storage) UpdateBidStatus(ctx context.Context, bidID uuid.UUID, status models.BidStatus) error {
	query := `UPDATE bid SET status=$1 WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, status, bidID)
	return err
}

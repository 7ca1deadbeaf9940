package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"procurement/models"
)

func (s *Storage) CreateCarnival(ctx context.Context, c *models.Carnival) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
        INSERT INTO carnival (id, title, description, stall_details, bid_deadline, created_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at`
	return s.db.QueryRowContext(ctx, query,
		c.ID, c.Title, c.Description, c.StallDetails, c.BidDeadline, c.CreatedBy).
		Scan(&c.CreatedAt)
}

func (s *Storage) GetCarnival(ctx context.Context, id uuid.UUID) (*models.Carnival, error) {
	c := &models.Carnival{}
	query := `SELECT * FROM carnival WHERE id=$1`
	err := s.db.GetContext(ctx, c, query, id)
	return c, err
}

func (s *Storage) GetCarnivals(ctx context.Context, limit, offset int) ([]models.Carnival, error) {
	carnivals := []models.Carnival{}
	query := `SELECT * FROM carnival ORDER BY bid_deadline DESC LIMIT $1 OFFSET $2`
	err := s.db.SelectContext(ctx, &carnivals, query, limit, offset)
	return carnivals, err
}

func (s *Storage) CreateCarnivalBid(ctx context.Context, b *models.CarnivalBid) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	query := `
        INSERT INTO carnival_bid
            (id, carnival_id, supplier_id, bid_amount, proposal_description,
             technical_doc_path, financial_doc_path, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING submitted_at`
	err := s.db.QueryRowContext(ctx, query,
		b.ID, b.CarnivalID, b.SupplierID, b.BidAmount, b.ProposalDescription,
		b.TechnicalDocPath, b.FinancialDocPath, b.Status).
		Scan(&b.SubmittedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateBid
	}
	return err
}

func (s *Storage) GetCarnivalBid(ctx context.Context, id uuid.UUID) (*models.CarnivalBid, error) {
	b := &models.CarnivalBid{}
	query := `SELECT * FROM carnival_bid WHERE id=$1`
	err := s.db.GetContext(ctx, b, query, id)
	return b, err
}

// GetSupplierCarnivalBid returns (nil, nil) when the supplier has not bid on
// the carnival; absence is not an error for this lookup.
func (s *Storage) GetSupplierCarnivalBid(ctx context.Context, carnivalID, supplierID uuid.UUID) (*models.CarnivalBid, error) {
	b := &models.CarnivalBid{}
	query := `SELECT * FROM carnival_bid WHERE carnival_id=$1 AND supplier_id=$2`
	err := s.db.GetContext(ctx, b, query, carnivalID, supplierID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Storage) UpdateCarnivalBidStatus(ctx context.Context, bidID uuid.UUID, status models.CarnivalBidStatus) error {
	query := `UPDATE carnival_bid SET status=$1 WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, status, bidID)
	return err
}

package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"procurement/models"
)

// AwardTender performs the whole award transition in one transaction:
// insert the award row, mark the winner WON, mark every other bid LOST and
// flip the tender to AWARDED. The UNIQUE constraint on tender_award.tender_id
// is the double-award guard; a violation is reported as ErrAlreadyAwarded no
// matter how the two attempts interleave.
func (s *Storage) AwardTender(ctx context.Context, a *models.TenderAward) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
        INSERT INTO tender_award (id, tender_id, bid_id, supplier_id)
        VALUES ($1, $2, $3, $4)
        RETURNING award_date`
	err = tx.QueryRowContext(ctx, query, a.ID, a.TenderID, a.BidID, a.SupplierID).
		Scan(&a.AwardDate)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyAwarded
		}
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE bid SET status=$1 WHERE id=$2 AND tender_id=$3`,
		models.BidWon, a.BidID, a.TenderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBidNotInTender
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bid SET status=$1 WHERE tender_id=$2 AND id <> $3`,
		models.BidLost, a.TenderID, a.BidID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tender SET status=$1, updated_at=NOW() WHERE id=$2`,
		models.TenderAwarded, a.TenderID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Storage) GetAward(ctx context.Context, id uuid.UUID) (*models.TenderAward, error) {
	a := &models.TenderAward{}
	query := `SELECT * FROM tender_award WHERE id=$1`
	err := s.db.GetContext(ctx, a, query, id)
	return a, err
}

// GetAwardForTender returns (nil, nil) when the tender has not been awarded.
func (s *Storage) GetAwardForTender(ctx context.Context, tenderID uuid.UUID) (*models.TenderAward, error) {
	a := &models.TenderAward{}
	query := `SELECT * FROM tender_award WHERE tender_id=$1`
	err := s.db.GetContext(ctx, a, query, tenderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Storage) FinalizeAward(ctx context.Context, id uuid.UUID, loiFile, contractFile string) error {
	query := `UPDATE tender_award SET loi_file=$1, contract_file=$2 WHERE id=$3`
	_, err := s.db.ExecContext(ctx, query, loiFile, contractFile, id)
	return err
}

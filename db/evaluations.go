package db

import (
	"context"

	"github.com/google/uuid"

	"procurement/models"
)

// EnsureEvaluator provisions the evaluator record for an admin on first use.
// Idempotent: a second call for the same user is a no-op.
func (s *Storage) EnsureEvaluator(ctx context.Context, userID uuid.UUID) error {
	query := `
        INSERT INTO evaluator (user_id)
        VALUES ($1)
        ON CONFLICT (user_id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, userID)
	return err
}

// SaveEvaluation records the technical score and moves the bid to the
// qualified or rejected state in one transaction. One evaluation per
// (bid, evaluator); a re-score replaces the previous one.
func (s *Storage) SaveEvaluation(ctx context.Context, ev *models.TechnicalEvaluation, status models.BidStatus) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	query := `
        INSERT INTO technical_evaluation (id, bid_id, evaluator_id, score, remarks)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (bid_id, evaluator_id) DO UPDATE SET
            score = EXCLUDED.score,
            remarks = EXCLUDED.remarks,
            created_at = NOW()
        RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, query,
		ev.ID, ev.BidID, ev.EvaluatorID, ev.Score, ev.Remarks).
		Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE bid SET status=$1 WHERE id=$2`, status, ev.BidID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Storage) GetEvaluationsForBid(ctx context.Context, bidID uuid.UUID) ([]models.TechnicalEvaluation, error) {
	evs := []models.TechnicalEvaluation{}
	query := `SELECT * FROM technical_evaluation WHERE bid_id=$1 ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &evs, query, bidID)
	return evs, err
}

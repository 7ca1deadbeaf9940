package db

import (
	"context"

	"github.com/google/uuid"

	"procurement/models"
)

// CreateTender inserts the tender together with its timeline, eligibility
// criteria and document records in a single transaction, so a failed child
// insert cannot leave an orphaned tender row.
func (s *Storage) CreateTender(ctx context.Context, t *models.Tender, tl *models.Timeline, ec *models.EligibilityCriteria, docs []models.TenderDocument) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := `
        INSERT INTO tender
            (id, title, description, scope_of_work, budget_estimate,
             price_weightage, technical_weightage, emd_amount, bid_validity_days,
             status, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at, updated_at`
	err = tx.QueryRowContext(ctx, query,
		t.ID, t.Title, t.Description, t.ScopeOfWork, t.BudgetEstimate,
		t.PriceWeightage, t.TechnicalWeightage, t.EMDAmount, t.BidValidityDays,
		t.Status, t.CreatedBy).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}

	tl.TenderID = t.ID
	_, err = tx.ExecContext(ctx, `
        INSERT INTO tender_timeline
            (tender_id, submission_deadline, opening_date, clarification_deadline)
        VALUES ($1, $2, $3, $4)`,
		tl.TenderID, tl.SubmissionDeadline, tl.OpeningDate, tl.ClarificationDeadline)
	if err != nil {
		return err
	}

	ec.TenderID = t.ID
	_, err = tx.ExecContext(ctx, `
        INSERT INTO eligibility_criteria
            (tender_id, min_experience_years, min_turnover, required_certifications)
        VALUES ($1, $2, $3, $4)`,
		ec.TenderID, ec.MinExperienceYears, ec.MinTurnover, ec.RequiredCertifications)
	if err != nil {
		return err
	}

	for i := range docs {
		docs[i].ID = uuid.New()
		docs[i].TenderID = t.ID
		_, err = tx.ExecContext(ctx, `
            INSERT INTO tender_document (id, tender_id, file_name, file_path)
            VALUES ($1, $2, $3, $4)`,
			docs[i].ID, docs[i].TenderID, docs[i].FileName, docs[i].FilePath)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Storage) GetTender(ctx context.Context, id uuid.UUID) (*models.Tender, error) {
	t := &models.Tender{}
	query := `SELECT * FROM tender WHERE id=$1`
	err := s.db.GetContext(ctx, t, query, id)
	return t, err
}

func (s *Storage) GetTenders(ctx context.Context, limit, offset int) ([]models.Tender, error) {
	tenders := []models.Tender{}
	query := `SELECT * FROM tender ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	err := s.db.SelectContext(ctx, &tenders, query, limit, offset)
	return tenders, err
}

func (s *Storage) UpdateTender(ctx context.Context, t *models.Tender) error {
	query := `
        UPDATE tender
        SET title=$1, description=$2, scope_of_work=$3, budget_estimate=$4,
            price_weightage=$5, technical_weightage=$6, emd_amount=$7,
            bid_validity_days=$8, updated_at=NOW()
        WHERE id=$9`
	_, err := s.db.ExecContext(ctx, query,
		t.Title, t.Description, t.ScopeOfWork, t.BudgetEstimate,
		t.PriceWeightage, t.TechnicalWeightage, t.EMDAmount,
		t.BidValidityDays, t.ID)
	return err
}

func (s *Storage) DeleteTender(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM tender WHERE id=$1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *Storage) GetTimeline(ctx context.Context, tenderID uuid.UUID) (*models.Timeline, error) {
	tl := &models.Timeline{}
	query := `SELECT * FROM tender_timeline WHERE tender_id=$1`
	err := s.db.GetContext(ctx, tl, query, tenderID)
	return tl, err
}

func (s *Storage) UpsertTimeline(ctx context.Context, tl *models.Timeline) error {
	query := `
        INSERT INTO tender_timeline
            (tender_id, submission_deadline, opening_date, clarification_deadline)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (tender_id) DO UPDATE SET
            submission_deadline = EXCLUDED.submission_deadline,
            opening_date = EXCLUDED.opening_date,
            clarification_deadline = EXCLUDED.clarification_deadline`
	_, err := s.db.ExecContext(ctx, query,
		tl.TenderID, tl.SubmissionDeadline, tl.OpeningDate, tl.ClarificationDeadline)
	return err
}

func (s *Storage) GetEligibility(ctx context.Context, tenderID uuid.UUID) (*models.EligibilityCriteria, error) {
	ec := &models.EligibilityCriteria{}
	query := `SELECT * FROM eligibility_criteria WHERE tender_id=$1`
	err := s.db.GetContext(ctx, ec, query, tenderID)
	return ec, err
}

func (s *Storage) UpsertEligibility(ctx context.Context, ec *models.EligibilityCriteria) error {
	query := `
        INSERT INTO eligibility_criteria
            (tender_id, min_experience_years, min_turnover, required_certifications)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (tender_id) DO UPDATE SET
            min_experience_years = EXCLUDED.min_experience_years,
            min_turnover = EXCLUDED.min_turnover,
            required_certifications = EXCLUDED.required_certifications`
	_, err := s.db.ExecContext(ctx, query,
		ec.TenderID, ec.MinExperienceYears, ec.MinTurnover, ec.RequiredCertifications)
	return err
}

func (s *Storage) GetTenderDocuments(ctx context.Context, tenderID uuid.UUID) ([]models.TenderDocument, error) {
	docs := []models.TenderDocument{}
	query := `SELECT * FROM tender_document WHERE tender_id=$1 ORDER BY file_name`
	err := s.db.SelectContext(ctx, &docs, query, tenderID)
	return docs, err
}

func (s *Storage) AddTenderDocument(ctx context.Context, d *models.TenderDocument) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	query := `
        INSERT INTO tender_document (id, tender_id, file_name, file_path)
        VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, d.ID, d.TenderID, d.FileName, d.FilePath)
	return err
}

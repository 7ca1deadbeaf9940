package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tender statuses
type TenderStatus string

const (
	TenderPublished TenderStatus = "PUBLISHED"
	TenderAwarded   TenderStatus = "AWARDED"
)

// Bid statuses
type BidStatus string

const (
	BidSubmitted     BidStatus = "SUBMITTED"
	BidTechQualified BidStatus = "TECH_QUALIFIED"
	BidTechRejected  BidStatus = "TECH_REJECTED"
	BidWon           BidStatus = "WON"
	BidLost          BidStatus = "LOST"
)

// Carnival bid statuses
type CarnivalBidStatus string

const (
	CarnivalBidPending  CarnivalBidStatus = "PENDING"
	CarnivalBidApproved CarnivalBidStatus = "APPROVED"
	CarnivalBidRejected CarnivalBidStatus = "REJECTED"
)

func ValidCarnivalDecision(s CarnivalBidStatus) bool {
	switch s {
	case CarnivalBidApproved, CarnivalBidRejected:
		return true
	default:
		return false
	}
}

// User roles
const (
	RoleAdmin    = "admin"
	RoleSupplier = "supplier"
)

type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Role      string    `db:"role" json:"role"`
	APIToken  string    `db:"api_token" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Tender struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	Title              string          `db:"title" json:"title" validate:"required,max=200"`
	Description        string          `db:"description" json:"description"`
	ScopeOfWork        string          `db:"scope_of_work" json:"scopeOfWork"`
	BudgetEstimate     decimal.Decimal `db:"budget_estimate" json:"budgetEstimate"`
	PriceWeightage     int             `db:"price_weightage" json:"priceWeightage"`
	TechnicalWeightage int             `db:"technical_weightage" json:"technicalWeightage"`
	EMDAmount          decimal.Decimal `db:"emd_amount" json:"emdAmount"`
	BidValidityDays    int             `db:"bid_validity_days" json:"bidValidityDays"`
	Status             TenderStatus    `db:"status" json:"status"`
	CreatedBy          uuid.UUID       `db:"created_by" json:"createdBy"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"-"`
}

type Timeline struct {
	TenderID              uuid.UUID `db:"tender_id" json:"tenderId"`
	SubmissionDeadline    time.Time `db:"submission_deadline" json:"submissionDeadline"`
	OpeningDate           time.Time `db:"opening_date" json:"openingDate"`
	ClarificationDeadline time.Time `db:"clarification_deadline" json:"clarificationDeadline"`
}

type EligibilityCriteria struct {
	TenderID               uuid.UUID       `db:"tender_id" json:"tenderId"`
	MinExperienceYears     int             `db:"min_experience_years" json:"minExperienceYears"`
	MinTurnover            decimal.Decimal `db:"min_turnover" json:"minTurnover"`
	RequiredCertifications string          `db:"required_certifications" json:"requiredCertifications"`
}

type TenderDocument struct {
	ID       uuid.UUID `db:"id" json:"id"`
	TenderID uuid.UUID `db:"tender_id" json:"tenderId"`
	FileName string    `db:"file_name" json:"fileName"`
	FilePath string    `db:"file_path" json:"filePath"`
}

type Bid struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TenderID    uuid.UUID `db:"tender_id" json:"tenderId"`
	SupplierID  uuid.UUID `db:"supplier_id" json:"supplierId"`
	Status      BidStatus `db:"status" json:"status"`
	SubmittedAt time.Time `db:"submitted_at" json:"submittedAt"`
}

type TechnicalDocument struct {
	BidID    uuid.UUID `db:"bid_id" json:"bidId"`
	FilePath string    `db:"file_path" json:"filePath"`
}

// FinancialDocument is the sealed second envelope. The path is namespaced
// under the financial bucket; the bytes themselves are stored as-is.
type FinancialDocument struct {
	BidID       uuid.UUID       `db:"bid_id" json:"bidId"`
	FilePath    string          `db:"file_path" json:"filePath"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
}

type CommonDocuments struct {
	BidID           uuid.UUID `db:"bid_id" json:"bidId"`
	EMDProofFile    string    `db:"emd_proof_file" json:"emdProofFile"`
	WarrantyDetails string    `db:"warranty_details" json:"warrantyDetails"`
}

type Declarations struct {
	BidID         uuid.UUID `db:"bid_id" json:"bidId"`
	NoDeviation   bool      `db:"no_deviation" json:"noDeviation"`
	TermsAccepted bool      `db:"terms_accepted" json:"termsAccepted"`
}

type Evaluator struct {
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type TechnicalEvaluation struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BidID       uuid.UUID `db:"bid_id" json:"bidId"`
	EvaluatorID uuid.UUID `db:"evaluator_id" json:"evaluatorId"`
	Score       int       `db:"score" json:"score"`
	Remarks     string    `db:"remarks" json:"remarks"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

type TenderAward struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TenderID     uuid.UUID `db:"tender_id" json:"tenderId"`
	BidID        uuid.UUID `db:"bid_id" json:"bidId"`
	SupplierID   uuid.UUID `db:"supplier_id" json:"supplierId"`
	AwardDate    time.Time `db:"award_date" json:"awardDate"`
	LOIFile      string    `db:"loi_file" json:"loiFile"`
	ContractFile string    `db:"contract_file" json:"contractFile"`
}

type Carnival struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	StallDetails string    `db:"stall_details" json:"stallDetails"`
	BidDeadline  time.Time `db:"bid_deadline" json:"bidDeadline"`
	CreatedBy    uuid.UUID `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type CarnivalBid struct {
	ID                  uuid.UUID         `db:"id" json:"id"`
	CarnivalID          uuid.UUID         `db:"carnival_id" json:"carnivalId"`
	SupplierID          uuid.UUID         `db:"supplier_id" json:"supplierId"`
	BidAmount           decimal.Decimal   `db:"bid_amount" json:"bidAmount"`
	ProposalDescription string            `db:"proposal_description" json:"proposalDescription"`
	TechnicalDocPath    string            `db:"technical_doc_path" json:"technicalDocPath"`
	FinancialDocPath    string            `db:"financial_doc_path" json:"financialDocPath"`
	Status              CarnivalBidStatus `db:"status" json:"status"`
	SubmittedAt         time.Time         `db:"submitted_at" json:"submittedAt"`
}

package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"procurement/models"
)

// Sentinel errors surfaced by multi-statement operations.
var (
	ErrAlreadyAwarded = errors.New("tender already awarded")
	ErrBidNotInTender = errors.New("bid does not belong to tender")
	ErrDuplicateBid   = errors.New("bid already submitted")
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Users

func (s *Storage) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT * FROM users WHERE api_token=$1`
	err := s.db.GetContext(ctx, u, query, token)
	return u, err
}

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	query := `SELECT * FROM users WHERE id=$1`
	err := s.db.GetContext(ctx, u, query, id)
	return u, err
}

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	query := `
        INSERT INTO users (id, username, role, api_token)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return s.db.QueryRowContext(ctx, query, u.ID, u.Username, u.Role, u.APIToken).
		Scan(&u.CreatedAt)
}

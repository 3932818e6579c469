package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barangay-nit/eservices/internal/db"
	"github.com/barangay-nit/eservices/internal/domain"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.Username, &s.PasswordHash, &s.FullName, &s.Role, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) GetStaffByUsername(ctx context.Context, username string) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, full_name, role, active, created_at, updated_at
		FROM staff_users
		WHERE username = $1
	`, username)
	return scanStaff(row)
}

func (r *PgRepository) CreateStaff(ctx context.Context, s *Staff) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO staff_users (username, password_hash, full_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, username, password_hash, full_name, role, active, created_at, updated_at
	`, s.Username, s.PasswordHash, s.FullName, s.Role, s.Active, s.CreatedAt)

	created, err := scanStaff(row)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, domain.NewValidationError("username", "already taken")
		}
		return nil, fmt.Errorf("insert staff: %w", err)
	}
	return created, nil
}

var _ StaffRepository = (*PgRepository)(nil)

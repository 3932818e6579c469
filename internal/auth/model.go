package auth

import (
	"context"
	"time"
)

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

type Staff struct {
	ID           int64
	Username     string
	PasswordHash string
	FullName     string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is the verified identity of a staff member for one request. The
// zero value is an anonymous caller.
type Session struct {
	StaffID   int64     `json:"staffId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the session belongs to someone and has not expired.
func (s Session) Valid(now time.Time) bool {
	return s.StaffID != 0 && s.Username != "" && now.Before(s.ExpiresAt)
}

// StaffRepository reads staff accounts. It returns domain.ErrNotFound for an
// unknown username.
type StaffRepository interface {
	GetStaffByUsername(ctx context.Context, username string) (*Staff, error)
	CreateStaff(ctx context.Context, s *Staff) (*Staff, error)
}

type contextKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

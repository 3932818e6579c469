package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/barangay-nit/eservices/internal/domain"
)

const issuer = "barangay-eservices"

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	repo   StaffRepository
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewService(repo StaffRepository, secret string, ttl time.Duration) *Service {
	return &Service{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   DefaultCost,
		now:    time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetCost changes the bcrypt cost used by Register.
func (s *Service) SetCost(cost int) { s.cost = cost }

func (s *Service) Now() time.Time { return s.now() }

// Register creates a staff account. Used by the seed command.
func (s *Service) Register(ctx context.Context, username, password, fullName, role string) (*Staff, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewValidationError("username", "required")
	}
	if len(password) < 8 {
		return nil, domain.NewValidationError("password", "min=8")
	}
	if role == "" {
		role = RoleStaff
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.CreateStaff(ctx, &Staff{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         role,
		Active:       true,
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	})
}

// Login checks credentials and issues a signed session token. Every failure
// looks the same to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (string, Session, error) {
	staff, err := s.repo.GetStaffByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return "", Session{}, fmt.Errorf("load staff: %w", err)
		}
		return "", Session{}, domain.ErrUnauthorized
	}
	if !staff.Active || !VerifyPassword(password, staff.PasswordHash) {
		log.Printf("staff login rejected username=%q", username)
		return "", Session{}, domain.ErrUnauthorized
	}

	now := s.now()
	sess := Session{
		StaffID:   staff.ID,
		Username:  staff.Username,
		Role:      staff.Role,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}

	claims := Claims{
		Username: staff.Username,
		Role:     staff.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(staff.ID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	log.Printf("staff login username=%s", staff.Username)
	return token, sess, nil
}

// Verify turns a bearer token back into a Session.
func (s *Service) Verify(token string) (Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Session{}, domain.ErrUnauthorized
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Session{}, domain.ErrUnauthorized
	}

	return Session{
		StaffID:   id,
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

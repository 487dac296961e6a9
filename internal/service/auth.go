package service

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/staynest/backend/internal/db"
	"github.com/staynest/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrMisconfigured = errors.New("auth config invalid")
)

type userStore interface {
	CreateUser(ctx context.Context, email, name, passwordHash, role string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
	ListUsers(ctx context.Context) ([]model.User, error)
}

// ConsumedTokenStore enforces single use of reset tokens by jti.
type ConsumedTokenStore interface {
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

type resetMailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

type AuthService struct {
	repo     userStore
	tokens   *TokenService
	consumed ConsumedTokenStore
	mailer   resetMailer
}

func NewAuthService(repo userStore, tokens *TokenService, consumed ConsumedTokenStore, mailer resetMailer) *AuthService {
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		consumed: consumed,
		mailer:   mailer,
	}
}

// Register creates a credential record and logs the new user in.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*model.User, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if err := validatePassword(password); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user, err := s.repo.CreateUser(ctx, email, strings.TrimSpace(name), string(hash), model.RoleUser)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrConflict
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller; only a deactivated account is reported
// separately.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", ErrUnauthorized
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrUnauthorized
	}

	if !user.Active {
		return nil, "", ErrForbidden
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Me loads the user behind an authenticated identity.
func (s *AuthService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// ForgotPassword issues a reset token when the account exists and is
// active. The outcome is identical for the caller either way; account
// existence is never revealed.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil
		}
		return err
	}
	if !user.Active {
		return nil
	}

	token, err := s.tokens.IssueReset(user.ID, user.Email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		// Delivery failures must not change the response shape.
		log.Printf("[AUTH] failed to deliver reset mail for user id=%d: %v", user.ID, err)
	}
	return nil
}

// ResetPassword consumes a reset token and persists the new hash. The
// token is burned only after all other checks pass, so a rejected request
// does not spend it.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.VerifyReset(token)
	if err != nil {
		return ErrInvalidToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	userID, err := claims.UserID()
	if err != nil {
		return ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return err
	}
	if !user.Active {
		return ErrForbidden
	}

	firstUse, err := s.consumed.Consume(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	if err != nil {
		return err
	}
	if !firstUse {
		return ErrInvalidToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUserPassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	log.Printf("[AUTH] password reset completed for user id=%d (jti=%s)", user.ID, claims.ID)
	return nil
}

// Refresh re-issues a session token; an invalid or expired token cannot
// be refreshed.
func (s *AuthService) Refresh(token string) (string, error) {
	return s.tokens.Refresh(token)
}

// Tokens exposes the token service for the middleware layer.
func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

// ListUsers is the admin-only user listing.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidInput
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidInput
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vaanifill/internal/auth"
	apperrors "vaanifill/internal/errors"
	"vaanifill/internal/metrics"
	"vaanifill/internal/model"
	"vaanifill/internal/repository"
)

const bcryptCost = 10

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// timingHash returns a hash to compare against when the email is unknown, so
// a miss costs the same as a wrong password.
func timingHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("vaanifill-timing-equalizer"), bcryptCost)
	})
	return dummyHash
}

// NormalizeEmail lower-cases and trims an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.Account, error)
	Authenticate(ctx context.Context, email, password string) (*model.Account, error)
	Login(ctx context.Context, email, password string) (token string, expiresAt time.Time, account *model.Account, err error)
	ResolveAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

type authService struct {
	accountRepo repository.AccountRepository
	tokens      *auth.TokenService
	log         logrus.FieldLogger
}

// NewAuthService creates a new authentication service.
func NewAuthService(accountRepo repository.AccountRepository, tokens *auth.TokenService, log logrus.FieldLogger) AuthService {
	return &authService{
		accountRepo: accountRepo,
		tokens:      tokens,
		log:         log,
	}
}

// Register creates a new account with hashed password.
func (s *authService) Register(ctx context.Context, username, email, password string) (account *model.Account, err error) {
	defer func() { metrics.RecordAuth("signup", err == nil) }()

	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	var violations []apperrors.FieldViolation
	if username == "" {
		violations = append(violations, apperrors.FieldViolation{Field: "username", Reason: "this field is required"})
	}
	if email == "" {
		violations = append(violations, apperrors.FieldViolation{Field: "email", Reason: "this field is required"})
	}
	if password == "" {
		violations = append(violations, apperrors.FieldViolation{Field: "password", Reason: "this field is required"})
	}
	if len(violations) > 0 {
		return nil, apperrors.NewValidationError(violations...)
	}

	// Check if account already exists
	existing, err := s.accountRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Storage("check account existence", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	account = &model.Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		// lost a race with a concurrent signup for the same email
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, apperrors.Storage("create account", err)
	}

	s.log.WithField("account_id", account.ID.String()).Info("account registered")
	return account, nil
}

// Authenticate checks credentials. An unknown email and a wrong password
// yield the same ErrInvalidCredentials.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	account, err := s.accountRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(timingHash(), []byte(password))
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Storage("find account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return account, nil
}

// Login authenticates an account and issues a bearer token.
func (s *authService) Login(ctx context.Context, email, password string) (token string, expiresAt time.Time, account *model.Account, err error) {
	defer func() { metrics.RecordAuth("login", err == nil) }()

	account, err = s.Authenticate(ctx, email, password)
	if err != nil {
		return "", time.Time{}, nil, err
	}

	token, expiresAt, err = s.tokens.Issue(account.ID)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	return token, expiresAt, account, nil
}

// ResolveAccount loads the account a verified token refers to.
func (s *authService) ResolveAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Storage("find account", err)
	}
	return account, nil
}

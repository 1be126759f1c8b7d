package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/domain"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/repository"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

type TokenIssuer interface {
	Issue(subjectID string, roles []string) (string, time.Time, error)
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

type AuthService struct {
	users     repository.UserRepository
	tokens    TokenIssuer
	log       *logger.Logger
	hashCost  int
	dummyHash []byte
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, log *logger.Logger) *AuthService {
	return newAuthService(users, tokens, log, bcrypt.DefaultCost)
}

func newAuthService(users repository.UserRepository, tokens TokenIssuer, log *logger.Logger, cost int) *AuthService {
	// compared against when the email is unknown so both paths cost a bcrypt run
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &AuthService{
		users:     users,
		tokens:    tokens,
		log:       log.With("component", "auth_service"),
		hashCost:  cost,
		dummyHash: dummy,
	}
}

// Register creates a customer account. Emails are stored lowercased and trimmed.
// Addresses are optional.
func (s *AuthService) Register(ctx context.Context, name, email, password string, addresses ...domain.Address) (*domain.User, error) {
	return s.createUser(ctx, name, email, password, []string{domain.RoleCustomer}, addresses)
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, roles []string, addresses []domain.Address) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	if err := domain.ValidateAddresses(addresses); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        roles,
		Addresses:    addresses,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("user registered", "user_id", u.ID, "roles", roles)
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u.ID, u.Roles)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// EnsureAdmin creates the bootstrap admin account if the email is not taken yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := s.users.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err == nil {
		s.log.Info("admin user already present")
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	_, err = s.createUser(ctx, "Administrator", email, password, []string{domain.RoleAdmin, domain.RoleCustomer}, nil)
	if errors.Is(err, repository.ErrEmailTaken) {
		return nil
	}
	return err
}

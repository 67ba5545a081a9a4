package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tourdesk/internal/auth"
	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

const invalidCredentials = "Invalid email or password"

type AuthService struct {
	users     domain.UserRepository
	customers domain.CustomerRepository
	tokens    *auth.TokenService
	logger    *zerolog.Logger
}

func NewAuthService(users domain.UserRepository, customers domain.CustomerRepository, tokens *auth.TokenService, logger *zerolog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		customers: customers,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates a customer account. A customer record with the same email
// that has no account yet is linked instead of duplicated.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := checkStruct(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Email: req.Email, PasswordHash: hash, Role: models.RoleCustomer, IsActive: true}
	customer := &models.Customer{Name: req.Name, Email: req.Email, Phone: strings.TrimSpace(req.Phone)}
	if err := s.users.RegisterCustomer(ctx, user, customer); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, &domain.DuplicateError{Reason: "Email already registered."}
		}
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Int64("customer_id", customer.ID).Msg("customer registered")
	return s.issue(user, customer)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	if err := checkStruct(req); err != nil {
		return nil, domain.NewValidation("Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.UnauthorizedError{Reason: invalidCredentials}
	}
	if err != nil {
		return nil, err
	}
	if err := auth.CheckPassword(req.Password, user.PasswordHash); err != nil {
		return nil, &domain.UnauthorizedError{Reason: invalidCredentials}
	}
	if !user.IsActive {
		return nil, &domain.UnauthorizedError{Reason: "Account is disabled."}
	}

	customer, err := s.customerOf(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to record login")
	} else {
		user.LastLoginAt = &now
	}

	return s.issue(user, customer)
}

// Me returns the account behind p and its customer record, if any.
func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*models.User, *models.Customer, error) {
	if p.UserID == 0 {
		return nil, nil, domain.ErrUnauthorized
	}
	user, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, nil, err
	}
	customer, err := s.customerOf(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, customer, nil
}

// EnsureAdmin creates the admin account when no user has the email yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &models.User{Email: email, PasswordHash: hash, Role: models.RoleAdmin, IsActive: true}
	if err := s.users.CreateUser(ctx, admin); err != nil {
		return false, err
	}
	s.logger.Info().Int64("user_id", admin.ID).Msg("admin account created")
	return true, nil
}

func (s *AuthService) customerOf(ctx context.Context, user *models.User) (*models.Customer, error) {
	if user.IsAdmin() {
		return nil, nil
	}
	customer, err := s.customers.GetCustomerByUserID(ctx, user.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return customer, err
}

func (s *AuthService) issue(user *models.User, customer *models.Customer) (*models.AuthResult, error) {
	p := domain.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}
	if customer != nil {
		p.CustomerID = customer.ID
	}
	token, expires, err := s.tokens.Issue(p)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{Token: token, ExpiresAt: expires, User: user, Customer: customer}, nil
}

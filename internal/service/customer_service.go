package service

import (
	"context"
	"errors"
	"strings"

	"tourdesk/internal/domain"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

const duplicateCustomerEmail = "A customer with this email already exists."

type CustomerService struct {
	repo       domain.CustomerRepository
	statsCache domain.StatsCache
	logger     *zerolog.Logger
}

func NewCustomerService(repo domain.CustomerRepository, statsCache domain.StatsCache, logger *zerolog.Logger) *CustomerService {
	return &CustomerService{
		repo:       repo,
		statsCache: statsCache,
		logger:     logger,
	}
}

func (s *CustomerService) List(ctx context.Context, search string, limit, offset int) ([]*models.Customer, error) {
	page := normalizePage(models.BookingFilter{Limit: limit, Offset: offset})
	customers, err := s.repo.ListCustomers(ctx, search, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	if customers == nil {
		customers = []*models.Customer{}
	}
	return customers, nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (*models.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *CustomerService) Create(ctx context.Context, in models.CustomerInput) (*models.Customer, error) {
	in = normalizeCustomer(in)
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	customer := &models.Customer{Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, duplicateEmail(err)
	}
	s.logger.Info().Int64("customer_id", customer.ID).Msg("customer created")
	s.invalidateStats(ctx)
	return customer, nil
}

func (s *CustomerService) Update(ctx context.Context, id int64, in models.CustomerInput) (*models.Customer, error) {
	in = normalizeCustomer(in)
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.Name = in.Name
	customer.Email = in.Email
	customer.Phone = in.Phone
	customer.Address = in.Address

	if err := s.repo.UpdateCustomer(ctx, customer); err != nil {
		return nil, duplicateEmail(err)
	}
	s.logger.Info().Int64("customer_id", id).Msg("customer updated")
	return customer, nil
}

// Delete removes a customer that holds no active bookings.
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("customer_id", id).Msg("customer deleted")
	s.invalidateStats(ctx)
	return nil
}

func (s *CustomerService) invalidateStats(ctx context.Context) {
	if s.statsCache == nil {
		return
	}
	if err := s.statsCache.InvalidateStats(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}

func normalizeCustomer(in models.CustomerInput) models.CustomerInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	return in
}

func duplicateEmail(err error) error {
	if errors.Is(err, domain.ErrDuplicate) {
		return &domain.DuplicateError{Reason: duplicateCustomerEmail}
	}
	return err
}

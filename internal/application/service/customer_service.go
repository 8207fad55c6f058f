package service

import (
	"context"
	"strings"
	"sync"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/events"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerService resolves who each till's sale is attributed to. A till
// with no selection sells to the walk-in customer.
type CustomerService struct {
	mu          sync.RWMutex
	directory   repository.CustomerDirectory
	selected    map[string]*entity.Customer
	walkIn      *entity.Customer
	walkInLabel string
	bus         events.Publisher
	logger      *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(directory repository.CustomerDirectory, walkInLabel string, bus events.Publisher, logger *zap.Logger) *CustomerService {
	if bus == nil {
		bus = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		directory:   directory,
		selected:    make(map[string]*entity.Customer),
		walkInLabel: walkInLabel,
		bus:         bus,
		logger:      logger,
	}
}

// Current returns the till's customer, resolving the walk-in identity when
// nothing is selected.
func (s *CustomerService) Current(ctx context.Context, tillID string) *entity.Customer {
	s.mu.RLock()
	c, ok := s.selected[tillID]
	s.mu.RUnlock()
	if ok {
		out := *c
		return &out
	}
	return s.WalkIn(ctx)
}

// Peek is Current without any backend lookup.
func (s *CustomerService) Peek(tillID string) *entity.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.selected[tillID]; ok {
		out := *c
		return &out
	}
	if s.walkIn != nil {
		out := *s.walkIn
		return &out
	}
	return entity.NewWalkInCustomer(s.walkInLabel)
}

// WalkIn resolves the walk-in customer by matching the configured label
// against registered customers' name or id. When the backend has no such
// customer (or cannot be reached) a synthetic identity is used.
func (s *CustomerService) WalkIn(ctx context.Context) *entity.Customer {
	s.mu.RLock()
	cached := s.walkIn
	s.mu.RUnlock()
	if cached != nil {
		out := *cached
		return &out
	}

	customers, err := s.directory.ListCustomers(ctx, s.walkInLabel)
	if err != nil {
		s.logger.Warn("walk-in lookup failed, using synthetic customer", zap.Error(err))
		return entity.NewWalkInCustomer(s.walkInLabel)
	}

	resolved := entity.NewWalkInCustomer(s.walkInLabel)
	for i := range customers {
		if s.isWalkIn(&customers[i]) {
			resolved = &customers[i]
			break
		}
	}
	resolved.WalkIn = true
	resolved.Credit = decimal.Zero
	resolved.LoyaltyPoints = decimal.Zero

	s.mu.Lock()
	s.walkIn = resolved
	s.mu.Unlock()

	out := *resolved
	return &out
}

// Select attributes the till's sale to a registered customer.
func (s *CustomerService) Select(ctx context.Context, tillID, customerID string) (*entity.Customer, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, apperror.NewFieldError("customer_id", "Customer is required")
	}

	customer, err := s.directory.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}
	if s.isWalkIn(customer) {
		s.ResetToWalkIn(tillID)
		return s.WalkIn(ctx), nil
	}
	customer.WalkIn = false

	s.mu.Lock()
	s.selected[tillID] = customer
	s.mu.Unlock()

	out := *customer
	return &out, nil
}

// ResetToWalkIn drops the till's selection.
func (s *CustomerService) ResetToWalkIn(tillID string) {
	s.forget(tillID)
	s.bus.Publish(events.CustomerReset{TillID: tillID})
}

// Restore re-attributes a resumed sale. The registered customer is looked up
// again for fresh balances; if that fails the draft's snapshot is used with
// no credit or points.
func (s *CustomerService) Restore(ctx context.Context, tillID, customerID, name, mobile string) *entity.Customer {
	probe := &entity.Customer{ID: customerID, Name: name}
	if (customerID == "" && name == "") || s.isWalkIn(probe) {
		s.ResetToWalkIn(tillID)
		walkIn := s.WalkIn(ctx)
		if mobile != "" {
			walkIn.Mobile = mobile
		}
		return walkIn
	}

	var customer *entity.Customer
	if customerID != "" {
		c, err := s.directory.GetCustomer(ctx, customerID)
		if err != nil {
			s.logger.Warn("customer lookup failed, restoring snapshot",
				zap.String("customer_id", customerID), zap.Error(err))
		}
		customer = c
	}
	if customer == nil {
		customer = &entity.Customer{
			ID:            customerID,
			Name:          name,
			Credit:        decimal.Zero,
			LoyaltyPoints: decimal.Zero,
		}
	}
	customer.WalkIn = false
	if mobile != "" {
		customer.Mobile = mobile
	}

	s.mu.Lock()
	s.selected[tillID] = customer
	s.mu.Unlock()

	out := *customer
	return &out
}

// Search lists registered customers matching q.
func (s *CustomerService) Search(ctx context.Context, q string) ([]entity.Customer, error) {
	customers, err := s.directory.ListCustomers(ctx, strings.TrimSpace(q))
	if err != nil {
		return nil, err
	}
	for i := range customers {
		customers[i].WalkIn = s.isWalkIn(&customers[i])
	}
	return customers, nil
}

// Start subscribes the service to till lifecycle events and returns the
// teardown function.
func (s *CustomerService) Start(bus *events.Bus) func() {
	unsubscribe := bus.Subscribe(events.TopicTillClosed, func(e events.Event) {
		if closed, ok := e.(events.TillClosed); ok {
			s.forget(closed.TillID)
		}
	})
	return unsubscribe
}

func (s *CustomerService) forget(tillID string) {
	s.mu.Lock()
	delete(s.selected, tillID)
	s.mu.Unlock()
}

func (s *CustomerService) isWalkIn(c *entity.Customer) bool {
	label := strings.TrimSpace(s.walkInLabel)
	if label == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(c.Name), label) || strings.EqualFold(strings.TrimSpace(c.ID), label)
}

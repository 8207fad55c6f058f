package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/events"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/pkg/apperror"
	"go.uber.org/zap"
)

// TillService tracks which tills (shifts) are open on this agent and the
// warehouse each one sells from.
type TillService struct {
	mu      sync.RWMutex
	tills   map[string]*entity.TillSession
	bus     events.Publisher
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTillService creates a new till service
func NewTillService(bus events.Publisher, m *metrics.Metrics, logger *zap.Logger) *TillService {
	if bus == nil {
		bus = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TillService{
		tills:   make(map[string]*entity.TillSession),
		bus:     bus,
		metrics: m,
		logger:  logger,
	}
}

// Open starts a shift on tillID. Opening an already open till updates its
// warehouse and cashier.
func (s *TillService) Open(tillID, warehouse string, cashierID uuid.UUID) (*entity.TillSession, error) {
	tillID = strings.TrimSpace(tillID)
	warehouse = strings.TrimSpace(warehouse)

	var fieldErrors []apperror.FieldError
	if tillID == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "till_id", Message: "Till is required"})
	}
	if warehouse == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "warehouse", Message: "Warehouse is required"})
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	s.mu.Lock()
	till, ok := s.tills[tillID]
	if !ok {
		till = &entity.TillSession{TillID: tillID}
		s.tills[tillID] = till
	}
	wasOpen := till.Open
	now := time.Now()
	till.Warehouse = warehouse
	till.CashierID = cashierID
	if !wasOpen {
		till.Open = true
		till.OpenedAt = &now
		till.ClosedAt = nil
	}
	out := *till
	open := s.countOpenLocked()
	s.mu.Unlock()

	s.metrics.SetOpenTills(open)
	if !wasOpen {
		s.logger.Info("till opened", zap.String("till_id", tillID), zap.String("warehouse", warehouse))
		s.bus.Publish(events.TillOpened{TillID: tillID, Warehouse: warehouse})
	}
	return &out, nil
}

// Close ends the shift on tillID. Closing a closed till is a no-op.
func (s *TillService) Close(tillID string) (*entity.TillSession, error) {
	s.mu.Lock()
	till, ok := s.tills[tillID]
	if !ok {
		s.mu.Unlock()
		return nil, apperror.NewNotFoundError("Till")
	}
	wasOpen := till.Open
	if wasOpen {
		now := time.Now()
		till.Open = false
		till.ClosedAt = &now
	}
	out := *till
	open := s.countOpenLocked()
	s.mu.Unlock()

	s.metrics.SetOpenTills(open)
	if wasOpen {
		s.logger.Info("till closed", zap.String("till_id", tillID))
		s.bus.Publish(events.TillClosed{TillID: tillID})
	}
	return &out, nil
}

// Switch moves the cashier from one till to another, opening the target
// till if needed. The source till stays open.
func (s *TillService) Switch(from, to, warehouse string, cashierID uuid.UUID) (*entity.TillSession, error) {
	if strings.TrimSpace(warehouse) == "" {
		if current, err := s.Get(to); err == nil {
			warehouse = current.Warehouse
		}
	}
	till, err := s.Open(to, warehouse, cashierID)
	if err != nil {
		return nil, err
	}
	if from != till.TillID {
		s.bus.Publish(events.TillSwitched{From: from, To: till.TillID})
	}
	return till, nil
}

// Get returns a copy of the till's state.
func (s *TillService) Get(tillID string) (*entity.TillSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	till, ok := s.tills[tillID]
	if !ok {
		return nil, apperror.NewNotFoundError("Till")
	}
	out := *till
	return &out, nil
}

// Require returns the till if it is open, else a precondition error.
func (s *TillService) Require(tillID string) (*entity.TillSession, error) {
	till, err := s.Get(tillID)
	if err != nil || !till.Open {
		return nil, apperror.NewPreconditionError(apperror.ReasonNoOpenTill, "Open a till before posting a sale")
	}
	return till, nil
}

// Warehouse returns the till's warehouse, or "" when the till is unknown.
func (s *TillService) Warehouse(tillID string) string {
	till, err := s.Get(tillID)
	if err != nil {
		return ""
	}
	return till.Warehouse
}

// List returns all known tills ordered by id.
func (s *TillService) List() []entity.TillSession {
	s.mu.RLock()
	out := make([]entity.TillSession, 0, len(s.tills))
	for _, till := range s.tills {
		out = append(out, *till)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TillID < out[j].TillID })
	return out
}

func (s *TillService) countOpenLocked() int {
	n := 0
	for _, till := range s.tills {
		if till.Open {
			n++
		}
	}
	return n
}

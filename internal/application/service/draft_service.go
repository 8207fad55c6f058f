package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/events"
	"github.com/sangkips/investify-till/pkg/apperror"
	"go.uber.org/zap"
)

const draftRefreshTimeout = 15 * time.Second

// DraftService parks carts as remote drafts and brings them back. The local
// list per till is a cache; the backend is the source of truth.
type DraftService struct {
	mu     sync.Mutex
	drafts map[string][]entity.Draft
	timers map[string]*time.Timer
	closed bool

	gateway        repository.DraftGateway
	carts          *CartService
	customers      *CustomerService
	tills          *TillService
	bus            events.Publisher
	reconcileDelay time.Duration
	logger         *zap.Logger
}

// NewDraftService creates a new draft service
func NewDraftService(
	gateway repository.DraftGateway,
	carts *CartService,
	customers *CustomerService,
	tills *TillService,
	bus events.Publisher,
	reconcileDelay time.Duration,
	logger *zap.Logger,
) *DraftService {
	if bus == nil {
		bus = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		drafts:         make(map[string][]entity.Draft),
		timers:         make(map[string]*time.Timer),
		gateway:        gateway,
		carts:          carts,
		customers:      customers,
		tills:          tills,
		bus:            bus,
		reconcileDelay: reconcileDelay,
		logger:         logger,
	}
}

// QueueInput represents the queue draft input
type QueueInput struct {
	Mobile string
}

// QueueResult is a parked draft and the refreshed list.
type QueueResult struct {
	DraftID string         `json:"draft_id"`
	Drafts  []entity.Draft `json:"drafts"`
}

// ResumeResult describes a resumed draft. OpenSettlement is false when the
// draft was already paid elsewhere and is only loaded for viewing.
type ResumeResult struct {
	Draft          entity.Draft     `json:"draft"`
	Cart           *entity.Cart     `json:"cart"`
	Customer       *entity.Customer `json:"customer"`
	OpenSettlement bool             `json:"open_settlement"`
}

// Queue parks the till's cart as a draft. A cart resumed from a draft
// overwrites that draft instead of creating another.
func (s *DraftService) Queue(ctx context.Context, tillID string, input QueueInput) (*QueueResult, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, tillID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperror.NewFieldError("cart", "Add items to the cart before queueing it")
	}
	if cart.ViewOnly() {
		return nil, apperror.NewConflictError(apperror.ReasonDraftPaid, "A paid draft cannot be queued again")
	}

	customer := s.customers.Current(ctx, tillID)
	mobile := firstNonEmpty(input.Mobile, cart.Mobile, customer.Mobile)

	res, err := s.gateway.CreateDraft(ctx, &entity.DraftRequest{
		Items:      cart.SaleItems(),
		Warehouse:  s.tills.Warehouse(tillID),
		Customer:   customer.Name,
		CustomerID: customer.ID,
		Total:      cart.Total,
		Mobile:     mobile,
		SalesID:    cart.DraftID,
	})
	if err != nil {
		return nil, err
	}
	draftID := cart.DraftID
	if res != nil && res.SalesID != "" {
		draftID = res.SalesID
	}

	if _, err := s.carts.Clear(ctx, tillID); err != nil {
		return nil, err
	}
	s.customers.ResetToWalkIn(tillID)

	drafts, err := s.refresh(ctx, tillID)
	if err != nil {
		s.logger.Warn("draft list refresh failed after queue", zap.String("till_id", tillID), zap.Error(err))
		drafts = s.Pending(tillID)
	}

	s.logger.Info("cart queued as draft", zap.String("till_id", tillID), zap.String("draft_id", draftID))
	s.bus.Publish(events.DraftQueued{TillID: tillID, DraftID: draftID})

	return &QueueResult{DraftID: draftID, Drafts: drafts}, nil
}

// List fetches the till's pending drafts. Without a till or warehouse the
// list is empty.
func (s *DraftService) List(ctx context.Context, tillID string) ([]entity.Draft, error) {
	return s.refresh(ctx, tillID)
}

// Pending returns the cached list without calling the backend.
func (s *DraftService) Pending(tillID string) []entity.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Draft{}, s.drafts[tillID]...)
}

// Resume loads a draft into the till's cart and restores its customer.
func (s *DraftService) Resume(ctx context.Context, tillID, draftID string) (*ResumeResult, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}
	draft, ok := s.find(tillID, draftID)
	if !ok {
		if _, err := s.refresh(ctx, tillID); err != nil {
			return nil, err
		}
		if draft, ok = s.find(tillID, draftID); !ok {
			return nil, apperror.NewNotFoundError("Draft")
		}
	}

	paid := draft.IsPaid()
	cart, err := s.carts.LoadDraft(ctx, tillID, draft)
	if err != nil {
		return nil, err
	}
	customer := s.customers.Restore(ctx, tillID, draft.CustomerID, draft.Customer, draft.Mobile)

	s.bus.Publish(events.DraftItemsLoaded{
		TillID:  tillID,
		DraftID: draft.SalesID,
		Lines:   len(cart.Lines),
		Paid:    paid,
	})

	return &ResumeResult{
		Draft:          draft,
		Cart:           cart,
		Customer:       customer,
		OpenSettlement: !paid,
	}, nil
}

// NotifyCompleted drops the draft from the cached list at once and schedules
// a refetch to reconcile with the backend.
func (s *DraftService) NotifyCompleted(tillID, draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(tillID, draftID)
	if s.closed {
		return
	}
	if t, ok := s.timers[tillID]; ok {
		t.Stop()
	}
	s.timers[tillID] = time.AfterFunc(s.reconcileDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), draftRefreshTimeout)
		defer cancel()
		if _, err := s.refresh(ctx, tillID); err != nil {
			s.logger.Warn("draft reconcile failed", zap.String("till_id", tillID), zap.Error(err))
		}
	})
}

// Cancel deletes a draft on the backend. A cart holding that draft is
// cleared.
func (s *DraftService) Cancel(ctx context.Context, tillID, draftID string) error {
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return apperror.NewFieldError("draft_id", "Draft is required")
	}
	if err := s.gateway.DeleteDraft(ctx, draftID); err != nil {
		return err
	}

	s.mu.Lock()
	s.removeLocked(tillID, draftID)
	s.mu.Unlock()

	if tillID != "" {
		cart, err := s.carts.Get(ctx, tillID)
		if err == nil && cart.DraftID == draftID {
			if _, err := s.carts.Clear(ctx, tillID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Start subscribes to completion and till events and returns the teardown
// function.
func (s *DraftService) Start(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(events.TopicDraftCompleted, func(e events.Event) {
			if done, ok := e.(events.DraftCompleted); ok {
				s.NotifyCompleted(done.TillID, done.DraftID)
			}
		}),
		bus.Subscribe(events.TopicTillClosed, func(e events.Event) {
			if closed, ok := e.(events.TillClosed); ok {
				s.forget(closed.TillID)
			}
		}),
		bus.Subscribe(events.TopicTillSwitched, func(e events.Event) {
			if switched, ok := e.(events.TillSwitched); ok && switched.From != "" {
				s.forget(switched.From)
			}
		}),
	}
	return func() {
		for _, unsubscribe := range unsubs {
			unsubscribe()
		}
	}
}

// Close stops pending reconcile timers.
func (s *DraftService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for tillID, t := range s.timers {
		t.Stop()
		delete(s.timers, tillID)
	}
}

func (s *DraftService) refresh(ctx context.Context, tillID string) ([]entity.Draft, error) {
	till, err := s.tills.Get(tillID)
	if err != nil || !till.HasWarehouse() {
		return []entity.Draft{}, nil
	}
	drafts, err := s.gateway.ListDrafts(ctx, till.Warehouse, tillID)
	if err != nil {
		return nil, err
	}
	if drafts == nil {
		drafts = []entity.Draft{}
	}

	s.mu.Lock()
	s.drafts[tillID] = drafts
	s.mu.Unlock()

	return append([]entity.Draft{}, drafts...), nil
}

func (s *DraftService) find(tillID, draftID string) (entity.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.drafts[tillID] {
		if d.SalesID == draftID {
			return d, true
		}
	}
	return entity.Draft{}, false
}

func (s *DraftService) removeLocked(tillID, draftID string) {
	drafts := s.drafts[tillID]
	kept := drafts[:0:0]
	for _, d := range drafts {
		if d.SalesID != draftID {
			kept = append(kept, d)
		}
	}
	s.drafts[tillID] = kept
}

func (s *DraftService) forget(tillID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, tillID)
	if t, ok := s.timers[tillID]; ok {
		t.Stop()
		delete(s.timers, tillID)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

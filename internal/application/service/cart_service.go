package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"github.com/sangkips/investify-till/pkg/apperror"
	"github.com/sangkips/investify-till/pkg/money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService holds the in-progress cart of every till. Mutations are applied
// in memory and mirrored to the cart store in the background.
type CartService struct {
	mu          sync.Mutex
	carts       map[string]*entity.Cart
	held        map[string]bool
	repo        repository.CartRepository
	catalog     repository.ProductCatalog
	persister   *cartPersister
	defaultUnit string
	logger      *zap.Logger
}

// NewCartService creates a new cart service and starts its persister.
// Call Close to flush pending snapshots.
func NewCartService(
	repo repository.CartRepository,
	catalog repository.ProductCatalog,
	defaultUnit string,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		carts:       make(map[string]*entity.Cart),
		held:        make(map[string]bool),
		repo:        repo,
		catalog:     catalog,
		persister:   newCartPersister(repo, m, logger),
		defaultUnit: defaultUnit,
		logger:      logger,
	}
}

// UpdateLineInput represents a cashier edit of a cart line. Price and Unit
// are optional; an explicit price wins over the unit's tier price.
type UpdateLineInput struct {
	Quantity decimal.Decimal
	Price    *decimal.Decimal
	Unit     *string
}

// Get returns the till's cart, restoring it from the store on first access.
// An empty till id yields an empty cart.
func (s *CartService) Get(ctx context.Context, tillID string) (*entity.Cart, error) {
	if strings.TrimSpace(tillID) == "" {
		return entity.NewCart(""), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked(ctx, tillID).Clone(), nil
}

// AddLine adds one unit of product. An existing line is incremented instead
// of duplicated; an add beyond tracked stock is rejected and the cart is left
// unchanged.
func (s *CartService) AddLine(ctx context.Context, tillID string, product *entity.Product) (*entity.Cart, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}
	if product == nil || strings.TrimSpace(product.ItemCode) == "" {
		return nil, apperror.NewFieldError("product", "Select a product to add")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(ctx, tillID)
	if err := s.editableLocked(cart); err != nil {
		return nil, err
	}
	one := decimal.NewFromInt(1)

	if i := cart.Find(product.ItemCode); i >= 0 {
		line := &cart.Lines[i]
		qty := line.Quantity.Add(one)
		if line.ExceedsStock(qty) {
			return nil, stockError(line.Name, line.OnHand)
		}
		line.Quantity = qty
		line.Recalculate()
	} else {
		unit, price := product.DefaultPricing(s.defaultUnit)
		line := entity.CartLine{
			ItemCode:       product.ItemCode,
			Name:           product.Name,
			Quantity:       one,
			Unit:           unit,
			UnitPrice:      money.Round(price),
			TrackInventory: product.TrackInventory,
			OnHand:         product.OnHand,
			PriceTiers:     append([]entity.PriceTier(nil), product.PriceTiers...),
		}
		if line.ExceedsStock(one) {
			return nil, stockError(line.Name, line.OnHand)
		}
		line.Recalculate()
		cart.Lines = append(cart.Lines, line)
	}

	return s.commitLocked(cart), nil
}

// AddByCode resolves a scanned or typed code through the catalog and adds it.
func (s *CartService) AddByCode(ctx context.Context, tillID, code string) (*entity.Cart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.NewFieldError("code", "Scan or enter a product code")
	}
	product, err := s.catalog.GetProduct(ctx, code)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperror.NewNotFoundError("Product")
	}
	return s.AddLine(ctx, tillID, product)
}

// UpdateLine applies a quantity, price or unit edit. Invalid edits are
// rejected and the previous values retained.
func (s *CartService) UpdateLine(ctx context.Context, tillID, itemCode string, input UpdateLineInput) (*entity.Cart, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(ctx, tillID)
	if err := s.editableLocked(cart); err != nil {
		return nil, err
	}
	i := cart.Find(itemCode)
	if i < 0 {
		return nil, apperror.NewNotFoundError("Cart line")
	}
	line := cart.Lines[i]

	if input.Quantity.LessThan(money.MinQuantity) {
		return nil, apperror.NewFieldError("quantity", "Quantity must be at least "+money.MinQuantity.String())
	}
	if line.ExceedsStock(input.Quantity) {
		return nil, stockError(line.Name, line.OnHand)
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, apperror.NewFieldError("price", "Price cannot be negative")
	}

	line.Quantity = input.Quantity
	if input.Unit != nil {
		unit := strings.TrimSpace(*input.Unit)
		if unit != "" && unit != line.Unit {
			line.Unit = unit
			if input.Price == nil {
				if price, ok := line.PriceForUnit(unit); ok {
					line.UnitPrice = money.Round(price)
				}
			}
		}
	}
	if input.Price != nil {
		line.UnitPrice = money.Round(*input.Price)
	}
	line.Recalculate()
	cart.Lines[i] = line

	return s.commitLocked(cart), nil
}

// RemoveLine drops a line from the cart.
func (s *CartService) RemoveLine(ctx context.Context, tillID, itemCode string) (*entity.Cart, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(ctx, tillID)
	if err := s.editableLocked(cart); err != nil {
		return nil, err
	}
	i := cart.Find(itemCode)
	if i < 0 {
		return nil, apperror.NewNotFoundError("Cart line")
	}
	cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)

	return s.commitLocked(cart), nil
}

// Clear empties the cart and purges the stored snapshot. A cart showing a
// paid draft may be cleared to start a new sale.
func (s *CartService) Clear(ctx context.Context, tillID string) (*entity.Cart, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held[tillID] {
		return nil, heldError()
	}
	return s.clearLocked(ctx, tillID), nil
}

// Hold freezes the cart while a sale built from it is being posted. It fails
// when the cart is already held or shows a paid draft.
func (s *CartService) Hold(ctx context.Context, tillID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(s.cartLocked(ctx, tillID)); err != nil {
		return err
	}
	s.held[tillID] = true
	return nil
}

// Release lifts a Hold. With sold set the posted lines are cleared in the
// same step so no edit can land between the two.
func (s *CartService) Release(ctx context.Context, tillID string, sold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.held, tillID)
	if sold {
		s.clearLocked(ctx, tillID)
	}
}

// LoadDraft replaces the cart with a parked sale's items. Each item is
// looked up again so stock caps and unit prices apply to later edits; the
// draft's own snapshot is used when the catalog cannot answer. A paid draft
// is loaded for viewing only.
func (s *CartService) LoadDraft(ctx context.Context, tillID string, draft entity.Draft) (*entity.Cart, error) {
	if err := requireTill(tillID); err != nil {
		return nil, err
	}
	for _, item := range draft.Items {
		if item.Qty.LessThan(money.MinQuantity) {
			return nil, apperror.NewFieldError("items", fmt.Sprintf("%s has an invalid quantity %s", item.ItemCode, item.Qty.String()))
		}
	}

	lines := make([]entity.CartLine, 0, len(draft.Items))
	for _, item := range draft.Items {
		if i := findLine(lines, item.ItemCode); i >= 0 {
			lines[i].Quantity = lines[i].Quantity.Add(item.Qty)
			continue
		}
		lines = append(lines, s.draftLine(ctx, item))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held[tillID] {
		return nil, heldError()
	}
	cart := s.cartLocked(ctx, tillID)
	cart.Reset()
	for i := range lines {
		lines[i].Recalculate()
	}
	cart.Lines = lines
	if draft.IsPaid() {
		cart.PaidDraftID = draft.SalesID
	} else {
		cart.DraftID = draft.SalesID
	}
	cart.Mobile = strings.TrimSpace(draft.Mobile)

	return s.commitLocked(cart), nil
}

func (s *CartService) draftLine(ctx context.Context, item entity.SaleItem) entity.CartLine {
	line := entity.CartLine{
		ItemCode:  item.ItemCode,
		Name:      item.ItemName,
		Quantity:  item.Qty,
		Unit:      item.UOM,
		UnitPrice: item.Rate,
	}
	product, err := s.catalog.GetProduct(ctx, item.ItemCode)
	if err != nil || product == nil {
		s.logger.Debug("draft item not in catalog, keeping snapshot",
			zap.String("item_code", item.ItemCode),
			zap.Error(err),
		)
	} else {
		line.TrackInventory = product.TrackInventory
		line.OnHand = product.OnHand
		line.PriceTiers = append([]entity.PriceTier(nil), product.PriceTiers...)
		if line.Name == "" {
			line.Name = product.Name
		}
		if line.Unit == "" {
			line.Unit, _ = product.DefaultPricing(s.defaultUnit)
		}
	}
	if line.Unit == "" {
		line.Unit = s.defaultUnit
	}
	return line
}

// Close stops the persister after flushing pending snapshots.
func (s *CartService) Close() {
	s.persister.close()
}

func (s *CartService) cartLocked(ctx context.Context, tillID string) *entity.Cart {
	if cart, ok := s.carts[tillID]; ok {
		return cart
	}
	cart, err := s.repo.Load(ctx, tillID)
	if err != nil {
		s.logger.Warn("failed to restore cart", zap.String("till_id", tillID), zap.Error(err))
	}
	if cart == nil {
		cart = entity.NewCart(tillID)
	}
	cart.TillID = tillID
	if cart.Lines == nil {
		cart.Lines = []entity.CartLine{}
	}
	cart.Recalculate()
	s.carts[tillID] = cart
	return cart
}

func (s *CartService) editableLocked(cart *entity.Cart) error {
	if s.held[cart.TillID] {
		return heldError()
	}
	if cart.ViewOnly() {
		return apperror.NewConflictError(apperror.ReasonDraftPaid,
			"Draft "+cart.PaidDraftID+" is already paid. Clear the cart to start a new sale")
	}
	return nil
}

func (s *CartService) clearLocked(ctx context.Context, tillID string) *entity.Cart {
	cart := s.cartLocked(ctx, tillID)
	cart.Reset()
	s.persister.enqueue(tillID, nil)
	return cart.Clone()
}

func (s *CartService) commitLocked(cart *entity.Cart) *entity.Cart {
	cart.Recalculate()
	s.persister.enqueue(cart.TillID, cart)
	return cart.Clone()
}

func requireTill(tillID string) error {
	if strings.TrimSpace(tillID) == "" {
		return apperror.NewFieldError("till_id", "Till is required")
	}
	return nil
}

func findLine(lines []entity.CartLine, itemCode string) int {
	for i := range lines {
		if lines[i].ItemCode == itemCode {
			return i
		}
	}
	return -1
}

func heldError() error {
	return apperror.NewConflictError(apperror.ReasonInFlight, "A payment is being posted from this cart")
}

func stockError(name string, onHand decimal.Decimal) error {
	return apperror.NewFieldError("quantity", fmt.Sprintf("Only %s of %s in stock", onHand.String(), name))
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sangkips/investify-till/internal/domain/entity"
	domainRepo "github.com/sangkips/investify-till/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a cart snapshot store on the journal database,
// for deployments that keep everything in one SQL store.
func NewCartRepository(db *gorm.DB) domainRepo.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Save(ctx context.Context, cart *entity.Cart) error {
	if cart == nil || cart.TillID == "" {
		return fmt.Errorf("cart snapshot requires a till id")
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	snapshot := entity.CartSnapshot{TillID: cart.TillID, Payload: payload}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "till_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&snapshot).Error
}

func (r *cartRepository) Load(ctx context.Context, tillID string) (*entity.Cart, error) {
	var snapshot entity.CartSnapshot
	err := r.db.WithContext(ctx).First(&snapshot, "till_id = ?", tillID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cart entity.Cart
	if err := json.Unmarshal(snapshot.Payload, &cart); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return &cart, nil
}

func (r *cartRepository) Delete(ctx context.Context, tillID string) error {
	return r.db.WithContext(ctx).Delete(&entity.CartSnapshot{}, "till_id = ?", tillID).Error
}

// Close is a no-op; the database handle is owned by the caller.
func (r *cartRepository) Close() error {
	return nil
}

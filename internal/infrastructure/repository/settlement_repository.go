package repository

import (
	"context"
	"errors"

	"github.com/sangkips/investify-till/internal/domain/entity"
	domainRepo "github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/pkg/pagination"
	"gorm.io/gorm"
)

type settlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository creates a new settlement journal repository
func NewSettlementRepository(db *gorm.DB) domainRepo.SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) Create(ctx context.Context, record *entity.SettlementRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *settlementRepository) GetBySalesID(ctx context.Context, salesID string) (*entity.SettlementRecord, error) {
	var record entity.SettlementRecord
	err := r.db.WithContext(ctx).
		Where("sales_id = ?", salesID).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &record, err
}

func (r *settlementRepository) List(ctx context.Context, params *domainRepo.SettlementFilterParams) ([]entity.SettlementRecord, int64, error) {
	var records []entity.SettlementRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SettlementRecord{}).Scopes(TillScope(params.TillID))

	if params.Kind != nil {
		query = query.Where("kind = ?", *params.Kind)
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.StartDate != nil {
		query = query.Where("sales_date >= ?", *params.StartDate)
	}

	if params.EndDate != nil {
		query = query.Where("sales_date <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order("created_at DESC").
		Find(&records).Error

	return records, total, err
}

// ListWithCursor returns journal rows using cursor-based pagination. One row
// beyond the limit is fetched so the caller can tell whether more exist.
func (r *settlementRepository) ListWithCursor(ctx context.Context, params *domainRepo.SettlementCursorFilterParams) ([]entity.SettlementRecord, error) {
	var records []entity.SettlementRecord

	if params.Cursor == nil {
		params.Cursor = pagination.DefaultCursorParams()
	}
	params.Cursor.Validate()
	query := r.db.WithContext(ctx).Model(&entity.SettlementRecord{}).Scopes(TillScope(params.TillID))

	if params.Kind != nil {
		query = query.Where("kind = ?", *params.Kind)
	}

	cursor, err := params.Cursor.DecodeCursor()
	if err != nil {
		return nil, err
	}

	if cursor != nil {
		if params.Cursor.Direction == pagination.CursorDirectionNext {
			query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
		} else {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	err = query.Limit(params.Cursor.Limit + 1).
		Order("created_at ASC, id ASC").
		Find(&records).Error

	return records, err
}

package repository

import (
	"context"
	"time"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/enum"
	"github.com/sangkips/investify-till/pkg/pagination"
)

// SettlementRepository defines the interface for the local settlement journal
type SettlementRepository interface {
	Create(ctx context.Context, record *entity.SettlementRecord) error
	GetBySalesID(ctx context.Context, salesID string) (*entity.SettlementRecord, error)
	List(ctx context.Context, params *SettlementFilterParams) ([]entity.SettlementRecord, int64, error)
	ListWithCursor(ctx context.Context, params *SettlementCursorFilterParams) ([]entity.SettlementRecord, error)
}

// SettlementFilterParams contains filtering parameters for journal queries
type SettlementFilterParams struct {
	Pagination *pagination.PaginationParams
	TillID     string
	Kind       *enum.SubmissionKind
	Status     *enum.SettlementStatus
	StartDate  *time.Time
	EndDate    *time.Time
}

// SettlementCursorFilterParams contains cursor-based filtering for journal queries
type SettlementCursorFilterParams struct {
	Cursor *pagination.CursorParams
	TillID string
	Kind   *enum.SubmissionKind
}

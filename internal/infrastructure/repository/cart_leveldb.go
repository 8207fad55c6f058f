package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sangkips/investify-till/internal/domain/entity"
	domainRepo "github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/syndtr/goleveldb/leveldb"
)

const cartKeyPrefix = "cart:"

// LevelDBCartRepository keeps one JSON cart snapshot per till in an embedded
// LevelDB database.
type LevelDBCartRepository struct {
	db *leveldb.DB
}

var _ domainRepo.CartRepository = (*LevelDBCartRepository)(nil)

// NewLevelDBCartRepository opens (or creates) the snapshot store at path.
func NewLevelDBCartRepository(path string) (*LevelDBCartRepository, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("leveldb cart store path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve leveldb cart path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb cart store: %w", err)
	}
	return &LevelDBCartRepository{db: db}, nil
}

// NewLevelDBCartRepositoryFromDB wraps an already opened database.
func NewLevelDBCartRepositoryFromDB(db *leveldb.DB) *LevelDBCartRepository {
	return &LevelDBCartRepository{db: db}
}

func cartKey(tillID string) []byte {
	return []byte(cartKeyPrefix + tillID)
}

func (r *LevelDBCartRepository) Save(ctx context.Context, cart *entity.Cart) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("leveldb cart store not configured")
	}
	if cart == nil || cart.TillID == "" {
		return fmt.Errorf("cart snapshot requires a till id")
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if err := r.db.Put(cartKey(cart.TillID), payload, nil); err != nil {
		return fmt.Errorf("write cart snapshot: %w", err)
	}
	return nil
}

func (r *LevelDBCartRepository) Load(ctx context.Context, tillID string) (*entity.Cart, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("leveldb cart store not configured")
	}
	payload, err := r.db.Get(cartKey(tillID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cart snapshot: %w", err)
	}
	var cart entity.Cart
	if err := json.Unmarshal(payload, &cart); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return &cart, nil
}

func (r *LevelDBCartRepository) Delete(ctx context.Context, tillID string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("leveldb cart store not configured")
	}
	if err := r.db.Delete(cartKey(tillID), nil); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying LevelDB resources.
func (r *LevelDBCartRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

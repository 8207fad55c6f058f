package service

import (
	"context"
	"sync"
	"time"

	"github.com/sangkips/investify-till/internal/domain/entity"
	"github.com/sangkips/investify-till/internal/domain/repository"
	"github.com/sangkips/investify-till/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const cartWriteTimeout = 5 * time.Second

// cartPersister writes cart snapshots off the request path. Only the latest
// snapshot per till is kept; a nil snapshot deletes the stored copy.
type cartPersister struct {
	repo    repository.CartRepository
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*entity.Cart

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newCartPersister(repo repository.CartRepository, m *metrics.Metrics, logger *zap.Logger) *cartPersister {
	p := &cartPersister{
		repo:    repo,
		metrics: m,
		logger:  logger,
		pending: make(map[string]*entity.Cart),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *cartPersister) enqueue(tillID string, cart *entity.Cart) {
	var snapshot *entity.Cart
	if cart != nil {
		snapshot = cart.Clone()
	}

	p.mu.Lock()
	p.pending[tillID] = snapshot
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *cartPersister) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.done:
			p.flush()
			return
		}
	}
}

func (p *cartPersister) flush() {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[string]*entity.Cart)
	p.mu.Unlock()

	for tillID, cart := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), cartWriteTimeout)
		var err error
		if cart == nil {
			err = p.repo.Delete(ctx, tillID)
		} else {
			err = p.repo.Save(ctx, cart)
		}
		cancel()

		if err != nil {
			p.metrics.CartPersistFailed()
			p.logger.Warn("failed to persist cart snapshot", zap.String("till_id", tillID), zap.Error(err))
		}
	}
}

// close drains pending writes and waits for the worker to exit.
func (p *cartPersister) close() {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.stopped
}

package service

import (
	"context"
	"fmt"
	"log"
	"time"
)

type expiredCartDeleter interface {
	DeleteExpiredCartItems(ctx context.Context, now time.Time) (int64, error)
}

// CartSweeper removes expired holds in the background. Reads already
// filter on expires_at, so the sweeper is storage hygiene, not a
// correctness requirement.
type CartSweeper struct {
	repo     expiredCartDeleter
	interval time.Duration
}

func NewCartSweeper(repo expiredCartDeleter, interval string) (*CartSweeper, error) {
	every, err := time.ParseDuration(interval)
	if err != nil || every <= 0 {
		return nil, fmt.Errorf("%w: invalid CART_SWEEP_INTERVAL", ErrMisconfigured)
	}
	return &CartSweeper{repo: repo, interval: every}, nil
}

func (w *CartSweeper) Start(ctx context.Context) {
	go func() {
		w.sweep(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
	log.Printf("[CLEANUP] cart sweeper started (interval=%s)", w.interval)
}

func (w *CartSweeper) sweep(ctx context.Context) {
	deleted, err := w.repo.DeleteExpiredCartItems(ctx, time.Now())
	if err != nil {
		log.Printf("[CLEANUP] failed to delete expired cart items: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[CLEANUP] removed %d expired cart items", deleted)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/staynest/backend/internal/db"
	"github.com/staynest/backend/internal/model"
)

// Fee percentages applied to the nightly subtotal.
const (
	cleaningFeeRate = 0.10
	serviceFeeRate  = 0.05
	taxRate         = 0.10
)

var ErrCartLimit = errors.New("cart limit reached")

type cartStore interface {
	InsertCartItem(ctx context.Context, item *model.CartItem) (*model.CartItem, error)
	GetCartItem(ctx context.Context, userID, itemID int64, now time.Time) (*model.CartItem, error)
	ListCartItems(ctx context.Context, userID int64, now time.Time) ([]model.CartItem, error)
	CountCartItems(ctx context.Context, userID int64, now time.Time) (int, error)
	HasOverlappingHold(ctx context.Context, userID int64, propertyID string, checkIn, checkOut time.Time, excludeID int64, now time.Time) (bool, error)
	UpdateCartItem(ctx context.Context, item *model.CartItem) error
	DeleteCartItem(ctx context.Context, userID, itemID int64) (bool, error)
	ClearCart(ctx context.Context, userID int64) (int64, error)
}

// CartItemPatch carries the updatable fields of a hold. Derived price
// fields are never part of a patch; they are recomputed from scratch.
type CartItemPatch struct {
	CheckIn       *time.Time
	CheckOut      *time.Time
	Guests        *int
	PricePerNight *float64
}

type CartService struct {
	repo     cartStore
	holdTTL  time.Duration
	maxItems int
}

func NewCartService(repo cartStore, holdTTL, maxItems string) (*CartService, error) {
	ttl, err := time.ParseDuration(holdTTL)
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("%w: invalid CART_HOLD_TTL", ErrMisconfigured)
	}
	limit, err := strconv.Atoi(maxItems)
	if err != nil || limit <= 0 {
		return nil, fmt.Errorf("%w: invalid CART_MAX_ITEMS", ErrMisconfigured)
	}
	return &CartService{repo: repo, holdTTL: ttl, maxItems: limit}, nil
}

// Add stages a reservation hold. It fails when the user already holds an
// overlapping hold for the property or has reached the item limit.
func (s *CartService) Add(ctx context.Context, userID int64, propertyID string, checkIn, checkOut time.Time, guests int, pricePerNight float64) (*model.CartItem, error) {
	if propertyID == "" || guests < 1 || pricePerNight <= 0 {
		return nil, ErrInvalidInput
	}
	nights := nightsBetween(checkIn, checkOut)
	if nights < 1 {
		return nil, ErrInvalidInput
	}

	now := time.Now()

	count, err := s.repo.CountCartItems(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if count >= s.maxItems {
		return nil, ErrCartLimit
	}

	overlap, err := s.repo.HasOverlappingHold(ctx, userID, propertyID, checkIn, checkOut, 0, now)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrConflict
	}

	item := &model.CartItem{
		UserID:        userID,
		PropertyID:    propertyID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        guests,
		PricePerNight: pricePerNight,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.holdTTL),
	}
	computePricing(item)

	return s.repo.InsertCartItem(ctx, item)
}

// Update applies a patch and recomputes every derived price field.
func (s *CartService) Update(ctx context.Context, userID, itemID int64, patch CartItemPatch) (*model.CartItem, error) {
	now := time.Now()

	item, err := s.repo.GetCartItem(ctx, userID, itemID, now)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if patch.CheckIn != nil {
		item.CheckIn = *patch.CheckIn
	}
	if patch.CheckOut != nil {
		item.CheckOut = *patch.CheckOut
	}
	if patch.Guests != nil {
		item.Guests = *patch.Guests
	}
	if patch.PricePerNight != nil {
		item.PricePerNight = *patch.PricePerNight
	}

	if item.Guests < 1 || item.PricePerNight <= 0 || nightsBetween(item.CheckIn, item.CheckOut) < 1 {
		return nil, ErrInvalidInput
	}

	overlap, err := s.repo.HasOverlappingHold(ctx, userID, item.PropertyID, item.CheckIn, item.CheckOut, item.ID, now)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrConflict
	}

	computePricing(item)

	if err := s.repo.UpdateCartItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) Remove(ctx context.Context, userID, itemID int64) error {
	removed, err := s.repo.DeleteCartItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID int64) (int64, error) {
	return s.repo.ClearCart(ctx, userID)
}

func (s *CartService) List(ctx context.Context, userID int64) ([]model.CartItem, error) {
	return s.repo.ListCartItems(ctx, userID, time.Now())
}

// Summarize aggregates fees from the current unexpired items; no cached
// aggregate is ever trusted.
func (s *CartService) Summarize(ctx context.Context, userID int64) (*model.CartSummaryResponse, error) {
	items, err := s.repo.ListCartItems(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}

	summary := &model.CartSummaryResponse{ItemCount: len(items)}
	for _, item := range items {
		summary.Subtotal = round2(summary.Subtotal + item.Subtotal)
		summary.Taxes = round2(summary.Taxes + item.Taxes)
		summary.ServiceFee = round2(summary.ServiceFee + item.ServiceFee)
		summary.Total = round2(summary.Total + item.TotalPrice)
	}
	return summary, nil
}

// computePricing derives the full price breakdown from nights, rate and
// the fixed fee percentages.
func computePricing(item *model.CartItem) {
	item.Nights = nightsBetween(item.CheckIn, item.CheckOut)
	item.Subtotal = round2(float64(item.Nights) * item.PricePerNight)
	item.CleaningFee = round2(item.Subtotal * cleaningFeeRate)
	item.ServiceFee = round2(item.Subtotal * serviceFeeRate)
	item.Taxes = round2(item.Subtotal * taxRate)
	item.TotalPrice = round2(item.Subtotal + item.CleaningFee + item.ServiceFee + item.Taxes)
}

func nightsBetween(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/staynest/backend/internal/model"
)

type fakeCartRepo struct {
	items  map[int64]*model.CartItem
	nextID int64
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: map[int64]*model.CartItem{}}
}

func (f *fakeCartRepo) InsertCartItem(ctx context.Context, item *model.CartItem) (*model.CartItem, error) {
	f.nextID++
	item.ID = f.nextID
	stored := *item
	f.items[item.ID] = &stored
	return item, nil
}

func (f *fakeCartRepo) GetCartItem(ctx context.Context, userID, itemID int64, now time.Time) (*model.CartItem, error) {
	item, ok := f.items[itemID]
	if !ok || item.UserID != userID || !item.ExpiresAt.After(now) {
		return nil, pgx.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (f *fakeCartRepo) ListCartItems(ctx context.Context, userID int64, now time.Time) ([]model.CartItem, error) {
	var items []model.CartItem
	for _, item := range f.items {
		if item.UserID == userID && item.ExpiresAt.After(now) {
			items = append(items, *item)
		}
	}
	if items == nil {
		items = []model.CartItem{}
	}
	return items, nil
}

func (f *fakeCartRepo) CountCartItems(ctx context.Context, userID int64, now time.Time) (int, error) {
	count := 0
	for _, item := range f.items {
		if item.UserID == userID && item.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeCartRepo) HasOverlappingHold(ctx context.Context, userID int64, propertyID string, checkIn, checkOut time.Time, excludeID int64, now time.Time) (bool, error) {
	for _, item := range f.items {
		if item.UserID != userID || item.PropertyID != propertyID || item.ID == excludeID {
			continue
		}
		if !item.ExpiresAt.After(now) {
			continue
		}
		if item.CheckIn.Before(checkOut) && item.CheckOut.After(checkIn) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCartRepo) UpdateCartItem(ctx context.Context, item *model.CartItem) error {
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeCartRepo) DeleteCartItem(ctx context.Context, userID, itemID int64) (bool, error) {
	item, ok := f.items[itemID]
	if !ok || item.UserID != userID {
		return false, nil
	}
	delete(f.items, itemID)
	return true, nil
}

func (f *fakeCartRepo) ClearCart(ctx context.Context, userID int64) (int64, error) {
	var removed int64
	for id, item := range f.items {
		if item.UserID == userID {
			delete(f.items, id)
			removed++
		}
	}
	return removed, nil
}

func newTestCartService(t *testing.T, maxItems string) (*CartService, *fakeCartRepo) {
	t.Helper()
	repo := newFakeCartRepo()
	svc, err := NewCartService(repo, "24h", maxItems)
	if err != nil {
		t.Fatalf("NewCartService error: %v", err)
	}
	return svc, repo
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddComputesPriceBreakdown(t *testing.T) {
	svc, _ := newTestCartService(t, "20")

	item, err := svc.Add(context.Background(), 1, "prop-1", date("2025-01-01"), date("2025-01-03"), 2, 100)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if item.Nights != 2 {
		t.Fatalf("expected 2 nights, got %d", item.Nights)
	}
	if item.Subtotal != 200 || item.CleaningFee != 20 || item.ServiceFee != 10 || item.Taxes != 20 {
		t.Fatalf("unexpected breakdown: %+v", item)
	}
	if item.TotalPrice != 250 {
		t.Fatalf("expected total 250, got %v", item.TotalPrice)
	}
	if got := item.ExpiresAt.Sub(item.CreatedAt); got != 24*time.Hour {
		t.Fatalf("expected 24h expiry window, got %s", got)
	}
}

func TestAddValidation(t *testing.T) {
	svc, _ := newTestCartService(t, "20")
	ctx := context.Background()

	cases := []struct {
		name     string
		property string
		in, out  time.Time
		guests   int
		rate     float64
	}{
		{"empty property", "", date("2025-01-01"), date("2025-01-03"), 2, 100},
		{"reversed dates", "p", date("2025-01-03"), date("2025-01-01"), 2, 100},
		{"same day", "p", date("2025-01-01"), date("2025-01-01"), 2, 100},
		{"zero guests", "p", date("2025-01-01"), date("2025-01-03"), 0, 100},
		{"zero rate", "p", date("2025-01-01"), date("2025-01-03"), 2, 0},
	}
	for _, tc := range cases {
		if _, err := svc.Add(ctx, 1, tc.property, tc.in, tc.out, tc.guests, tc.rate); err != ErrInvalidInput {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestAddRejectsOverlappingHold(t *testing.T) {
	svc, _ := newTestCartService(t, "20")
	ctx := context.Background()

	if _, err := svc.Add(ctx, 1, "prop-1", date("2025-01-01"), date("2025-01-05"), 2, 100); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if _, err := svc.Add(ctx, 1, "prop-1", date("2025-01-04"), date("2025-01-06"), 2, 100); err != ErrConflict {
		t.Fatalf("expected ErrConflict for overlap, got %v", err)
	}

	// Adjacent ranges do not overlap: check-out day equals check-in day.
	if _, err := svc.Add(ctx, 1, "prop-1", date("2025-01-05"), date("2025-01-07"), 2, 100); err != nil {
		t.Fatalf("adjacent range rejected: %v", err)
	}

	// A different user holding the same dates is fine.
	if _, err := svc.Add(ctx, 2, "prop-1", date("2025-01-01"), date("2025-01-05"), 2, 100); err != nil {
		t.Fatalf("other user's hold rejected: %v", err)
	}
}

func TestAddEnforcesItemLimit(t *testing.T) {
	svc, _ := newTestCartService(t, "1")
	ctx := context.Background()

	if _, err := svc.Add(ctx, 1, "prop-1", date("2025-01-01"), date("2025-01-03"), 2, 100); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if _, err := svc.Add(ctx, 1, "prop-2", date("2025-01-01"), date("2025-01-03"), 2, 100); err != ErrCartLimit {
		t.Fatalf("expected ErrCartLimit, got %v", err)
	}
}

func TestUpdateRecomputesAllDerivedFields(t *testing.T) {
	svc, _ := newTestCartService(t, "20")
	ctx := context.Background()

	item, err := svc.Add(ctx, 1, "prop-1", date("2025-01-01"), date("2025-01-03"), 2, 100)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	newOut := "2025-01-05"
	outDate := date(newOut)
	updated, err := svc.Update(ctx, 1, item.ID, CartItemPatch{CheckOut: &outDate})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	if updated.Nights != 4 {
		t.Fatalf("expected 4 nights, got %d", updated.Nights)
	}
	if updated.Subtotal != 400 || updated.CleaningFee != 40 || updated.ServiceFee != 20 || updated.Taxes != 40 {
		t.Fatalf("derived fields not recomputed: %+v", updated)
	}
	if updated.TotalPrice != 500 {
		t.Fatalf("expected total 500, got %v", updated.TotalPrice)
	}
}

func TestUpdateMissingItem(t *testing.T) {
	svc, _ := newTestCartService(t, "20")

	if _, err := svc.Update(context.Background(), 1, 99, CartItemPatch{}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiredItemsAreInvisible(t *testing.T) {
	svc, repo := newTestCartService(t, "20")
	ctx := context.Background()

	item, err := svc.Add(ctx, 1, "prop-1", date("2025-01-01"), date("2025-01-03"), 2, 100)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	repo.items[item.ID].ExpiresAt = time.Now().Add(-time.Minute)

	items, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expired item still visible: %+v", items)
	}
	if _, err := svc.Update(ctx, 1, item.ID, CartItemPatch{}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for expired item, got %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	svc, _ := newTestCartService(t, "20")
	ctx := context.Background()

	item, err := svc.Add(ctx, 1, "prop-1", date("2025-01-01"), date("2025-01-03"), 2, 100)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}

	if err := svc.Remove(ctx, 1, item.ID); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := svc.Remove(ctx, 1, item.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}

	if _, err := svc.Add(ctx, 1, "prop-2", date("2025-02-01"), date("2025-02-03"), 2, 50); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	removed, err := svc.Clear(ctx, 1)
	if err != nil || removed != 1 {
		t.Fatalf("Clear: removed=%d err=%v", removed, err)
	}
}

func TestSummarizeAggregatesCurrentItems(t *testing.T) {
	svc, _ := newTestCartService(t, "20")
	ctx := context.Background()

	if _, err := svc.Add(ctx, 1, "prop-1", date("2025-01-01"), date("2025-01-03"), 2, 100); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if _, err := svc.Add(ctx, 1, "prop-2", date("2025-01-01"), date("2025-01-02"), 1, 80); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	summary, err := svc.Summarize(ctx, 1)
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}

	if summary.ItemCount != 2 {
		t.Fatalf("expected 2 items, got %d", summary.ItemCount)
	}
	if summary.Subtotal != 280 {
		t.Fatalf("expected subtotal 280, got %v", summary.Subtotal)
	}
	if summary.Taxes != 28 || summary.ServiceFee != 14 {
		t.Fatalf("unexpected fees: %+v", summary)
	}
	if summary.Total != 350 {
		t.Fatalf("expected total 350, got %v", summary.Total)
	}
}

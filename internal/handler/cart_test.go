package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/staynest/backend/internal/model"
	"github.com/staynest/backend/internal/service"
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
	items := []model.CartItem{}
	for _, item := range f.items {
		if item.UserID == userID && item.ExpiresAt.After(now) {
			items = append(items, *item)
		}
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
		if item.ExpiresAt.After(now) && item.CheckIn.Before(checkOut) && item.CheckOut.After(checkIn) {
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

type cartTestEnv struct {
	router *gin.Engine
	token  string
}

func newCartTestEnv(t *testing.T) *cartTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := newTestTokens(t, "24h")
	svc, err := service.NewCartService(newFakeCartRepo(), "24h", "20")
	if err != nil {
		t.Fatalf("NewCartService error: %v", err)
	}
	h := NewCartHandler(svc)

	r := gin.New()
	cart := r.Group("/api/v1/cart", AuthMiddleware(tokens))
	cart.GET("", h.List)
	cart.POST("", h.Add)
	cart.DELETE("", h.Clear)
	cart.GET("/summary", h.Summary)
	cart.PUT("/:itemId", h.Update)
	cart.DELETE("/:itemId", h.Remove)

	token, err := tokens.Issue(1, "cart@example.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	return &cartTestEnv{router: r, token: token}
}

func (e *cartTestEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func TestCartRequiresAuthentication(t *testing.T) {
	env := newCartTestEnv(t)

	if w := env.do(http.MethodGet, "/api/v1/cart", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCartAddReturnsBreakdown(t *testing.T) {
	env := newCartTestEnv(t)

	body := `{"propertyId":"prop-1","checkIn":"2025-01-01","checkOut":"2025-01-03","guests":2,"pricePerNight":100}`
	w := env.do(http.MethodPost, "/api/v1/cart", body, env.token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var item model.CartItemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if item.Nights != 2 || item.Subtotal != 200 || item.CleaningFee != 20 || item.ServiceFee != 10 || item.Taxes != 20 || item.TotalPrice != 250 {
		t.Fatalf("unexpected breakdown: %+v", item)
	}
}

func TestCartAddValidatesDates(t *testing.T) {
	env := newCartTestEnv(t)

	body := `{"propertyId":"prop-1","checkIn":"01/01/2025","checkOut":"2025-01-03","guests":2,"pricePerNight":100}`
	if w := env.do(http.MethodPost, "/api/v1/cart", body, env.token); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCartOverlapReturnsConflict(t *testing.T) {
	env := newCartTestEnv(t)

	body := `{"propertyId":"prop-1","checkIn":"2025-01-01","checkOut":"2025-01-05","guests":2,"pricePerNight":100}`
	if w := env.do(http.MethodPost, "/api/v1/cart", body, env.token); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	overlap := `{"propertyId":"prop-1","checkIn":"2025-01-04","checkOut":"2025-01-06","guests":2,"pricePerNight":100}`
	if w := env.do(http.MethodPost, "/api/v1/cart", overlap, env.token); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestCartSummary(t *testing.T) {
	env := newCartTestEnv(t)

	add := `{"propertyId":"prop-1","checkIn":"2025-01-01","checkOut":"2025-01-03","guests":2,"pricePerNight":100}`
	if w := env.do(http.MethodPost, "/api/v1/cart", add, env.token); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	w := env.do(http.MethodGet, "/api/v1/cart/summary", "", env.token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var summary model.CartSummaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if summary.ItemCount != 1 || summary.Subtotal != 200 || summary.Total != 250 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestCartRemoveMissingItem(t *testing.T) {
	env := newCartTestEnv(t)

	if w := env.do(http.MethodDelete, "/api/v1/cart/99", "", env.token); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

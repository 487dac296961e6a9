package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/staynest/backend/internal/model"
	"github.com/staynest/backend/internal/service"
)

const dateLayout = "2006-01-02"

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

// Add godoc
// @Summary Stage a reservation hold
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.AddCartItemRequest true "Property, dates, guests and nightly rate"
// @Success 201 {object} model.CartItemResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/cart [post]
func (h *CartHandler) Add(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req model.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	checkIn, err := time.Parse(dateLayout, req.CheckIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkIn must be YYYY-MM-DD"})
		return
	}
	checkOut, err := time.Parse(dateLayout, req.CheckOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkOut must be YYYY-MM-DD"})
		return
	}

	item, err := h.svc.Add(c.Request.Context(), user.ID, req.PropertyID, checkIn, checkOut, req.Guests, req.PricePerNight)
	if err != nil {
		writeCartError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item.ToResponse())
}

// List godoc
// @Summary List unexpired holds
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.CartListResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/cart [get]
func (h *CartHandler) List(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := h.svc.List(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	resp := model.CartListResponse{Items: make([]model.CartItemResponse, 0, len(items))}
	for i := range items {
		resp.Items = append(resp.Items, items[i].ToResponse())
	}
	resp.Count = len(resp.Items)
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Update a hold; all derived prices are recomputed
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Cart item ID"
// @Param request body model.UpdateCartItemRequest true "Fields to change"
// @Success 200 {object} model.CartItemResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /api/v1/cart/{itemId} [put]
func (h *CartHandler) Update(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req model.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	patch := service.CartItemPatch{
		Guests:        req.Guests,
		PricePerNight: req.PricePerNight,
	}
	if req.CheckIn != nil {
		checkIn, err := time.Parse(dateLayout, *req.CheckIn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "checkIn must be YYYY-MM-DD"})
			return
		}
		patch.CheckIn = &checkIn
	}
	if req.CheckOut != nil {
		checkOut, err := time.Parse(dateLayout, *req.CheckOut)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "checkOut must be YYYY-MM-DD"})
			return
		}
		patch.CheckOut = &checkOut
	}

	item, err := h.svc.Update(c.Request.Context(), user.ID, itemID, patch)
	if err != nil {
		writeCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, item.ToResponse())
}

// Remove godoc
// @Summary Remove a hold
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Cart item ID"
// @Success 200 {object} model.StatusResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/cart/{itemId} [delete]
func (h *CartHandler) Remove(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if err := h.svc.Remove(c.Request.Context(), user.ID, itemID); err != nil {
		writeCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{Status: "removed"})
}

// Clear godoc
// @Summary Remove every hold in the cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.StatusResponse
// @Router /api/v1/cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if _, err := h.svc.Clear(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{Status: "cleared"})
}

// Summary godoc
// @Summary Aggregate totals over unexpired holds
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.CartSummaryResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/cart/summary [get]
func (h *CartHandler) Summary(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	summary, err := h.svc.Summarize(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func writeCartError(c *gin.Context, err error) {
	switch err {
	case service.ErrInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case service.ErrCartLimit:
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart limit reached"})
	case service.ErrConflict:
		c.JSON(http.StatusConflict, gin.H{"error": "overlapping hold for this property"})
	case service.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

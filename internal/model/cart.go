package model

import "time"

// CartItem is a staged reservation hold. Price fields are always derived
// from nights, nightly rate and the fixed fee percentages; they are never
// written independently of their inputs.
type CartItem struct {
	ID            int64
	UserID        int64
	PropertyID    string
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int
	PricePerNight float64
	Nights        int
	Subtotal      float64
	CleaningFee   float64
	ServiceFee    float64
	Taxes         float64
	TotalPrice    float64
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

type AddCartItemRequest struct {
	PropertyID    string  `json:"propertyId"`
	CheckIn       string  `json:"checkIn"`
	CheckOut      string  `json:"checkOut"`
	Guests        int     `json:"guests"`
	PricePerNight float64 `json:"pricePerNight"`
}

type UpdateCartItemRequest struct {
	CheckIn       *string  `json:"checkIn"`
	CheckOut      *string  `json:"checkOut"`
	Guests        *int     `json:"guests"`
	PricePerNight *float64 `json:"pricePerNight"`
}

type CartItemResponse struct {
	ID            int64     `json:"id"`
	PropertyID    string    `json:"propertyId"`
	CheckIn       string    `json:"checkIn"`
	CheckOut      string    `json:"checkOut"`
	Guests        int       `json:"guests"`
	PricePerNight float64   `json:"pricePerNight"`
	Nights        int       `json:"nights"`
	Subtotal      float64   `json:"subtotal"`
	CleaningFee   float64   `json:"cleaningFee"`
	ServiceFee    float64   `json:"serviceFee"`
	Taxes         float64   `json:"taxes"`
	TotalPrice    float64   `json:"totalPrice"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

type CartListResponse struct {
	Items []CartItemResponse `json:"items"`
	Count int                `json:"count"`
}

type CartSummaryResponse struct {
	ItemCount  int     `json:"itemCount"`
	Subtotal   float64 `json:"subtotal"`
	Taxes      float64 `json:"taxes"`
	ServiceFee float64 `json:"serviceFee"`
	Total      float64 `json:"total"`
}

const cartDateLayout = "2006-01-02"

func (i *CartItem) ToResponse() CartItemResponse {
	return CartItemResponse{
		ID:            i.ID,
		PropertyID:    i.PropertyID,
		CheckIn:       i.CheckIn.Format(cartDateLayout),
		CheckOut:      i.CheckOut.Format(cartDateLayout),
		Guests:        i.Guests,
		PricePerNight: i.PricePerNight,
		Nights:        i.Nights,
		Subtotal:      i.Subtotal,
		CleaningFee:   i.CleaningFee,
		ServiceFee:    i.ServiceFee,
		Taxes:         i.Taxes,
		TotalPrice:    i.TotalPrice,
		ExpiresAt:     i.ExpiresAt,
	}
}

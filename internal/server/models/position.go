package models

import "time"

type Position struct {
	ID               int64
	UserID           int64
	MetalType        Metal
	ProductType      string
	Description      *string
	Quantity         float64
	WeightPerUnit    float64
	WeightUnit       WeightUnit
	WeightGrams      float64
	PurchasePriceEUR float64
	PurchaseDate     time.Time
	// DiscountPercent overrides the user's default discount for the metal
	// when set.
	DiscountPercent *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

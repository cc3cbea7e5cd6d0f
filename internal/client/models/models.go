// Package models holds the server resources as the terminal client sees
// them.
package models

import "time"

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Tier         string    `json:"tier"`
	IsAdmin      bool      `json:"is_admin"`
	HasPassword  bool      `json:"has_password"`
	GoogleLinked bool      `json:"google_linked"`
	CreatedAt    time.Time `json:"created_at"`
}

type TierInfo struct {
	Tier               string `json:"tier"`
	PositionsCount     int    `json:"positions_count"`
	PositionsLimit     int    `json:"positions_limit"`
	PositionsRemaining int    `json:"positions_remaining"`
	IsAtLimit          bool   `json:"is_at_limit"`
}

type APIKey struct {
	ID         int64      `json:"id"`
	Name       *string    `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

// CreatedKey carries the full key. The server never returns it again.
type CreatedKey struct {
	APIKey
	Key string `json:"key"`
}

type Position struct {
	ID                  int64    `json:"id"`
	MetalType           string   `json:"metal_type"`
	ProductType         string   `json:"product_type"`
	Description         *string  `json:"description"`
	Quantity            float64  `json:"quantity"`
	WeightPerUnit       float64  `json:"weight_per_unit"`
	WeightUnit          string   `json:"weight_unit"`
	WeightGrams         float64  `json:"weight_grams"`
	PurchasePriceEUR    float64  `json:"purchase_price_eur"`
	PurchaseDate        string   `json:"purchase_date"`
	DiscountPercent     *float64 `json:"discount_percent"`
	CurrentValueEUR     float64  `json:"current_value_eur"`
	ProfitLossEUR       float64  `json:"profit_loss_eur"`
	ProfitLossPercent   float64  `json:"profit_loss_percent"`
	SpotPricePerGramEUR float64  `json:"spot_price_per_gram_eur"`
}

type MetalSummary struct {
	PurchaseValueEUR  float64 `json:"purchase_value_eur"`
	CurrentValueEUR   float64 `json:"current_value_eur"`
	WeightGrams       float64 `json:"weight_grams"`
	PositionsCount    int     `json:"positions_count"`
	ProfitLossEUR     float64 `json:"profit_loss_eur"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`
}

type Summary struct {
	TotalPurchaseValueEUR  float64                 `json:"total_purchase_value_eur"`
	TotalCurrentValueEUR   float64                 `json:"total_current_value_eur"`
	TotalProfitLossEUR     float64                 `json:"total_profit_loss_eur"`
	TotalProfitLossPercent float64                 `json:"total_profit_loss_percent"`
	PositionsCount         int                     `json:"positions_count"`
	ByMetal                map[string]MetalSummary `json:"by_metal"`
	PriceSource            string                  `json:"price_source"`
	LastUpdated            time.Time               `json:"last_updated"`
}

type Price struct {
	MetalType   string  `json:"metal_type"`
	PerGramEUR  float64 `json:"spot_per_gram_eur"`
	PerOunceEUR float64 `json:"spot_per_oz_eur"`
}

type Quote struct {
	Prices    map[string]Price `json:"prices"`
	Source    string           `json:"source"`
	Timestamp time.Time        `json:"timestamp"`
}

// Metals lists metal types in display order.
var Metals = []string{"gold", "silver", "platinum", "palladium"}

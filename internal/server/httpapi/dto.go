package httpapi

import (
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/services"
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(pair *services.TokenPair, now time.Time) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(pair.ExpiresAt.Sub(now).Round(time.Second).Seconds()),
	}
}

type userResponse struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	Tier         models.Tier `json:"tier"`
	IsAdmin      bool        `json:"is_admin"`
	HasPassword  bool        `json:"has_password"`
	GoogleLinked bool        `json:"google_linked"`
	CreatedAt    time.Time   `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Tier:         u.Tier,
		IsAdmin:      u.IsAdmin,
		HasPassword:  u.HasPassword(),
		GoogleLinked: u.GoogleID != nil,
		CreatedAt:    u.CreatedAt,
	}
}

type tierInfoResponse struct {
	Tier               models.Tier `json:"tier"`
	PositionsCount     int         `json:"positions_count"`
	PositionsLimit     int         `json:"positions_limit"`
	PositionsRemaining int         `json:"positions_remaining"`
	IsAtLimit          bool        `json:"is_at_limit"`
}

type createKeyRequest struct {
	Name *string `json:"name" validate:"omitempty,max=100"`
}

type apiKeyResponse struct {
	ID         int64      `json:"id"`
	Name       *string    `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

// createdKeyResponse is the only response that ever carries the plaintext.
type createdKeyResponse struct {
	apiKeyResponse
	Key string `json:"key"`
}

func newAPIKeyResponse(k *models.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
	}
}

type positionRequest struct {
	MetalType        string   `json:"metal_type" validate:"required,oneof=gold silver platinum palladium"`
	ProductType      string   `json:"product_type" validate:"required,max=50"`
	Description      *string  `json:"description" validate:"omitempty,max=500"`
	Quantity         float64  `json:"quantity" validate:"gt=0"`
	WeightPerUnit    float64  `json:"weight_per_unit" validate:"gt=0"`
	WeightUnit       string   `json:"weight_unit" validate:"required,oneof=g oz kg"`
	PurchasePriceEUR float64  `json:"purchase_price_eur" validate:"gte=0"`
	PurchaseDate     string   `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	DiscountPercent  *float64 `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
}

func (r *positionRequest) toInput() *services.PositionInput {
	date, _ := time.Parse(time.DateOnly, r.PurchaseDate)
	return &services.PositionInput{
		MetalType:        models.Metal(r.MetalType),
		ProductType:      r.ProductType,
		Description:      r.Description,
		Quantity:         r.Quantity,
		WeightPerUnit:    r.WeightPerUnit,
		WeightUnit:       models.WeightUnit(r.WeightUnit),
		PurchasePriceEUR: r.PurchasePriceEUR,
		PurchaseDate:     date,
		DiscountPercent:  r.DiscountPercent,
	}
}

type positionResponse struct {
	ID                     int64             `json:"id"`
	MetalType              models.Metal      `json:"metal_type"`
	ProductType            string            `json:"product_type"`
	Description            *string           `json:"description"`
	Quantity               float64           `json:"quantity"`
	WeightPerUnit          float64           `json:"weight_per_unit"`
	WeightUnit             models.WeightUnit `json:"weight_unit"`
	WeightGrams            float64           `json:"weight_grams"`
	PurchasePriceEUR       float64           `json:"purchase_price_eur"`
	PurchaseDate           string            `json:"purchase_date"`
	DiscountPercent        *float64          `json:"discount_percent"`
	DiscountPercentApplied float64           `json:"discount_percent_applied"`
	SpotPricePerGramEUR    float64           `json:"spot_price_per_gram_eur"`
	SpotValueEUR           float64           `json:"spot_value_eur"`
	CurrentValueEUR        float64           `json:"current_value_eur"`
	ProfitLossEUR          float64           `json:"profit_loss_eur"`
	ProfitLossPercent      float64           `json:"profit_loss_percent"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

func newPositionResponse(p *services.ValuedPosition) positionResponse {
	return positionResponse{
		ID:                     p.ID,
		MetalType:              p.MetalType,
		ProductType:            p.ProductType,
		Description:            p.Description,
		Quantity:               p.Quantity,
		WeightPerUnit:          p.WeightPerUnit,
		WeightUnit:             p.WeightUnit,
		WeightGrams:            p.WeightGrams,
		PurchasePriceEUR:       p.PurchasePriceEUR,
		PurchaseDate:           p.PurchaseDate.Format(time.DateOnly),
		DiscountPercent:        p.DiscountPercent,
		DiscountPercentApplied: p.DiscountApplied,
		SpotPricePerGramEUR:    p.SpotPerGramEUR,
		SpotValueEUR:           p.SpotValueEUR,
		CurrentValueEUR:        p.CurrentValueEUR,
		ProfitLossEUR:          p.ProfitLossEUR,
		ProfitLossPercent:      p.ProfitLossPercent,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

type settingsBody struct {
	DefaultDiscountGold      float64 `json:"default_discount_gold" validate:"gte=0,lte=100"`
	DefaultDiscountSilver    float64 `json:"default_discount_silver" validate:"gte=0,lte=100"`
	DefaultDiscountPlatinum  float64 `json:"default_discount_platinum" validate:"gte=0,lte=100"`
	DefaultDiscountPalladium float64 `json:"default_discount_palladium" validate:"gte=0,lte=100"`
}

func newSettingsBody(s *models.UserSettings) settingsBody {
	return settingsBody{
		DefaultDiscountGold:      s.DefaultDiscountGold,
		DefaultDiscountSilver:    s.DefaultDiscountSilver,
		DefaultDiscountPlatinum:  s.DefaultDiscountPlatinum,
		DefaultDiscountPalladium: s.DefaultDiscountPalladium,
	}
}

type metalSummaryResponse struct {
	PurchaseValueEUR  float64 `json:"purchase_value_eur"`
	CurrentValueEUR   float64 `json:"current_value_eur"`
	WeightGrams       float64 `json:"weight_grams"`
	PositionsCount    int     `json:"positions_count"`
	ProfitLossEUR     float64 `json:"profit_loss_eur"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`
}

type summaryResponse struct {
	TotalPurchaseValueEUR  float64                                     `json:"total_purchase_value_eur"`
	TotalCurrentValueEUR   float64                                     `json:"total_current_value_eur"`
	TotalProfitLossEUR     float64                                     `json:"total_profit_loss_eur"`
	TotalProfitLossPercent float64                                     `json:"total_profit_loss_percent"`
	PositionsCount         int                                         `json:"positions_count"`
	ByMetal                map[models.Metal]metalSummaryResponse       `json:"by_metal"`
	PriceSource            string                                      `json:"price_source"`
	LastUpdated            time.Time                                   `json:"last_updated"`
}

func newSummaryResponse(s *services.Summary) summaryResponse {
	byMetal := make(map[models.Metal]metalSummaryResponse, len(s.ByMetal))
	for m, ms := range s.ByMetal {
		byMetal[m] = metalSummaryResponse(*ms)
	}
	return summaryResponse{
		TotalPurchaseValueEUR:  s.TotalPurchaseValueEUR,
		TotalCurrentValueEUR:   s.TotalCurrentValueEUR,
		TotalProfitLossEUR:     s.TotalProfitLossEUR,
		TotalProfitLossPercent: s.TotalProfitLossPercent,
		PositionsCount:         s.PositionsCount,
		ByMetal:                byMetal,
		PriceSource:            s.PriceSource,
		LastUpdated:            s.LastUpdated,
	}
}

type historyPoint struct {
	Date                  string  `json:"date"`
	TotalPurchaseValueEUR float64 `json:"total_purchase_value_eur"`
	TotalCurrentValueEUR  float64 `json:"total_current_value_eur"`
	GoldWeightGrams       float64 `json:"gold_weight_grams"`
	SilverWeightGrams     float64 `json:"silver_weight_grams"`
	PlatinumWeightGrams   float64 `json:"platinum_weight_grams"`
	PalladiumWeightGrams  float64 `json:"palladium_weight_grams"`
	PositionsCount        int     `json:"positions_count"`
}

type historyResponse struct {
	Days   int            `json:"days"`
	Points []historyPoint `json:"points"`
}

func newHistoryResponse(days int, snaps []*models.Snapshot) historyResponse {
	points := make([]historyPoint, 0, len(snaps))
	for _, s := range snaps {
		points = append(points, historyPoint{
			Date:                  s.Date.Format(time.DateOnly),
			TotalPurchaseValueEUR: s.TotalPurchaseValueEUR,
			TotalCurrentValueEUR:  s.TotalCurrentValueEUR,
			GoldWeightGrams:       s.GoldWeightGrams,
			SilverWeightGrams:     s.SilverWeightGrams,
			PlatinumWeightGrams:   s.PlatinumWeightGrams,
			PalladiumWeightGrams:  s.PalladiumWeightGrams,
			PositionsCount:        s.PositionsCount,
		})
	}
	return historyResponse{Days: days, Points: points}
}

type exportResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type setTierRequest struct {
	Tier string `json:"tier" validate:"required,oneof=free premium"`
}

package models

import "time"

// Snapshot is one user's portfolio totals for one calendar day.
type Snapshot struct {
	ID                    int64
	UserID                int64
	Date                  time.Time
	TotalPurchaseValueEUR float64
	TotalCurrentValueEUR  float64
	GoldWeightGrams       float64
	SilverWeightGrams     float64
	PlatinumWeightGrams   float64
	PalladiumWeightGrams  float64
	PositionsCount        int
	CreatedAt             time.Time
}

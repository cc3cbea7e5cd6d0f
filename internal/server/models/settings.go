package models

// UserSettings holds per-metal default discounts in percent (0..100).
type UserSettings struct {
	UserID                   int64
	DefaultDiscountGold      float64
	DefaultDiscountSilver    float64
	DefaultDiscountPlatinum  float64
	DefaultDiscountPalladium float64
}

// DiscountFor returns the default discount for m.
func (s *UserSettings) DiscountFor(m Metal) float64 {
	if s == nil {
		return 0
	}
	switch m {
	case MetalGold:
		return s.DefaultDiscountGold
	case MetalSilver:
		return s.DefaultDiscountSilver
	case MetalPlatinum:
		return s.DefaultDiscountPlatinum
	case MetalPalladium:
		return s.DefaultDiscountPalladium
	}
	return 0
}

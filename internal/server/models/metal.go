package models

type Metal string

const (
	MetalGold      Metal = "gold"
	MetalSilver    Metal = "silver"
	MetalPlatinum  Metal = "platinum"
	MetalPalladium Metal = "palladium"
)

// Metals lists every supported metal in display order.
var Metals = []Metal{MetalGold, MetalSilver, MetalPlatinum, MetalPalladium}

func (m Metal) Valid() bool {
	switch m {
	case MetalGold, MetalSilver, MetalPlatinum, MetalPalladium:
		return true
	}
	return false
}

type WeightUnit string

const (
	UnitGram     WeightUnit = "g"
	UnitOunce    WeightUnit = "oz"
	UnitKilogram WeightUnit = "kg"
)

// GramsPerTroyOunce converts troy ounces to grams.
const GramsPerTroyOunce = 31.1035

// Grams returns the number of grams in one unit, or 0 for an unknown unit.
func (u WeightUnit) Grams() float64 {
	switch u {
	case UnitGram:
		return 1
	case UnitOunce:
		return GramsPerTroyOunce
	case UnitKilogram:
		return 1000
	}
	return 0
}

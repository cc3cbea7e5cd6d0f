package services

import (
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/prices"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Valuation is a position priced at the current spot, in EUR rounded to
// cents.
type Valuation struct {
	SpotPerGramEUR    float64
	SpotValueEUR      float64
	CurrentValueEUR   float64
	DiscountApplied   float64
	ProfitLossEUR     float64
	ProfitLossPercent float64
}

// ValuedPosition is a position together with its valuation.
type ValuedPosition struct {
	*models.Position
	Valuation
}

// WeightGrams converts quantity pieces of weightPerUnit unit each to grams.
func WeightGrams(quantity, weightPerUnit float64, unit models.WeightUnit) float64 {
	grams := decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(weightPerUnit)).
		Mul(decimal.NewFromFloat(unit.Grams()))
	return grams.Round(4).InexactFloat64()
}

// EffectiveDiscount is the position's own discount when set, else the
// user's default for the metal.
func EffectiveDiscount(p *models.Position, settings *models.UserSettings) float64 {
	if p.DiscountPercent != nil {
		return *p.DiscountPercent
	}
	return settings.DiscountFor(p.MetalType)
}

type valueParts struct {
	spot     decimal.Decimal
	current  decimal.Decimal
	purchase decimal.Decimal
}

func valuePosition(p *models.Position, spotPerGram float64, discount float64) valueParts {
	grams := decimal.NewFromFloat(p.WeightGrams)
	spot := decimal.NewFromFloat(spotPerGram).Mul(grams)
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discount).Div(hundred))
	return valueParts{
		spot:     spot,
		current:  spot.Mul(factor),
		purchase: decimal.NewFromFloat(p.PurchasePriceEUR),
	}
}

// Value prices p: spot_per_gram × (1 − discount/100) × weight_grams.
func Value(p *models.Position, quote *prices.Quote, settings *models.UserSettings) Valuation {
	spotPerGram := quote.PerGram(p.MetalType)
	discount := EffectiveDiscount(p, settings)
	v := valuePosition(p, spotPerGram, discount)
	pl := v.current.Sub(v.purchase)

	return Valuation{
		SpotPerGramEUR:    spotPerGram,
		SpotValueEUR:      cents(v.spot),
		CurrentValueEUR:   cents(v.current),
		DiscountApplied:   discount,
		ProfitLossEUR:     cents(pl),
		ProfitLossPercent: percentOf(pl, v.purchase),
	}
}

// MetalSummary aggregates the positions of one metal.
type MetalSummary struct {
	PurchaseValueEUR  float64
	CurrentValueEUR   float64
	WeightGrams       float64
	PositionsCount    int
	ProfitLossEUR     float64
	ProfitLossPercent float64
}

// Summary aggregates a whole portfolio.
type Summary struct {
	TotalPurchaseValueEUR  float64
	TotalCurrentValueEUR   float64
	TotalProfitLossEUR     float64
	TotalProfitLossPercent float64
	PositionsCount         int
	ByMetal                map[models.Metal]*MetalSummary
	PriceSource            string
	LastUpdated            time.Time
}

type metalTotals struct {
	purchase, current, grams decimal.Decimal
	count                    int
}

// Summarize totals positions. Sums are taken before rounding.
func Summarize(positions []*models.Position, quote *prices.Quote, settings *models.UserSettings) *Summary {
	totals := make(map[models.Metal]*metalTotals, len(models.Metals))
	for _, m := range models.Metals {
		totals[m] = &metalTotals{}
	}

	var purchase, current decimal.Decimal
	for _, p := range positions {
		t, ok := totals[p.MetalType]
		if !ok {
			continue
		}
		v := valuePosition(p, quote.PerGram(p.MetalType), EffectiveDiscount(p, settings))
		t.purchase = t.purchase.Add(v.purchase)
		t.current = t.current.Add(v.current)
		t.grams = t.grams.Add(decimal.NewFromFloat(p.WeightGrams))
		t.count++
		purchase = purchase.Add(v.purchase)
		current = current.Add(v.current)
	}

	s := &Summary{
		TotalPurchaseValueEUR:  cents(purchase),
		TotalCurrentValueEUR:   cents(current),
		TotalProfitLossEUR:     cents(current.Sub(purchase)),
		TotalProfitLossPercent: percentOf(current.Sub(purchase), purchase),
		ByMetal:                make(map[models.Metal]*MetalSummary, len(totals)),
		PriceSource:            quote.Source,
		LastUpdated:            quote.Timestamp,
	}
	for m, t := range totals {
		s.PositionsCount += t.count
		pl := t.current.Sub(t.purchase)
		s.ByMetal[m] = &MetalSummary{
			PurchaseValueEUR:  cents(t.purchase),
			CurrentValueEUR:   cents(t.current),
			WeightGrams:       t.grams.Round(4).InexactFloat64(),
			PositionsCount:    t.count,
			ProfitLossEUR:     cents(pl),
			ProfitLossPercent: percentOf(pl, t.purchase),
		}
	}
	return s
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
}

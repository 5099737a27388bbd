package priceref

import (
	"context"
	"fmt"
	"math"

	"lnbank/pkg/logger"

	"go.uber.org/zap"
)

// DivergenceReport is the outcome of comparing a venue mark price against
// an independent reference price.
type DivergenceReport struct {
	VenuePrice     float64
	ReferencePrice float64
	PercentDiff    float64
	Exceeded       bool
}

// CheckDivergence fetches fiatCurrency's reference price from provider and
// compares it to venuePrice, flagging Exceeded when the absolute percent
// difference exceeds tolerancePercent. Housekeeping logs but does not
// block on a flagged divergence — the venue feed may simply be stale.
func CheckDivergence(ctx context.Context, provider PriceProvider, fiatCurrency string, venuePrice float64, tolerancePercent float64) (DivergenceReport, error) {
	if venuePrice <= 0 {
		return DivergenceReport{}, fmt.Errorf("priceref: venue price must be positive, got %f", venuePrice)
	}

	reference, err := provider.GetPrice(ctx, fiatCurrency)
	if err != nil {
		return DivergenceReport{}, fmt.Errorf("priceref: failed to fetch reference price: %w", err)
	}

	percentDiff := math.Abs(venuePrice-reference) / reference * 100
	report := DivergenceReport{
		VenuePrice:     venuePrice,
		ReferencePrice: reference,
		PercentDiff:    percentDiff,
		Exceeded:       percentDiff > tolerancePercent,
	}

	if report.Exceeded {
		logger.Warn("priceref: venue mark price diverges from reference",
			zap.Float64("venue_price", venuePrice),
			zap.Float64("reference_price", reference),
			zap.Float64("percent_diff", percentDiff),
			zap.Float64("tolerance_percent", tolerancePercent))
	}

	return report, nil
}

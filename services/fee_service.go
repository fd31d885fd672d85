package services

import (
	"math"

	"civic-portal/models"
)

// Fee defaults for citizen services: a flat processing fee plus GST on the
// fee-inclusive amount. Rounding is applied once, to the tax only, so the
// total is always an exact integer.
const (
	DefaultProcessingFee = 10
	DefaultTaxPercent    = 18
)

// FeeOptions overrides the processing fee or tax percent for a calculation.
type FeeOptions struct {
	ProcessingFee *int
	TaxPercent    *int
}

// CalculateTotal computes the payable breakdown for a base fee in rupees.
// The base amount must be positive; zero and negative amounts are rejected
// rather than passed through to the gateway.
func CalculateTotal(baseAmount int, opts ...FeeOptions) (models.FeeCalculation, error) {
	if baseAmount <= 0 {
		return models.FeeCalculation{}, ErrInvalidAmount(baseAmount)
	}

	processingFee := DefaultProcessingFee
	taxPercent := DefaultTaxPercent
	if len(opts) > 0 {
		if opts[0].ProcessingFee != nil {
			processingFee = *opts[0].ProcessingFee
		}
		if opts[0].TaxPercent != nil {
			taxPercent = *opts[0].TaxPercent
		}
	}

	tax := int(math.Round(float64(baseAmount+processingFee) * float64(taxPercent) / 100))
	return models.FeeCalculation{
		BaseAmount:    baseAmount,
		ProcessingFee: processingFee,
		Tax:           tax,
		TotalAmount:   baseAmount + processingFee + tax,
	}, nil
}

package services_test

import (
	"testing"

	"civic-portal/services"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTotal_Defaults(t *testing.T) {
	fees, err := services.CalculateTotal(50)

	assert.NoError(t, err)
	assert.Equal(t, 50, fees.BaseAmount)
	assert.Equal(t, 10, fees.ProcessingFee)
	assert.Equal(t, 11, fees.Tax) // round(60 * 0.18)
	assert.Equal(t, 71, fees.TotalAmount)
}

func TestCalculateTotal_Deterministic(t *testing.T) {
	first, err := services.CalculateTotal(30)
	assert.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := services.CalculateTotal(30)
		assert.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCalculateTotal_SumsToTotal(t *testing.T) {
	for _, base := range []int{1, 30, 50, 100, 999} {
		fees, err := services.CalculateTotal(base)
		assert.NoError(t, err)
		assert.Equal(t, fees.BaseAmount+fees.ProcessingFee+fees.Tax, fees.TotalAmount)
	}
}

func TestCalculateTotal_Overrides(t *testing.T) {
	fee := 0
	tax := 0
	fees, err := services.CalculateTotal(100, services.FeeOptions{ProcessingFee: &fee, TaxPercent: &tax})

	assert.NoError(t, err)
	assert.Equal(t, 0, fees.ProcessingFee)
	assert.Equal(t, 0, fees.Tax)
	assert.Equal(t, 100, fees.TotalAmount)
}

func TestCalculateTotal_RejectsNonPositive(t *testing.T) {
	for _, base := range []int{0, -1, -100} {
		_, err := services.CalculateTotal(base)
		assert.Error(t, err)

		se, ok := err.(*services.ServiceError)
		assert.True(t, ok)
		assert.Equal(t, services.CodeInvalidAmount, se.Code)
	}
}

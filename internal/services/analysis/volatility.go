package analysis

import (
	"math"

	"AlphaKit/internal/domain/models"
)

// PeriodsPerYear is the annualization factor for a sampling frequency.
func PeriodsPerYear(f models.Frequency) float64 {
	if f == models.Weekly {
		return 52
	}
	return 252
}

// Volatility is the annualized sample standard deviation of the defined returns.
// Fewer than two defined returns give undefined.
func Volatility(returns []models.Value, periodsPerYear float64) models.Value {
	var n, sum, sum2 float64
	for _, r := range returns {
		if r.Valid {
			n++
			sum += r.Float
			sum2 += r.Float * r.Float
		}
	}
	if n < 2 {
		return models.None()
	}
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return models.Some(math.Sqrt(variance * periodsPerYear))
}

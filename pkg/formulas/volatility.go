package formulas

import (
	"github.com/markcheno/go-talib"
)

// RealizedVolatility returns the most recent rolling standard deviation of
// daily returns over the given period (e.g. 21 trading days). It is used as
// a floor under the historical CVaR estimate when the return history is too
// calm to produce a meaningful tail.
func RealizedVolatility(dailyReturns []float64, period int) float64 {
	if len(dailyReturns) == 0 || period <= 1 {
		return 0
	}

	// Not enough observations for a rolling window, use the full sample
	if len(dailyReturns) < period {
		return StdDev(dailyReturns)
	}

	rolling := talib.StdDev(dailyReturns, period, 1.0)
	if len(rolling) == 0 {
		return 0
	}

	return rolling[len(rolling)-1]
}

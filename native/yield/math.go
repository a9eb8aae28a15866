package yield

import (
	"math"
	"math/big"
)

const secondsPerYear = 365 * 24 * 60 * 60

var basisPoints = big.NewInt(10_000)

// accruedYield computes floor(principal * ((1+apy)^(elapsed/year) - 1)) where
// apy = apyBps/10000. Compounding, not simple interest. Zero elapsed time and
// zero APY both yield zero, which keeps back-to-back accruals idempotent.
func accruedYield(principal *big.Int, apyBps uint64, elapsedSeconds int64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || apyBps == 0 || elapsedSeconds <= 0 {
		return big.NewInt(0)
	}
	years := float64(elapsedSeconds) / float64(secondsPerYear)
	rate := math.Pow(1+float64(apyBps)/10_000, years) - 1
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return big.NewInt(0)
	}
	accrued := new(big.Float).SetInt(principal)
	accrued.Mul(accrued, big.NewFloat(rate))
	out, _ := accrued.Int(nil)
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}

package yield

import (
	"math/big"
	"testing"
)

func TestAccruedYieldScenarios(t *testing.T) {
	cases := []struct {
		name      string
		principal int64
		apyBps    uint64
		elapsed   int64
		want      int64
	}{
		{"one year at five percent", 1_000_000, 500, secondsPerYear, 50_000},
		{"zero elapsed", 1_000_000, 500, 0, 0},
		{"zero apy", 1_000_000, 0, secondsPerYear, 0},
		{"zero principal", 0, 500, secondsPerYear, 0},
		{"negative elapsed", 1_000_000, 500, -10, 0},
		{"sub-unit accrual floors to zero", 10, 500, 60, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := accruedYield(big.NewInt(tc.principal), tc.apyBps, tc.elapsed)
			if got.Cmp(big.NewInt(tc.want)) != 0 {
				t.Fatalf("accruedYield(%d, %d, %d) = %s, want %d", tc.principal, tc.apyBps, tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestAccruedYieldCompoundsAcrossHalves(t *testing.T) {
	principal := big.NewInt(1_000_000_000)
	full := accruedYield(principal, 1_000, secondsPerYear)

	half := accruedYield(principal, 1_000, secondsPerYear/2)
	afterHalf := new(big.Int).Add(principal, half)
	second := accruedYield(afterHalf, 1_000, secondsPerYear-secondsPerYear/2)
	stepped := new(big.Int).Add(half, second)

	// Two compounding steps must land within rounding distance of one.
	diff := new(big.Int).Sub(full, stepped)
	if diff.CmpAbs(big.NewInt(2)) > 0 {
		t.Fatalf("split accrual drifted: full=%s stepped=%s", full, stepped)
	}

	simple := new(big.Int).Div(new(big.Int).Mul(principal, big.NewInt(1_000)), basisPoints)
	if full.Cmp(simple) < 0 {
		t.Fatalf("compound yield %s below simple interest %s", full, simple)
	}
}

func TestAccruedYieldNilPrincipal(t *testing.T) {
	if got := accruedYield(nil, 500, secondsPerYear); got.Sign() != 0 {
		t.Fatalf("expected zero for nil principal, got %s", got)
	}
}

package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"vaultpay/core/events"
)

type VaultPayMetrics struct {
	yieldAccrued      *prometheus.CounterVec
	yieldDeposits     *prometheus.CounterVec
	yieldWithdrawals  *prometheus.CounterVec
	yieldClaims       *prometheus.CounterVec
	paymentsProcessed prometheus.Counter
	paymentGross      prometheus.Counter
	paymentFees       prometheus.Counter
	subsCreated       prometheus.Counter
	subsCancelled     prometheus.Counter
	subsCompleted     prometheus.Counter
	treasuryClaims    prometheus.Counter
}

var (
	vaultpayOnce     sync.Once
	vaultpayRegistry *VaultPayMetrics
)

func VaultPay() *VaultPayMetrics {
	vaultpayOnce.Do(func() {
		vaultpayRegistry = &VaultPayMetrics{
			yieldAccrued: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vaultpay_yield_accrued_total",
				Help: "Cumulative yield moved from reserves into vaults, by asset.",
			}, []string{"asset"}),
			yieldDeposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vaultpay_yield_deposits_total",
				Help: "Count of principal deposits into vaults, by asset.",
			}, []string{"asset"}),
			yieldWithdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vaultpay_yield_withdrawals_total",
				Help: "Count of principal withdrawals from vaults, by asset.",
			}, []string{"asset"}),
			yieldClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vaultpay_yield_claims_total",
				Help: "Count of yield payouts to vault owners, by asset.",
			}, []string{"asset"}),
			paymentsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultpay_payments_processed_total",
				Help: "Count of successfully processed subscription payments.",
			}),
			paymentGross: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultpay_payment_gross_total",
				Help: "Cumulative gross payment volume across all subscriptions.",
			}),
			paymentFees: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultpay_payment_fees_total",
				Help: "Cumulative platform fees skimmed into treasuries.",
			}),
			subsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultpay_subscriptions_created_total",
				Help: "Count of subscriptions created.",
			}),
			subsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultpay_subscriptions_cancelled_total",
				Help: "Count of subscriptions cancelled by users.",
			}),
			subsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultpay_subscriptions_completed_total",
				Help: "Count of subscriptions that reached their final payment.",
			}),
			treasuryClaims: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultpay_treasury_claims_total",
				Help: "Count of treasury fee claims by config authorities.",
			}),
		}
		prometheus.MustRegister(
			vaultpayRegistry.yieldAccrued,
			vaultpayRegistry.yieldDeposits,
			vaultpayRegistry.yieldWithdrawals,
			vaultpayRegistry.yieldClaims,
			vaultpayRegistry.paymentsProcessed,
			vaultpayRegistry.paymentGross,
			vaultpayRegistry.paymentFees,
			vaultpayRegistry.subsCreated,
			vaultpayRegistry.subsCancelled,
			vaultpayRegistry.subsCompleted,
			vaultpayRegistry.treasuryClaims,
		)
	})
	return vaultpayRegistry
}

// Emit implements events.Emitter so the metrics registry can be wired as an
// engine emitter directly, usually inside an events.MultiEmitter next to the
// log emitter.
func (m *VaultPayMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	switch e := evt.(type) {
	case events.YieldAccrued:
		m.yieldAccrued.WithLabelValues(e.Asset).Add(amountToFloat(e.Amount))
	case events.YieldDeposited:
		m.yieldDeposits.WithLabelValues(e.Asset).Inc()
	case events.YieldWithdrawn:
		m.yieldWithdrawals.WithLabelValues(e.Asset).Inc()
	case events.YieldClaimed:
		m.yieldClaims.WithLabelValues(e.Asset).Inc()
	case events.BillingPaymentProcessed:
		m.paymentsProcessed.Inc()
		m.paymentGross.Add(amountToFloat(e.Gross))
		m.paymentFees.Add(amountToFloat(e.Fee))
		if e.Completed {
			m.subsCompleted.Inc()
		}
	case events.BillingSubscriptionCreated:
		m.subsCreated.Inc()
	case events.BillingSubscriptionCancelled:
		m.subsCancelled.Inc()
	case events.BillingTreasuryClaimed:
		m.treasuryClaims.Inc()
	}
}

// amountToFloat converts ledger amounts for metric reporting. Precision loss
// past float64 range is acceptable here; metrics are observational only.
func amountToFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	return value
}

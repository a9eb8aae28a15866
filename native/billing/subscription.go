package billing

import (
	"math"
	"math/big"

	"vaultpay/core/events"
	"vaultpay/core/types"
	"vaultpay/crypto"
)

// InitSubscription creates a recurring payment agreement between a user and a
// vendor. The total lifetime (numberOfPayments * periodSeconds) must fall
// within the config's duration bounds.
func (e *Engine) InitSubscription(vendorAddr, user crypto.Address, seed uint64, amountPerPayment *big.Int, numberOfPayments uint32, periodSeconds uint64, startTime int64) (*Subscription, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amountPerPayment == nil || amountPerPayment.Sign() <= 0 || numberOfPayments == 0 || periodSeconds == 0 {
		return nil, ErrInvalidAmount
	}
	vendor, err := e.loadVendor(vendorAddr)
	if err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig(vendor.Config)
	if err != nil {
		return nil, err
	}
	if cfg.Locked {
		return nil, ErrConfigLocked
	}
	// The product must not wrap; a wrapped lifetime could land back inside
	// the configured bounds.
	if periodSeconds > math.MaxUint64/uint64(numberOfPayments) {
		return nil, ErrInvalidDuration
	}
	duration := uint64(numberOfPayments) * periodSeconds
	if duration < cfg.MinSubscriptionDuration || duration > cfg.MaxSubscriptionDuration {
		return nil, ErrInvalidDuration
	}
	subAuth, err := SubscriptionAuthority(vendor.Address, user)
	if err != nil {
		return nil, err
	}
	existing, err := e.state.GetSubscription(subAuth.Address())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSubscriptionExists
	}
	sub := &Subscription{
		User:             user,
		Vendor:           vendor.Address,
		Address:          subAuth.Address(),
		Seed:             seed,
		StartTime:        startTime,
		PeriodSeconds:    periodSeconds,
		AmountPerPayment: new(big.Int).Set(amountPerPayment),
		NumberOfPayments: numberOfPayments,
		PaymentsMade:     0,
		Status:           StatusActive,
		Bump:             subAuth.Bump(),
	}
	if err := e.state.PutSubscription(sub); err != nil {
		return nil, err
	}
	e.emit(events.BillingSubscriptionCreated{
		Address:          sub.Address,
		Vendor:           vendor.Address,
		User:             user,
		AmountPerPayment: new(big.Int).Set(amountPerPayment),
		NumberOfPayments: numberOfPayments,
	})
	return sub, nil
}

// CancelSubscription transitions an active subscription to Cancelled. Only
// the subscriber may cancel, and the transition is terminal.
func (e *Engine) CancelSubscription(subAddr, user crypto.Address, auth types.Authorizer) error {
	if err := e.ready(); err != nil {
		return err
	}
	sub, err := e.loadSubscription(subAddr)
	if err != nil {
		return err
	}
	if !sub.User.Equal(user) || auth == nil || !auth.Authorizes(user) {
		return types.ErrUnauthorized
	}
	if sub.Locked {
		return ErrSubscriptionLocked
	}
	if sub.Status != StatusActive {
		return ErrSubscriptionNotActive
	}
	sub.Status = StatusCancelled
	if err := e.state.PutSubscription(sub); err != nil {
		return err
	}
	e.emit(events.BillingSubscriptionCancelled{Address: sub.Address, User: user})
	return nil
}

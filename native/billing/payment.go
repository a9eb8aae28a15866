package billing

import (
	"math/big"

	"vaultpay/core/events"
	"vaultpay/core/types"
	"vaultpay/crypto"
)

var basisPoints = big.NewInt(10_000)

// splitPayment computes the platform fee and vendor amount for one payment.
// Amounts are bounded to 64 bits so record fields never overflow on the wire.
func splitPayment(amount *big.Int, feeBps uint64) (fee, net *big.Int, err error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}
	if amount.BitLen() > 64 {
		return nil, nil, ErrMathOverflow
	}
	fee = new(big.Int).Mul(amount, new(big.Int).SetUint64(feeBps))
	fee.Quo(fee, basisPoints)
	net = new(big.Int).Sub(amount, fee)
	if net.Sign() < 0 {
		return nil, nil, ErrMathUnderflow
	}
	return fee, net, nil
}

// ProcessPayment executes one billing cycle: it withdraws the due amount from
// the user's custody inside the yield engine via the delegated authority,
// pays the vendor, skims the platform fee into the treasury, and advances the
// subscription. The host must run it inside a single transaction; a failure
// at any step leaves no partial state behind.
//
// Not safe to blindly retry after a failure unless the failure is confirmed
// to be pre-transfer.
func (e *Engine) ProcessPayment(configAddr, vendorAddr, subAddr, delegatedAddr crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.ys == nil {
		return errNilYieldSource
	}
	cfg, err := e.loadConfig(configAddr)
	if err != nil {
		return err
	}
	if cfg.Locked {
		return ErrConfigLocked
	}
	sub, err := e.loadSubscription(subAddr)
	if err != nil {
		return err
	}
	if sub.Locked {
		return ErrSubscriptionLocked
	}
	if sub.Status != StatusActive {
		return ErrSubscriptionNotActive
	}
	vendor, err := e.loadVendor(vendorAddr)
	if err != nil {
		return err
	}
	if !sub.Vendor.Equal(vendor.Address) || !vendor.Config.Equal(cfg.Address) {
		return ErrInvalidVendor
	}
	if !vendor.Whitelisted {
		return ErrVendorNotWhitelisted
	}

	fee, net, err := splitPayment(sub.AmountPerPayment, cfg.PlatformFeeBps)
	if err != nil {
		return err
	}

	// The standing delegation is re-derived, never trusted from the caller.
	delegated, err := DelegatedAuthority(cfg.Address, sub.User)
	if err != nil {
		return err
	}
	if !delegated.Address().Equal(delegatedAddr) {
		return ErrInvalidVaultPayAuthority
	}

	// Pull the full payment out of the yield engine into the delegated
	// intermediate balance, then fan it out.
	if err := e.ys.Withdraw(cfg.Asset, delegated.Address(), delegated, sub.AmountPerPayment); err != nil {
		return err
	}
	if net.Sign() > 0 {
		if err := e.state.Transfer(delegated.Address(), vendor.PayoutAddress, cfg.Asset, net, delegated); err != nil {
			return err
		}
	}
	if fee.Sign() > 0 {
		if err := e.state.Transfer(delegated.Address(), cfg.TreasuryAddress, cfg.Asset, fee, delegated); err != nil {
			return err
		}
	}

	sub.PaymentsMade++
	if sub.PaymentsMade >= sub.NumberOfPayments {
		sub.Status = StatusCompleted
	}
	if err := e.state.PutSubscription(sub); err != nil {
		return err
	}
	e.emit(events.BillingPaymentProcessed{
		Subscription: sub.Address,
		Vendor:       vendor.Address,
		User:         sub.User,
		Gross:        new(big.Int).Set(sub.AmountPerPayment),
		Fee:          fee,
		Net:          net,
		PaymentsMade: sub.PaymentsMade,
		Completed:    sub.Status == StatusCompleted,
	})
	return nil
}

// ClaimTreasury moves accumulated platform fees from the config treasury to
// the config authority. A nil amount claims the full balance. Only the
// config authority may claim.
func (e *Engine) ClaimTreasury(configAddr crypto.Address, auth types.Authorizer, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig(configAddr)
	if err != nil {
		return nil, err
	}
	if auth == nil || !auth.Authorizes(cfg.Authority) {
		return nil, types.ErrUnauthorized
	}
	balance, err := e.state.Balance(cfg.TreasuryAddress, cfg.Asset)
	if err != nil {
		return nil, err
	}
	claim := amount
	if claim == nil {
		claim = balance
	}
	if claim.Sign() <= 0 || balance.Cmp(claim) < 0 {
		return nil, ErrInsufficientFunds
	}
	treasuryAuth, err := crypto.AuthorityAt(configTag, cfg.Bump, []byte(cfg.Asset), cfg.Authority.Bytes())
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(cfg.TreasuryAddress, cfg.Authority, cfg.Asset, claim, treasuryAuth); err != nil {
		return nil, err
	}
	claimed := new(big.Int).Set(claim)
	e.emit(events.BillingTreasuryClaimed{Config: cfg.Address, Authority: cfg.Authority, Amount: claimed})
	return claimed, nil
}

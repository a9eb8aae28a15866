package billing

import (
	"math/big"

	"vaultpay/crypto"
)

// SubscriptionStatus tracks the one-directional lifecycle of a subscription.
type SubscriptionStatus uint8

const (
	StatusActive SubscriptionStatus = iota
	StatusCancelled
	StatusCompleted
)

func (s SubscriptionStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCancelled:
		return "cancelled"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Config carries the platform parameters for one (asset, authority) pairing.
// Its derived address doubles as the treasury custody balance.
type Config struct {
	// Authority is the platform operator allowed to claim the treasury and
	// whitelist vendors.
	Authority crypto.Address
	// Seed is the operator-chosen discriminator recorded at creation.
	Seed uint64
	// PlatformFeeBps is the fee skimmed from every payment, in basis points.
	// Never exceeds 10000.
	PlatformFeeBps uint64
	// MinSubscriptionDuration and MaxSubscriptionDuration bound the total
	// lifetime of any subscription under this config, in seconds.
	MinSubscriptionDuration uint64
	MaxSubscriptionDuration uint64
	// Asset identifies the supported asset.
	Asset string
	// YieldReserve references the yield engine reserve backing user custody.
	YieldReserve crypto.Address
	// Address is the derived record address.
	Address crypto.Address
	// TreasuryAddress is the custody balance receiving platform fees, owned
	// by the config's own derived authority.
	TreasuryAddress crypto.Address
	Locked          bool
	Bump            uint8
}

// Vendor is a payee registered under a config. One per (config, authority).
type Vendor struct {
	// Authority is the vendor's own account.
	Authority crypto.Address
	// Config references the owning config.
	Config crypto.Address
	// Address is the derived record address.
	Address crypto.Address
	// PayoutAddress is the custody balance payments land on, owned by the
	// vendor record's derived authority.
	PayoutAddress crypto.Address
	Seed          uint64
	// Whitelisted gates payment processing. Defaults to false; flipped by
	// the config authority.
	Whitelisted bool
	Bump        uint8
}

// Subscription is a recurring payment agreement between a user and a vendor.
type Subscription struct {
	User   crypto.Address
	Vendor crypto.Address
	// Address is the derived record address.
	Address crypto.Address
	Seed    uint64
	// StartTime is the agreed first billing instant, unix seconds.
	StartTime int64
	// PeriodSeconds is the interval between payments. Together with
	// NumberOfPayments it defines the total duration checked against the
	// config bounds.
	PeriodSeconds    uint64
	AmountPerPayment *big.Int
	NumberOfPayments uint32
	PaymentsMade     uint32
	Status           SubscriptionStatus
	Locked           bool
	Bump             uint8
}

package events

import (
	"math/big"

	"vaultpay/crypto"
)

const (
	TypeBillingConfigInitialized     = "billing.config.initialized"
	TypeBillingVendorRegistered      = "billing.vendor.registered"
	TypeBillingVendorWhitelisted     = "billing.vendor.whitelisted"
	TypeBillingUserOnboarded         = "billing.user.onboarded"
	TypeBillingDeposited             = "billing.deposited"
	TypeBillingWithdrawn             = "billing.withdrawn"
	TypeBillingSubscriptionCreated   = "billing.subscription.created"
	TypeBillingSubscriptionCancelled = "billing.subscription.cancelled"
	// TypeBillingPaymentProcessed is emitted once per successful payment
	// cycle, after the vendor and treasury transfers have both landed.
	TypeBillingPaymentProcessed = "billing.payment.processed"
	TypeBillingTreasuryClaimed  = "billing.treasury.claimed"
)

type BillingConfigInitialized struct {
	Asset     string
	Address   crypto.Address
	Authority crypto.Address
	FeeBps    uint64
}

func (BillingConfigInitialized) EventType() string { return TypeBillingConfigInitialized }

type BillingVendorRegistered struct {
	Config    crypto.Address
	Address   crypto.Address
	Authority crypto.Address
}

func (BillingVendorRegistered) EventType() string { return TypeBillingVendorRegistered }

type BillingVendorWhitelisted struct {
	Vendor      crypto.Address
	Whitelisted bool
}

func (BillingVendorWhitelisted) EventType() string { return TypeBillingVendorWhitelisted }

type BillingUserOnboarded struct {
	Config    crypto.Address
	User      crypto.Address
	Delegated crypto.Address
}

func (BillingUserOnboarded) EventType() string { return TypeBillingUserOnboarded }

type BillingDeposited struct {
	Config crypto.Address
	User   crypto.Address
	Amount *big.Int
}

func (BillingDeposited) EventType() string { return TypeBillingDeposited }

type BillingWithdrawn struct {
	Config crypto.Address
	User   crypto.Address
	Amount *big.Int
}

func (BillingWithdrawn) EventType() string { return TypeBillingWithdrawn }

type BillingSubscriptionCreated struct {
	Address          crypto.Address
	Vendor           crypto.Address
	User             crypto.Address
	AmountPerPayment *big.Int
	NumberOfPayments uint32
}

func (BillingSubscriptionCreated) EventType() string { return TypeBillingSubscriptionCreated }

type BillingSubscriptionCancelled struct {
	Address crypto.Address
	User    crypto.Address
}

func (BillingSubscriptionCancelled) EventType() string { return TypeBillingSubscriptionCancelled }

type BillingPaymentProcessed struct {
	Subscription crypto.Address
	Vendor       crypto.Address
	User         crypto.Address
	Gross        *big.Int
	Fee          *big.Int
	Net          *big.Int
	PaymentsMade uint32
	Completed    bool
}

func (BillingPaymentProcessed) EventType() string { return TypeBillingPaymentProcessed }

type BillingTreasuryClaimed struct {
	Config    crypto.Address
	Authority crypto.Address
	Amount    *big.Int
}

func (BillingTreasuryClaimed) EventType() string { return TypeBillingTreasuryClaimed }

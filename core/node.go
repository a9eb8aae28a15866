package core

import (
	"math/big"
	"time"

	"vaultpay/core/events"
	"vaultpay/core/state"
	"vaultpay/core/types"
	"vaultpay/crypto"
	"vaultpay/native/billing"
	nativecommon "vaultpay/native/common"
	"vaultpay/native/yield"
	"vaultpay/storage"
)

// Node is the host wiring both ledger engines to shared storage. Every
// state-changing operation runs against a staged transaction, so a failure in
// any step of a multi-transfer flow leaves the store untouched.
type Node struct {
	manager *state.Manager
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewNode creates a node on top of the provided database.
func NewNode(db storage.Database) *Node {
	return &Node{
		manager: state.NewManager(db),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter shared by both engines.
func (n *Node) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		n.emitter = events.NoopEmitter{}
		return
	}
	n.emitter = emitter
}

// SetPauses wires the module pause switchboard shared by both engines.
func (n *Node) SetPauses(p nativecommon.PauseView) { n.pauses = p }

// SetNowFunc overrides the time source for both engines.
func (n *Node) SetNowFunc(now func() int64) {
	if now == nil {
		n.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	n.nowFn = now
}

// withEngines builds fresh engines bound to a staged transaction and runs fn.
// Engine writes only reach the database when fn succeeds.
func (n *Node) withEngines(fn func(*yield.Engine, *billing.Engine, *state.Manager) error) error {
	return n.manager.WithTransaction(func(tx *state.Manager) error {
		yieldEngine := yield.NewEngine()
		yieldEngine.SetState(tx)
		yieldEngine.SetEmitter(n.emitter)
		yieldEngine.SetPauses(n.pauses)
		yieldEngine.SetNowFunc(n.nowFn)

		billingEngine := billing.NewEngine()
		billingEngine.SetState(tx)
		billingEngine.SetYieldSource(yieldEngine)
		billingEngine.SetEmitter(n.emitter)
		billingEngine.SetPauses(n.pauses)
		billingEngine.SetNowFunc(n.nowFn)

		return fn(yieldEngine, billingEngine, tx)
	})
}

// Mint credits freshly issued units to an address. Bootstrap and test helper.
func (n *Node) Mint(addr crypto.Address, asset string, amount *big.Int) error {
	return n.withEngines(func(_ *yield.Engine, _ *billing.Engine, tx *state.Manager) error {
		return tx.Mint(addr, asset, amount)
	})
}

// Balance reads the custody balance for (addr, asset).
func (n *Node) Balance(addr crypto.Address, asset string) (*big.Int, error) {
	return n.manager.Balance(addr, asset)
}

// InitReserve provisions the yield reserve ledger for an asset.
func (n *Node) InitReserve(authority crypto.Address, auth types.Authorizer, asset string, apyBps uint64, initialDeposit *big.Int) (*yield.Reserve, error) {
	var reserve *yield.Reserve
	err := n.withEngines(func(y *yield.Engine, _ *billing.Engine, _ *state.Manager) error {
		var innerErr error
		reserve, innerErr = y.InitReserve(authority, auth, asset, apyBps, initialDeposit)
		return innerErr
	})
	return reserve, err
}

// FundReserve tops up the reserve float for an asset.
func (n *Node) FundReserve(from crypto.Address, auth types.Authorizer, asset string, amount *big.Int) error {
	return n.withEngines(func(y *yield.Engine, _ *billing.Engine, _ *state.Manager) error {
		return y.FundReserve(from, auth, asset, amount)
	})
}

// OpenVault creates a depositor vault owned by the given address.
func (n *Node) OpenVault(asset string, owner crypto.Address) (crypto.Address, error) {
	var addr crypto.Address
	err := n.withEngines(func(y *yield.Engine, _ *billing.Engine, _ *state.Manager) error {
		var innerErr error
		addr, innerErr = y.OpenVault(asset, owner)
		return innerErr
	})
	return addr, err
}

// YieldDeposit moves principal from the owner into their vault.
func (n *Node) YieldDeposit(asset string, owner crypto.Address, auth types.Authorizer, amount *big.Int) error {
	return n.withEngines(func(y *yield.Engine, _ *billing.Engine, _ *state.Manager) error {
		return y.Deposit(asset, owner, auth, amount)
	})
}

// YieldWithdraw moves principal from the vault back to the owner.
func (n *Node) YieldWithdraw(asset string, owner crypto.Address, auth types.Authorizer, amount *big.Int) error {
	return n.withEngines(func(y *yield.Engine, _ *billing.Engine, _ *state.Manager) error {
		return y.Withdraw(asset, owner, auth, amount)
	})
}

// ClaimYield pays the vault's accrued interest out to its owner.
func (n *Node) ClaimYield(asset string, owner crypto.Address, auth types.Authorizer) (*big.Int, error) {
	var claimed *big.Int
	err := n.withEngines(func(y *yield.Engine, _ *billing.Engine, _ *state.Manager) error {
		var innerErr error
		claimed, innerErr = y.Claim(asset, owner, auth)
		return innerErr
	})
	return claimed, err
}

// Vault reads the stored vault record for (asset, owner).
func (n *Node) Vault(asset string, owner crypto.Address) (*yield.Account, error) {
	var vault *yield.Account
	err := n.withEngines(func(y *yield.Engine, _ *billing.Engine, _ *state.Manager) error {
		var innerErr error
		vault, innerErr = y.Vault(asset, owner)
		return innerErr
	})
	return vault, err
}

// InitBillingConfig creates the billing platform config for an asset.
func (n *Node) InitBillingConfig(authority crypto.Address, asset string, seed, feeBps, minDuration, maxDuration uint64, yieldReserve crypto.Address) (*billing.Config, error) {
	var cfg *billing.Config
	err := n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		var innerErr error
		cfg, innerErr = b.Initialize(authority, asset, seed, feeBps, minDuration, maxDuration, yieldReserve)
		return innerErr
	})
	return cfg, err
}

// InitVendor registers a payee under a billing config.
func (n *Node) InitVendor(configAddr, vendorAuthority crypto.Address, seed uint64) (*billing.Vendor, error) {
	var vendor *billing.Vendor
	err := n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		var innerErr error
		vendor, innerErr = b.InitVendor(configAddr, vendorAuthority, seed)
		return innerErr
	})
	return vendor, err
}

// SetVendorWhitelisted flips a vendor's whitelist flag.
func (n *Node) SetVendorWhitelisted(configAddr crypto.Address, auth types.Authorizer, vendorAddr crypto.Address, whitelisted bool) error {
	return n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		return b.SetVendorWhitelisted(configAddr, auth, vendorAddr, whitelisted)
	})
}

// OnboardUser establishes the standing delegation and custody vault for a
// user.
func (n *Node) OnboardUser(configAddr, user crypto.Address) (crypto.Address, error) {
	var delegated crypto.Address
	err := n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		var innerErr error
		delegated, innerErr = b.InitUser(configAddr, user)
		return innerErr
	})
	return delegated, err
}

// BillingDeposit moves user funds into delegated custody inside the yield
// engine.
func (n *Node) BillingDeposit(configAddr, user crypto.Address, auth types.Authorizer, amount *big.Int) error {
	return n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		return b.Deposit(configAddr, user, auth, amount)
	})
}

// BillingWithdraw returns delegated custody funds from the yield engine to
// the user's own balance.
func (n *Node) BillingWithdraw(configAddr, user crypto.Address, auth types.Authorizer, amount *big.Int) error {
	return n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		return b.Withdraw(configAddr, user, auth, amount)
	})
}

// CreateSubscription starts a recurring agreement between a user and a vendor.
func (n *Node) CreateSubscription(vendorAddr, user crypto.Address, seed uint64, amountPerPayment *big.Int, numberOfPayments uint32, periodSeconds uint64) (*billing.Subscription, error) {
	var sub *billing.Subscription
	err := n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		var innerErr error
		sub, innerErr = b.InitSubscription(vendorAddr, user, seed, amountPerPayment, numberOfPayments, periodSeconds, n.nowFn())
		return innerErr
	})
	return sub, err
}

// CancelSubscription transitions an active subscription to cancelled.
func (n *Node) CancelSubscription(subAddr, user crypto.Address, auth types.Authorizer) error {
	return n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		return b.CancelSubscription(subAddr, user, auth)
	})
}

// ProcessPayment executes one billing cycle end to end. The whole flow, the
// yield withdrawal included, commits or rolls back as one unit.
func (n *Node) ProcessPayment(configAddr, vendorAddr, subAddr, delegatedAddr crypto.Address) error {
	return n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		return b.ProcessPayment(configAddr, vendorAddr, subAddr, delegatedAddr)
	})
}

// ClaimTreasury pays accumulated platform fees out to the config authority.
func (n *Node) ClaimTreasury(configAddr crypto.Address, auth types.Authorizer, amount *big.Int) (*big.Int, error) {
	var claimed *big.Int
	err := n.withEngines(func(_ *yield.Engine, b *billing.Engine, _ *state.Manager) error {
		var innerErr error
		claimed, innerErr = b.ClaimTreasury(configAddr, auth, amount)
		return innerErr
	})
	return claimed, err
}

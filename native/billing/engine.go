package billing

import (
	"errors"
	"math/big"
	"time"

	"vaultpay/core/events"
	"vaultpay/core/types"
	"vaultpay/crypto"
	nativecommon "vaultpay/native/common"
	"vaultpay/native/yield"
)

var (
	errNilState       = errors.New("billing engine: state not configured")
	errNilYieldSource = errors.New("billing engine: yield source not configured")

	// ErrInvalidFeeBps rejects platform fees above 100%.
	ErrInvalidFeeBps = errors.New("billing engine: platform fee exceeds 10000 bps")
	// ErrInvalidDuration rejects subscriptions whose total lifetime falls
	// outside the config bounds, and configs whose bounds are inverted.
	ErrInvalidDuration = errors.New("billing engine: subscription duration out of bounds")
	// ErrInvalidAmount rejects nil, zero or negative payment amounts.
	ErrInvalidAmount = errors.New("billing engine: amount must be positive")
	// ErrConfigExists rejects a duplicate config for (asset, authority).
	ErrConfigExists = errors.New("billing engine: config already initialised")
	// ErrConfigNotFound means no config record exists at the address.
	ErrConfigNotFound = errors.New("billing engine: config not found")
	// ErrConfigLocked means the config is administratively locked.
	ErrConfigLocked = errors.New("billing engine: config locked")
	// ErrVendorExists rejects a duplicate vendor for (config, authority).
	ErrVendorExists = errors.New("billing engine: vendor already registered")
	// ErrVendorNotFound means no vendor record exists at the address.
	ErrVendorNotFound = errors.New("billing engine: vendor not found")
	// ErrVendorNotWhitelisted gates payment processing on the whitelist flag.
	ErrVendorNotWhitelisted = errors.New("billing engine: vendor not whitelisted")
	// ErrInvalidVendor means the vendor does not match the subscription or
	// config it was presented with.
	ErrInvalidVendor = errors.New("billing engine: vendor mismatch")
	// ErrSubscriptionExists rejects a duplicate subscription for
	// (vendor, user).
	ErrSubscriptionExists = errors.New("billing engine: subscription already exists")
	// ErrSubscriptionNotFound means no subscription record exists.
	ErrSubscriptionNotFound = errors.New("billing engine: subscription not found")
	// ErrSubscriptionNotActive means the subscription is cancelled or
	// completed; both states are terminal.
	ErrSubscriptionNotActive = errors.New("billing engine: subscription not active")
	// ErrSubscriptionLocked means the subscription is administratively
	// locked.
	ErrSubscriptionLocked = errors.New("billing engine: subscription locked")
	// ErrMathOverflow means an amount does not fit the platform's 64-bit
	// amount range.
	ErrMathOverflow = errors.New("billing engine: amount overflows 64 bits")
	// ErrMathUnderflow means the fee would exceed the payment amount.
	ErrMathUnderflow = errors.New("billing engine: fee exceeds payment amount")
	// ErrInvalidVaultPayAuthority means the presented delegated authority
	// does not re-derive from (config, user).
	ErrInvalidVaultPayAuthority = errors.New("billing engine: delegated authority mismatch")
	// ErrInvalidYieldReserve means the yield source's reserve address does
	// not match the expected derivation.
	ErrInvalidYieldReserve = errors.New("billing engine: yield reserve mismatch")
	// ErrInvalidYieldAccount means the yield source's vault address does not
	// match the expected derivation.
	ErrInvalidYieldAccount = errors.New("billing engine: yield account mismatch")
	// ErrInsufficientFunds means the treasury cannot cover a claim.
	ErrInsufficientFunds = errors.New("billing engine: insufficient treasury funds")
)

const moduleName = "billing"

// YieldSource is the cross-ledger boundary into the yield engine. The billing
// engine never touches yield records directly; it acts through this contract
// so it can be exercised against a fake in tests.
type YieldSource interface {
	ReserveAddress(asset string) (crypto.Address, error)
	OpenVault(asset string, owner crypto.Address) (crypto.Address, error)
	Deposit(asset string, owner crypto.Address, auth types.Authorizer, amount *big.Int) error
	Withdraw(asset string, owner crypto.Address, auth types.Authorizer, amount *big.Int) error
}

type engineState interface {
	GetConfig(addr crypto.Address) (*Config, error)
	PutConfig(*Config) error
	GetVendor(addr crypto.Address) (*Vendor, error)
	PutVendor(*Vendor) error
	GetSubscription(addr crypto.Address) (*Subscription, error)
	PutSubscription(*Subscription) error
	Balance(addr crypto.Address, asset string) (*big.Int, error)
	EnsureBalance(addr crypto.Address, asset string) error
	Transfer(from, to crypto.Address, asset string, amount *big.Int, auth types.Authorizer) error
}

// Engine orchestrates the billing ledger: configs, vendors, subscriptions and
// the recurring payment flow that crosses into the yield engine.
type Engine struct {
	state   engineState
	ys      YieldSource
	emitter events.Emitter
	nowFn   func() int64
	pauses  nativecommon.PauseView
}

// NewEngine creates a billing engine with a no-op emitter and the wall clock.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetYieldSource wires the yield engine boundary.
func (e *Engine) SetYieldSource(ys YieldSource) { e.ys = ys }

// SetPauses wires the host's module pause switchboard.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

// Initialize creates the platform config for (asset, authority) and binds a
// treasury custody balance owned by the config's own derived authority.
func (e *Engine) Initialize(authority crypto.Address, asset string, seed, feeBps, minDuration, maxDuration uint64, yieldReserve crypto.Address) (*Config, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if feeBps > 10_000 {
		return nil, ErrInvalidFeeBps
	}
	if minDuration > maxDuration {
		return nil, ErrInvalidDuration
	}
	cfgAuth, err := ConfigAuthority(asset, authority)
	if err != nil {
		return nil, err
	}
	existing, err := e.state.GetConfig(cfgAuth.Address())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConfigExists
	}
	cfg := &Config{
		Authority:               authority,
		Seed:                    seed,
		PlatformFeeBps:          feeBps,
		MinSubscriptionDuration: minDuration,
		MaxSubscriptionDuration: maxDuration,
		Asset:                   asset,
		YieldReserve:            yieldReserve,
		Address:                 cfgAuth.Address(),
		TreasuryAddress:         cfgAuth.Address(),
		Bump:                    cfgAuth.Bump(),
	}
	if err := e.state.EnsureBalance(cfg.TreasuryAddress, asset); err != nil {
		return nil, err
	}
	if err := e.state.PutConfig(cfg); err != nil {
		return nil, err
	}
	e.emit(events.BillingConfigInitialized{Asset: asset, Address: cfg.Address, Authority: authority, FeeBps: feeBps})
	return cfg, nil
}

// InitVendor registers a payee under a config. Vendors start off the
// whitelist and cannot receive payments until the config authority flips the
// flag.
func (e *Engine) InitVendor(configAddr, vendorAuthority crypto.Address, seed uint64) (*Vendor, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig(configAddr)
	if err != nil {
		return nil, err
	}
	venAuth, err := VendorAuthority(cfg.Address, vendorAuthority)
	if err != nil {
		return nil, err
	}
	existing, err := e.state.GetVendor(venAuth.Address())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrVendorExists
	}
	vendor := &Vendor{
		Authority:     vendorAuthority,
		Config:        cfg.Address,
		Address:       venAuth.Address(),
		PayoutAddress: venAuth.Address(),
		Seed:          seed,
		Whitelisted:   false,
		Bump:          venAuth.Bump(),
	}
	if err := e.state.EnsureBalance(vendor.PayoutAddress, cfg.Asset); err != nil {
		return nil, err
	}
	if err := e.state.PutVendor(vendor); err != nil {
		return nil, err
	}
	e.emit(events.BillingVendorRegistered{Config: cfg.Address, Address: vendor.Address, Authority: vendorAuthority})
	return vendor, nil
}

// SetVendorWhitelisted flips a vendor's whitelist flag. Only the config
// authority may do this.
func (e *Engine) SetVendorWhitelisted(configAddr crypto.Address, auth types.Authorizer, vendorAddr crypto.Address, whitelisted bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	cfg, err := e.loadConfig(configAddr)
	if err != nil {
		return err
	}
	if auth == nil || !auth.Authorizes(cfg.Authority) {
		return types.ErrUnauthorized
	}
	vendor, err := e.loadVendor(vendorAddr)
	if err != nil {
		return err
	}
	if !vendor.Config.Equal(cfg.Address) {
		return ErrInvalidVendor
	}
	vendor.Whitelisted = whitelisted
	if err := e.state.PutVendor(vendor); err != nil {
		return err
	}
	e.emit(events.BillingVendorWhitelisted{Vendor: vendor.Address, Whitelisted: whitelisted})
	return nil
}

// InitUser establishes the standing delegation for a user: it derives the
// delegated authority, verifies the yield engine's reserve and vault
// addresses against their expected derivations, and opens the custody vault
// with the delegated authority as owner. Run once at onboarding.
func (e *Engine) InitUser(configAddr, user crypto.Address) (crypto.Address, error) {
	if err := e.ready(); err != nil {
		return crypto.Address{}, err
	}
	if e.ys == nil {
		return crypto.Address{}, errNilYieldSource
	}
	cfg, err := e.loadConfig(configAddr)
	if err != nil {
		return crypto.Address{}, err
	}
	delegated, err := DelegatedAuthority(cfg.Address, user)
	if err != nil {
		return crypto.Address{}, err
	}
	reserveAddr, err := e.ys.ReserveAddress(cfg.Asset)
	if err != nil {
		return crypto.Address{}, err
	}
	expectedReserve, err := yield.ReserveAuthority(cfg.Asset)
	if err != nil {
		return crypto.Address{}, err
	}
	if !reserveAddr.Equal(expectedReserve.Address()) || !reserveAddr.Equal(cfg.YieldReserve) {
		return crypto.Address{}, ErrInvalidYieldReserve
	}
	if err := e.state.EnsureBalance(delegated.Address(), cfg.Asset); err != nil {
		return crypto.Address{}, err
	}
	vaultAddr, err := e.ys.OpenVault(cfg.Asset, delegated.Address())
	if err != nil {
		return crypto.Address{}, err
	}
	expectedVault, err := yield.VaultAuthority(reserveAddr, delegated.Address())
	if err != nil {
		return crypto.Address{}, err
	}
	if !vaultAddr.Equal(expectedVault.Address()) {
		return crypto.Address{}, ErrInvalidYieldAccount
	}
	e.emit(events.BillingUserOnboarded{Config: cfg.Address, User: user, Delegated: delegated.Address()})
	return delegated.Address(), nil
}

// Deposit moves the user's funds into their delegated custody and on into the
// yield engine, where they accrue until a payment pulls them back out.
func (e *Engine) Deposit(configAddr, user crypto.Address, auth types.Authorizer, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.ys == nil {
		return errNilYieldSource
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	cfg, err := e.loadConfig(configAddr)
	if err != nil {
		return err
	}
	if cfg.Locked {
		return ErrConfigLocked
	}
	delegated, err := DelegatedAuthority(cfg.Address, user)
	if err != nil {
		return err
	}
	if err := e.state.Transfer(user, delegated.Address(), cfg.Asset, amount, auth); err != nil {
		return err
	}
	if err := e.ys.Deposit(cfg.Asset, delegated.Address(), delegated, amount); err != nil {
		return err
	}
	e.emit(events.BillingDeposited{Config: cfg.Address, User: user, Amount: new(big.Int).Set(amount)})
	return nil
}

// Withdraw is the user's exit path: the delegated authority pulls amount back
// out of the yield engine and the funds return to the user's own balance.
// Mirrors Deposit in reverse.
func (e *Engine) Withdraw(configAddr, user crypto.Address, auth types.Authorizer, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.ys == nil {
		return errNilYieldSource
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if auth == nil || !auth.Authorizes(user) {
		return types.ErrUnauthorized
	}
	cfg, err := e.loadConfig(configAddr)
	if err != nil {
		return err
	}
	if cfg.Locked {
		return ErrConfigLocked
	}
	delegated, err := DelegatedAuthority(cfg.Address, user)
	if err != nil {
		return err
	}
	if err := e.ys.Withdraw(cfg.Asset, delegated.Address(), delegated, amount); err != nil {
		return err
	}
	if err := e.state.Transfer(delegated.Address(), user, cfg.Asset, amount, delegated); err != nil {
		return err
	}
	e.emit(events.BillingWithdrawn{Config: cfg.Address, User: user, Amount: new(big.Int).Set(amount)})
	return nil
}

func (e *Engine) loadConfig(addr crypto.Address) (*Config, error) {
	cfg, err := e.state.GetConfig(addr)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrConfigNotFound
	}
	return cfg, nil
}

func (e *Engine) loadVendor(addr crypto.Address) (*Vendor, error) {
	vendor, err := e.state.GetVendor(addr)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, ErrVendorNotFound
	}
	return vendor, nil
}

func (e *Engine) loadSubscription(addr crypto.Address) (*Subscription, error) {
	sub, err := e.state.GetSubscription(addr)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	if sub.AmountPerPayment == nil {
		sub.AmountPerPayment = big.NewInt(0)
	}
	return sub, nil
}

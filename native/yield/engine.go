package yield

import (
	"errors"
	"math/big"
	"time"

	"vaultpay/core/events"
	"vaultpay/core/types"
	"vaultpay/crypto"
	nativecommon "vaultpay/native/common"
)

var (
	errNilState = errors.New("yield engine: state not configured")

	// ErrInvalidAmount rejects nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("yield engine: amount must be positive")
	// ErrInsufficientFunds means the reserve float cannot cover the accrued
	// yield. The reserve is never allowed to go negative.
	ErrInsufficientFunds = errors.New("yield engine: insufficient reserve funds")
	// ErrMathUnderflow means a withdrawal exceeds the vault principal.
	ErrMathUnderflow = errors.New("yield engine: amount exceeds principal")
	// ErrClockRegression means the accrual clock moved backwards. Treated as
	// a fatal precondition failure, never silently floored to zero.
	ErrClockRegression = errors.New("yield engine: clock moved backwards")
	// ErrReserveExists rejects a second reserve for the same asset.
	ErrReserveExists = errors.New("yield engine: reserve already initialised")
	// ErrReserveNotFound means no reserve ledger exists for the asset.
	ErrReserveNotFound = errors.New("yield engine: reserve not found")
	// ErrVaultExists rejects a second vault for the same (reserve, owner).
	ErrVaultExists = errors.New("yield engine: vault already open")
	// ErrVaultNotFound means no vault exists for the (reserve, owner) pair.
	ErrVaultNotFound = errors.New("yield engine: vault not found")
	// ErrInvalidYieldReserve means the stored reserve bump no longer
	// re-derives the reserve authority.
	ErrInvalidYieldReserve = errors.New("yield engine: reserve authority mismatch")
	// ErrInvalidYieldAccount means the stored vault bump no longer re-derives
	// the vault authority.
	ErrInvalidYieldAccount = errors.New("yield engine: vault authority mismatch")
)

const moduleName = "yield"

type engineState interface {
	GetReserve(asset string) (*Reserve, error)
	PutReserve(*Reserve) error
	GetVault(reserve, owner crypto.Address) (*Account, error)
	PutVault(*Account) error
	Balance(addr crypto.Address, asset string) (*big.Int, error)
	EnsureBalance(addr crypto.Address, asset string) error
	Transfer(from, to crypto.Address, asset string, amount *big.Int, auth types.Authorizer) error
}

// Engine owns every mutation of reserve ledgers and depositor vaults. Accrual
// runs as a preamble inside each deposit, withdraw and claim so interest is
// always brought current before principal changes; changing principal first
// would corrupt the time-weighted calculation.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
	pauses  nativecommon.PauseView
}

// NewEngine creates a yield engine with a no-op emitter and the wall clock.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

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

// InitReserve creates the reserve ledger for an asset and seeds its float
// from the operator's balance.
func (e *Engine) InitReserve(authority crypto.Address, auth types.Authorizer, asset string, apyBps uint64, initialDeposit *big.Int) (*Reserve, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	existing, err := e.state.GetReserve(asset)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrReserveExists
	}
	reserveAuth, err := ReserveAuthority(asset)
	if err != nil {
		return nil, err
	}
	reserve := &Reserve{
		Authority: authority,
		Asset:     asset,
		Address:   reserveAuth.Address(),
		APYBps:    apyBps,
		Bump:      reserveAuth.Bump(),
	}
	if err := e.state.EnsureBalance(reserve.Address, asset); err != nil {
		return nil, err
	}
	if initialDeposit != nil && initialDeposit.Sign() > 0 {
		if err := e.state.Transfer(authority, reserve.Address, asset, initialDeposit, auth); err != nil {
			return nil, err
		}
	}
	if err := e.state.PutReserve(reserve); err != nil {
		return nil, err
	}
	e.emit(events.YieldReserveInitialized{Asset: asset, Address: reserve.Address, APYBps: apyBps})
	return reserve, nil
}

// FundReserve tops up the reserve float.
func (e *Engine) FundReserve(from crypto.Address, auth types.Authorizer, asset string, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	reserve, err := e.loadReserve(asset)
	if err != nil {
		return err
	}
	if err := e.state.Transfer(from, reserve.Address, asset, amount, auth); err != nil {
		return err
	}
	e.emit(events.YieldReserveFunded{Asset: asset, From: from, Amount: new(big.Int).Set(amount)})
	return nil
}

// ReserveAddress reports the derived address of the asset's reserve ledger.
func (e *Engine) ReserveAddress(asset string) (crypto.Address, error) {
	if e == nil || e.state == nil {
		return crypto.Address{}, errNilState
	}
	reserve, err := e.loadReserve(asset)
	if err != nil {
		return crypto.Address{}, err
	}
	return reserve.Address, nil
}

// OpenVault creates a vault for (reserve, owner) with zero principal and
// yield. The owner is supplied by the caller rather than taken from a signer
// so a delegating component can open vaults for authorities it controls.
func (e *Engine) OpenVault(asset string, owner crypto.Address) (crypto.Address, error) {
	if e == nil || e.state == nil {
		return crypto.Address{}, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return crypto.Address{}, err
	}
	reserve, err := e.loadReserve(asset)
	if err != nil {
		return crypto.Address{}, err
	}
	existing, err := e.state.GetVault(reserve.Address, owner)
	if err != nil {
		return crypto.Address{}, err
	}
	if existing != nil {
		return crypto.Address{}, ErrVaultExists
	}
	vaultAuth, err := VaultAuthority(reserve.Address, owner)
	if err != nil {
		return crypto.Address{}, err
	}
	vault := &Account{
		Owner:          owner,
		Reserve:        reserve.Address,
		Asset:          asset,
		Address:        vaultAuth.Address(),
		Principal:      big.NewInt(0),
		UnclaimedYield: big.NewInt(0),
		LastUpdate:     e.now(),
		Bump:           vaultAuth.Bump(),
	}
	if err := e.state.EnsureBalance(vault.Address, asset); err != nil {
		return crypto.Address{}, err
	}
	if err := e.state.PutVault(vault); err != nil {
		return crypto.Address{}, err
	}
	e.emit(events.YieldVaultOpened{Asset: asset, Owner: owner, Address: vault.Address})
	return vault.Address, nil
}

// Deposit accrues outstanding yield, then moves amount from the owner's
// balance into the vault custody and increases principal by amount.
func (e *Engine) Deposit(asset string, owner crypto.Address, auth types.Authorizer, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	reserve, vault, err := e.loadPair(asset, owner)
	if err != nil {
		return err
	}
	if err := e.updateYield(reserve, vault); err != nil {
		return err
	}
	if err := e.state.Transfer(owner, vault.Address, asset, amount, auth); err != nil {
		return err
	}
	vault.Principal = new(big.Int).Add(vault.Principal, amount)
	if err := e.state.PutVault(vault); err != nil {
		return err
	}
	e.emit(events.YieldDeposited{Asset: asset, Owner: owner, Amount: new(big.Int).Set(amount)})
	return nil
}

// Withdraw accrues outstanding yield, then moves amount from the vault
// custody back to the owner, signed by the vault's derived authority, and
// decreases principal by amount.
func (e *Engine) Withdraw(asset string, owner crypto.Address, auth types.Authorizer, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if auth == nil || !auth.Authorizes(owner) {
		return types.ErrUnauthorized
	}
	reserve, vault, err := e.loadPair(asset, owner)
	if err != nil {
		return err
	}
	if err := e.updateYield(reserve, vault); err != nil {
		return err
	}
	if vault.Principal.Cmp(amount) < 0 {
		return ErrMathUnderflow
	}
	vaultAuth, err := crypto.AuthorityAt(vaultTag, vault.Bump, reserve.Address.Bytes(), owner.Bytes())
	if err != nil {
		return ErrInvalidYieldAccount
	}
	if err := e.state.Transfer(vault.Address, owner, asset, amount, vaultAuth); err != nil {
		return err
	}
	vault.Principal = new(big.Int).Sub(vault.Principal, amount)
	if err := e.state.PutVault(vault); err != nil {
		return err
	}
	e.emit(events.YieldWithdrawn{Asset: asset, Owner: owner, Amount: new(big.Int).Set(amount)})
	return nil
}

// Claim accrues outstanding yield, then pays the whole unclaimed yield out to
// the owner. Returns the amount paid; a zero claim is a no-op.
func (e *Engine) Claim(asset string, owner crypto.Address, auth types.Authorizer) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if auth == nil || !auth.Authorizes(owner) {
		return nil, types.ErrUnauthorized
	}
	reserve, vault, err := e.loadPair(asset, owner)
	if err != nil {
		return nil, err
	}
	if err := e.updateYield(reserve, vault); err != nil {
		return nil, err
	}
	claimed := new(big.Int).Set(vault.UnclaimedYield)
	if claimed.Sign() > 0 {
		vaultAuth, err := crypto.AuthorityAt(vaultTag, vault.Bump, reserve.Address.Bytes(), owner.Bytes())
		if err != nil {
			return nil, ErrInvalidYieldAccount
		}
		if err := e.state.Transfer(vault.Address, owner, asset, claimed, vaultAuth); err != nil {
			return nil, err
		}
		vault.UnclaimedYield = big.NewInt(0)
	}
	if err := e.state.PutVault(vault); err != nil {
		return nil, err
	}
	if claimed.Sign() > 0 {
		e.emit(events.YieldClaimed{Asset: asset, Owner: owner, Amount: new(big.Int).Set(claimed)})
	}
	return claimed, nil
}

// Vault returns the stored vault record for (asset, owner).
func (e *Engine) Vault(asset string, owner crypto.Address) (*Account, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	_, vault, err := e.loadPair(asset, owner)
	if err != nil {
		return nil, err
	}
	return vault, nil
}

// updateYield is the accrual preamble shared by deposit, withdraw and claim.
// It computes the compounded interest since LastUpdate, checks reserve
// solvency immediately before the payout transfer, moves the yield from the
// reserve float into the vault custody signed by the reserve authority, and
// stamps LastUpdate. Callers persist the vault afterwards.
func (e *Engine) updateYield(reserve *Reserve, vault *Account) error {
	now := e.now()
	if now < vault.LastUpdate {
		return ErrClockRegression
	}
	newYield := accruedYield(vault.Principal, reserve.APYBps, now-vault.LastUpdate)
	if newYield.Sign() > 0 {
		reserveAuth, err := crypto.AuthorityAt(reserveTag, reserve.Bump, []byte(reserve.Asset))
		if err != nil {
			return ErrInvalidYieldReserve
		}
		// Solvency is the last check before the transfer; nothing may run
		// between them inside the same atomic operation.
		float, err := e.state.Balance(reserve.Address, reserve.Asset)
		if err != nil {
			return err
		}
		if float.Cmp(newYield) < 0 {
			return ErrInsufficientFunds
		}
		if err := e.state.Transfer(reserve.Address, vault.Address, reserve.Asset, newYield, reserveAuth); err != nil {
			return err
		}
		vault.UnclaimedYield = new(big.Int).Add(vault.UnclaimedYield, newYield)
		e.emit(events.YieldAccrued{Asset: reserve.Asset, Owner: vault.Owner, Amount: new(big.Int).Set(newYield)})
	}
	vault.LastUpdate = now
	return nil
}

func (e *Engine) loadReserve(asset string) (*Reserve, error) {
	reserve, err := e.state.GetReserve(asset)
	if err != nil {
		return nil, err
	}
	if reserve == nil {
		return nil, ErrReserveNotFound
	}
	if reserve.Address.IsZero() {
		return nil, ErrInvalidYieldReserve
	}
	return reserve, nil
}

func (e *Engine) loadPair(asset string, owner crypto.Address) (*Reserve, *Account, error) {
	reserve, err := e.loadReserve(asset)
	if err != nil {
		return nil, nil, err
	}
	vault, err := e.state.GetVault(reserve.Address, owner)
	if err != nil {
		return nil, nil, err
	}
	if vault == nil {
		return nil, nil, ErrVaultNotFound
	}
	if vault.Principal == nil {
		vault.Principal = big.NewInt(0)
	}
	if vault.UnclaimedYield == nil {
		vault.UnclaimedYield = big.NewInt(0)
	}
	return reserve, vault, nil
}

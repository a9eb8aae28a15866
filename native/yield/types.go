package yield

import (
	"math/big"

	"vaultpay/crypto"
)

// Reserve is the shared per-asset pool that funds yield payouts. Its derived
// address doubles as the custody balance holding the float, so the balance
// authority is always the record itself.
type Reserve struct {
	// Authority is the operator account allowed to fund the reserve.
	Authority crypto.Address
	// Asset identifies the supported asset.
	Asset string
	// Address is the derived record address; also the custody balance.
	Address crypto.Address
	// APYBps is the annual percentage yield in basis points.
	APYBps uint64
	// Bump is the derivation discriminant, persisted so later operations can
	// re-prove signing authority over the custody balance.
	Bump uint8
}

// Account tracks one depositor vault: principal plus accrued but unclaimed
// yield. Principal never goes negative and LastUpdate never moves backwards.
type Account struct {
	// Owner is the address the vault was opened for. It may be a derived
	// authority when a delegating component opened the vault.
	Owner crypto.Address
	// Reserve references the reserve ledger this vault accrues from.
	Reserve crypto.Address
	// Asset identifies the vault's asset.
	Asset string
	// Address is the derived record address; also the custody balance.
	Address crypto.Address
	// Principal is the deposited amount excluding yield.
	Principal *big.Int
	// UnclaimedYield is accrued interest not yet paid out to the owner.
	UnclaimedYield *big.Int
	// LastUpdate is the unix timestamp of the last accrual.
	LastUpdate int64
	// Bump is the derivation discriminant for the vault authority.
	Bump uint8
}

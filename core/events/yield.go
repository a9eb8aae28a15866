package events

import (
	"math/big"

	"vaultpay/crypto"
)

const (
	// TypeYieldReserveInitialized is emitted when a reserve ledger is
	// created for an asset.
	TypeYieldReserveInitialized = "yield.reserve.initialized"
	// TypeYieldReserveFunded is emitted when the reserve float is topped up.
	TypeYieldReserveFunded = "yield.reserve.funded"
	// TypeYieldVaultOpened is emitted when a depositor vault is created.
	TypeYieldVaultOpened = "yield.vault.opened"
	// TypeYieldAccrued is emitted when update_yield moves interest from the
	// reserve into a vault's custody balance.
	TypeYieldAccrued = "yield.accrued"
	// TypeYieldDeposited is emitted after a principal deposit.
	TypeYieldDeposited = "yield.deposited"
	// TypeYieldWithdrawn is emitted after a principal withdrawal.
	TypeYieldWithdrawn = "yield.withdrawn"
	// TypeYieldClaimed is emitted when accrued yield is paid out to the
	// vault owner.
	TypeYieldClaimed = "yield.claimed"
)

type YieldReserveInitialized struct {
	Asset   string
	Address crypto.Address
	APYBps  uint64
}

func (YieldReserveInitialized) EventType() string { return TypeYieldReserveInitialized }

type YieldReserveFunded struct {
	Asset  string
	From   crypto.Address
	Amount *big.Int
}

func (YieldReserveFunded) EventType() string { return TypeYieldReserveFunded }

type YieldVaultOpened struct {
	Asset   string
	Owner   crypto.Address
	Address crypto.Address
}

func (YieldVaultOpened) EventType() string { return TypeYieldVaultOpened }

type YieldAccrued struct {
	Asset  string
	Owner  crypto.Address
	Amount *big.Int
}

func (YieldAccrued) EventType() string { return TypeYieldAccrued }

type YieldDeposited struct {
	Asset  string
	Owner  crypto.Address
	Amount *big.Int
}

func (YieldDeposited) EventType() string { return TypeYieldDeposited }

type YieldWithdrawn struct {
	Asset  string
	Owner  crypto.Address
	Amount *big.Int
}

func (YieldWithdrawn) EventType() string { return TypeYieldWithdrawn }

type YieldClaimed struct {
	Asset  string
	Owner  crypto.Address
	Amount *big.Int
}

func (YieldClaimed) EventType() string { return TypeYieldClaimed }

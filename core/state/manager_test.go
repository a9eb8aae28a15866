package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"vaultpay/core/types"
	"vaultpay/crypto"
	"vaultpay/native/billing"
	"vaultpay/native/yield"
	"vaultpay/storage"
)

func makeAddress(prefix crypto.AddressPrefix, suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(prefix, raw)
}

func TestBalanceDefaultsToZero(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	balance, err := manager.Balance(makeAddress(crypto.AccountPrefix, 0x01), "USDC")
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}

func TestTransferChecksAuthorityAndFunds(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	from := makeAddress(crypto.AccountPrefix, 0x01)
	to := makeAddress(crypto.AccountPrefix, 0x02)
	require.NoError(t, manager.Mint(from, "USDC", big.NewInt(1_000)))

	err := manager.Transfer(from, to, "USDC", big.NewInt(100), types.SignerAuthority{Addr: to})
	require.ErrorIs(t, err, types.ErrUnauthorized)

	err = manager.Transfer(from, to, "USDC", big.NewInt(2_000), types.SignerAuthority{Addr: from})
	require.ErrorIs(t, err, types.ErrInsufficientFunds)

	err = manager.Transfer(from, to, "USDC", big.NewInt(0), types.SignerAuthority{Addr: from})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	require.NoError(t, manager.Transfer(from, to, "USDC", big.NewInt(400), types.SignerAuthority{Addr: from}))
	fromBal, err := manager.Balance(from, "USDC")
	require.NoError(t, err)
	require.Equal(t, int64(600), fromBal.Int64())
	toBal, err := manager.Balance(to, "USDC")
	require.NoError(t, err)
	require.Equal(t, int64(400), toBal.Int64())
}

func TestBalancesAreScopedPerAsset(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := makeAddress(crypto.AccountPrefix, 0x01)
	require.NoError(t, manager.Mint(addr, "USDC", big.NewInt(100)))

	other, err := manager.Balance(addr, "EURC")
	require.NoError(t, err)
	require.Zero(t, other.Sign())
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)
	addr := makeAddress(crypto.AccountPrefix, 0x01)

	err := manager.WithTransaction(func(tx *Manager) error {
		return tx.Mint(addr, "USDC", big.NewInt(500))
	})
	require.NoError(t, err)

	balance, err := manager.Balance(addr, "USDC")
	require.NoError(t, err)
	require.Equal(t, int64(500), balance.Int64())
}

func TestWithTransactionDiscardsOnError(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := makeAddress(crypto.AccountPrefix, 0x01)
	require.NoError(t, manager.Mint(addr, "USDC", big.NewInt(100)))

	boom := errors.New("boom")
	err := manager.WithTransaction(func(tx *Manager) error {
		if err := tx.Mint(addr, "USDC", big.NewInt(1_000_000)); err != nil {
			return err
		}
		inside, err := tx.Balance(addr, "USDC")
		require.NoError(t, err)
		require.Equal(t, int64(1_000_100), inside.Int64())
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := manager.Balance(addr, "USDC")
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Int64())
}

func TestReserveRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	missing, err := manager.GetReserve("USDC")
	require.NoError(t, err)
	require.Nil(t, missing)

	reserve := &yield.Reserve{
		Authority: makeAddress(crypto.AccountPrefix, 0x01),
		Asset:     "USDC",
		Address:   makeAddress(crypto.DerivedPrefix, 0x02),
		APYBps:    500,
		Bump:      4,
	}
	require.NoError(t, manager.PutReserve(reserve))

	loaded, err := manager.GetReserve("USDC")
	require.NoError(t, err)
	require.Equal(t, reserve, loaded)
}

func TestVaultRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	reserveAddr := makeAddress(crypto.DerivedPrefix, 0x02)
	owner := makeAddress(crypto.AccountPrefix, 0x03)

	missing, err := manager.GetVault(reserveAddr, owner)
	require.NoError(t, err)
	require.Nil(t, missing)

	vault := &yield.Account{
		Owner:          owner,
		Reserve:        reserveAddr,
		Asset:          "USDC",
		Address:        makeAddress(crypto.DerivedPrefix, 0x04),
		Principal:      big.NewInt(1_000_000),
		UnclaimedYield: big.NewInt(42),
		LastUpdate:     1_700_000_000,
		Bump:           1,
	}
	require.NoError(t, manager.PutVault(vault))

	loaded, err := manager.GetVault(reserveAddr, owner)
	require.NoError(t, err)
	require.Equal(t, vault, loaded)
}

func TestBillingRecordRoundTrips(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	cfg := &billing.Config{
		Authority:               makeAddress(crypto.AccountPrefix, 0x01),
		Seed:                    7,
		PlatformFeeBps:          250,
		MinSubscriptionDuration: 100,
		MaxSubscriptionDuration: 1_000_000,
		Asset:                   "USDC",
		YieldReserve:            makeAddress(crypto.DerivedPrefix, 0x02),
		Address:                 makeAddress(crypto.DerivedPrefix, 0x03),
		TreasuryAddress:         makeAddress(crypto.DerivedPrefix, 0x03),
		Locked:                  false,
		Bump:                    2,
	}
	require.NoError(t, manager.PutConfig(cfg))
	loadedCfg, err := manager.GetConfig(cfg.Address)
	require.NoError(t, err)
	require.Equal(t, cfg, loadedCfg)

	vendor := &billing.Vendor{
		Authority:     makeAddress(crypto.AccountPrefix, 0x04),
		Config:        cfg.Address,
		Address:       makeAddress(crypto.DerivedPrefix, 0x05),
		PayoutAddress: makeAddress(crypto.DerivedPrefix, 0x05),
		Seed:          3,
		Whitelisted:   true,
		Bump:          9,
	}
	require.NoError(t, manager.PutVendor(vendor))
	loadedVendor, err := manager.GetVendor(vendor.Address)
	require.NoError(t, err)
	require.Equal(t, vendor, loadedVendor)

	sub := &billing.Subscription{
		User:             makeAddress(crypto.AccountPrefix, 0x06),
		Vendor:           vendor.Address,
		Address:          makeAddress(crypto.DerivedPrefix, 0x07),
		Seed:             1,
		StartTime:        1_700_000_000,
		PeriodSeconds:    2_592_000,
		AmountPerPayment: big.NewInt(10_000),
		NumberOfPayments: 12,
		PaymentsMade:     3,
		Status:           billing.StatusActive,
		Locked:           false,
		Bump:             5,
	}
	require.NoError(t, manager.PutSubscription(sub))
	loadedSub, err := manager.GetSubscription(sub.Address)
	require.NoError(t, err)
	require.Equal(t, sub, loadedSub)

	missing, err := manager.GetSubscription(makeAddress(crypto.DerivedPrefix, 0x7f))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestMintRejectsNonPositiveAmounts(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := makeAddress(crypto.AccountPrefix, 0x01)

	require.ErrorIs(t, manager.Mint(addr, "USDC", nil), types.ErrInvalidAmount)
	require.ErrorIs(t, manager.Mint(addr, "USDC", big.NewInt(0)), types.ErrInvalidAmount)
	require.ErrorIs(t, manager.Mint(addr, "USDC", big.NewInt(-5)), types.ErrInvalidAmount)

	balance, err := manager.Balance(addr, "USDC")
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
}

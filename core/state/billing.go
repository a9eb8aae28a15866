package state

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"vaultpay/core/types"
	"vaultpay/crypto"
	"vaultpay/native/billing"
	"vaultpay/storage"
)

var (
	configPrefix       = []byte("billing-config:")
	vendorPrefix       = []byte("billing-vendor:")
	subscriptionPrefix = []byte("billing-subscription:")
)

type storedConfig struct {
	Authority               storedAddress
	Seed                    uint64
	PlatformFeeBps          uint64
	MinSubscriptionDuration uint64
	MaxSubscriptionDuration uint64
	Asset                   string
	YieldReserve            storedAddress
	Address                 storedAddress
	TreasuryAddress         storedAddress
	Locked                  bool
	Bump                    uint8
}

type storedVendor struct {
	Authority     storedAddress
	Config        storedAddress
	Address       storedAddress
	PayoutAddress storedAddress
	Seed          uint64
	Whitelisted   bool
	Bump          uint8
}

type storedSubscription struct {
	User             storedAddress
	Vendor           storedAddress
	Address          storedAddress
	Seed             uint64
	StartTime        uint64
	PeriodSeconds    uint64
	AmountPerPayment *big.Int
	NumberOfPayments uint32
	PaymentsMade     uint32
	Status           uint8
	Locked           bool
	Bump             uint8
}

func recordKey(prefix []byte, addr crypto.Address) []byte {
	raw := addr.Bytes()
	buf := make([]byte, 0, len(prefix)+len(raw))
	buf = append(buf, prefix...)
	buf = append(buf, raw...)
	return ethcrypto.Keccak256(buf)
}

// GetConfig loads the billing config at the derived address, or nil.
func (m *Manager) GetConfig(addr crypto.Address) (*billing.Config, error) {
	data, err := m.db.Get(recordKey(configPrefix, addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedConfig
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	return &billing.Config{
		Authority:               decodeAddress(stored.Authority),
		Seed:                    stored.Seed,
		PlatformFeeBps:          stored.PlatformFeeBps,
		MinSubscriptionDuration: stored.MinSubscriptionDuration,
		MaxSubscriptionDuration: stored.MaxSubscriptionDuration,
		Asset:                   stored.Asset,
		YieldReserve:            decodeAddress(stored.YieldReserve),
		Address:                 decodeAddress(stored.Address),
		TreasuryAddress:         decodeAddress(stored.TreasuryAddress),
		Locked:                  stored.Locked,
		Bump:                    stored.Bump,
	}, nil
}

// PutConfig persists a billing config record.
func (m *Manager) PutConfig(cfg *billing.Config) error {
	data, err := rlp.EncodeToBytes(&storedConfig{
		Authority:               encodeAddress(cfg.Authority),
		Seed:                    cfg.Seed,
		PlatformFeeBps:          cfg.PlatformFeeBps,
		MinSubscriptionDuration: cfg.MinSubscriptionDuration,
		MaxSubscriptionDuration: cfg.MaxSubscriptionDuration,
		Asset:                   cfg.Asset,
		YieldReserve:            encodeAddress(cfg.YieldReserve),
		Address:                 encodeAddress(cfg.Address),
		TreasuryAddress:         encodeAddress(cfg.TreasuryAddress),
		Locked:                  cfg.Locked,
		Bump:                    cfg.Bump,
	})
	if err != nil {
		return err
	}
	return m.db.Put(recordKey(configPrefix, cfg.Address), data)
}

// GetVendor loads the vendor record at the derived address, or nil.
func (m *Manager) GetVendor(addr crypto.Address) (*billing.Vendor, error) {
	data, err := m.db.Get(recordKey(vendorPrefix, addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedVendor
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	return &billing.Vendor{
		Authority:     decodeAddress(stored.Authority),
		Config:        decodeAddress(stored.Config),
		Address:       decodeAddress(stored.Address),
		PayoutAddress: decodeAddress(stored.PayoutAddress),
		Seed:          stored.Seed,
		Whitelisted:   stored.Whitelisted,
		Bump:          stored.Bump,
	}, nil
}

// PutVendor persists a vendor record.
func (m *Manager) PutVendor(vendor *billing.Vendor) error {
	data, err := rlp.EncodeToBytes(&storedVendor{
		Authority:     encodeAddress(vendor.Authority),
		Config:        encodeAddress(vendor.Config),
		Address:       encodeAddress(vendor.Address),
		PayoutAddress: encodeAddress(vendor.PayoutAddress),
		Seed:          vendor.Seed,
		Whitelisted:   vendor.Whitelisted,
		Bump:          vendor.Bump,
	})
	if err != nil {
		return err
	}
	return m.db.Put(recordKey(vendorPrefix, vendor.Address), data)
}

// GetSubscription loads the subscription record at the derived address, or
// nil.
func (m *Manager) GetSubscription(addr crypto.Address) (*billing.Subscription, error) {
	data, err := m.db.Get(recordKey(subscriptionPrefix, addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedSubscription
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	return &billing.Subscription{
		User:             decodeAddress(stored.User),
		Vendor:           decodeAddress(stored.Vendor),
		Address:          decodeAddress(stored.Address),
		Seed:             stored.Seed,
		StartTime:        int64(stored.StartTime),
		PeriodSeconds:    stored.PeriodSeconds,
		AmountPerPayment: stored.AmountPerPayment,
		NumberOfPayments: stored.NumberOfPayments,
		PaymentsMade:     stored.PaymentsMade,
		Status:           billing.SubscriptionStatus(stored.Status),
		Locked:           stored.Locked,
		Bump:             stored.Bump,
	}, nil
}

// PutSubscription persists a subscription record.
func (m *Manager) PutSubscription(sub *billing.Subscription) error {
	amount := sub.AmountPerPayment
	if amount == nil {
		amount = big.NewInt(0)
	}
	data, err := rlp.EncodeToBytes(&storedSubscription{
		User:             encodeAddress(sub.User),
		Vendor:           encodeAddress(sub.Vendor),
		Address:          encodeAddress(sub.Address),
		Seed:             sub.Seed,
		StartTime:        uint64(sub.StartTime),
		PeriodSeconds:    sub.PeriodSeconds,
		AmountPerPayment: amount,
		NumberOfPayments: sub.NumberOfPayments,
		PaymentsMade:     sub.PaymentsMade,
		Status:           uint8(sub.Status),
		Locked:           sub.Locked,
		Bump:             sub.Bump,
	})
	if err != nil {
		return err
	}
	return m.db.Put(recordKey(subscriptionPrefix, sub.Address), data)
}

// Mint credits newly issued units to an address. Host-level bootstrap helper
// used when seeding balances; not reachable from any engine operation.
func (m *Manager) Mint(addr crypto.Address, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return types.ErrInvalidAmount
	}
	balance, err := m.Balance(addr, asset)
	if err != nil {
		return err
	}
	return m.setBalance(addr, asset, new(big.Int).Add(balance, amount))
}

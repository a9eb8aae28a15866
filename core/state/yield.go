package state

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"vaultpay/crypto"
	"vaultpay/native/yield"
	"vaultpay/storage"
)

var (
	reservePrefix = []byte("yield-reserve:")
	vaultPrefix   = []byte("yield-vault:")
)

// storedAddress is the RLP-friendly form of crypto.Address. An empty Bytes
// slice round-trips to the zero address.
type storedAddress struct {
	Prefix string
	Bytes  []byte
}

func encodeAddress(a crypto.Address) storedAddress {
	return storedAddress{Prefix: string(a.Prefix()), Bytes: a.Bytes()}
}

func decodeAddress(s storedAddress) crypto.Address {
	if len(s.Bytes) != 20 {
		return crypto.Address{}
	}
	return crypto.NewAddress(crypto.AddressPrefix(s.Prefix), s.Bytes)
}

type storedReserve struct {
	Authority storedAddress
	Asset     string
	Address   storedAddress
	APYBps    uint64
	Bump      uint8
}

type storedVault struct {
	Owner          storedAddress
	Reserve        storedAddress
	Asset          string
	Address        storedAddress
	Principal      *big.Int
	UnclaimedYield *big.Int
	LastUpdate     uint64
	Bump           uint8
}

func reserveKey(asset string) []byte {
	buf := make([]byte, 0, len(reservePrefix)+len(asset))
	buf = append(buf, reservePrefix...)
	buf = append(buf, asset...)
	return ethcrypto.Keccak256(buf)
}

func vaultKey(reserve, owner crypto.Address) []byte {
	buf := make([]byte, 0, len(vaultPrefix)+40)
	buf = append(buf, vaultPrefix...)
	buf = append(buf, reserve.Bytes()...)
	buf = append(buf, owner.Bytes()...)
	return ethcrypto.Keccak256(buf)
}

// GetReserve loads the reserve ledger for an asset, or nil when absent.
func (m *Manager) GetReserve(asset string) (*yield.Reserve, error) {
	data, err := m.db.Get(reserveKey(asset))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedReserve
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	return &yield.Reserve{
		Authority: decodeAddress(stored.Authority),
		Asset:     stored.Asset,
		Address:   decodeAddress(stored.Address),
		APYBps:    stored.APYBps,
		Bump:      stored.Bump,
	}, nil
}

// PutReserve persists a reserve ledger record.
func (m *Manager) PutReserve(reserve *yield.Reserve) error {
	data, err := rlp.EncodeToBytes(&storedReserve{
		Authority: encodeAddress(reserve.Authority),
		Asset:     reserve.Asset,
		Address:   encodeAddress(reserve.Address),
		APYBps:    reserve.APYBps,
		Bump:      reserve.Bump,
	})
	if err != nil {
		return err
	}
	return m.db.Put(reserveKey(reserve.Asset), data)
}

// GetVault loads the vault record for (reserve, owner), or nil when absent.
func (m *Manager) GetVault(reserve, owner crypto.Address) (*yield.Account, error) {
	data, err := m.db.Get(vaultKey(reserve, owner))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedVault
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	return &yield.Account{
		Owner:          decodeAddress(stored.Owner),
		Reserve:        decodeAddress(stored.Reserve),
		Asset:          stored.Asset,
		Address:        decodeAddress(stored.Address),
		Principal:      stored.Principal,
		UnclaimedYield: stored.UnclaimedYield,
		LastUpdate:     int64(stored.LastUpdate),
		Bump:           stored.Bump,
	}, nil
}

// PutVault persists a vault record.
func (m *Manager) PutVault(vault *yield.Account) error {
	principal := vault.Principal
	if principal == nil {
		principal = big.NewInt(0)
	}
	unclaimed := vault.UnclaimedYield
	if unclaimed == nil {
		unclaimed = big.NewInt(0)
	}
	data, err := rlp.EncodeToBytes(&storedVault{
		Owner:          encodeAddress(vault.Owner),
		Reserve:        encodeAddress(vault.Reserve),
		Asset:          vault.Asset,
		Address:        encodeAddress(vault.Address),
		Principal:      principal,
		UnclaimedYield: unclaimed,
		LastUpdate:     uint64(vault.LastUpdate),
		Bump:           vault.Bump,
	})
	if err != nil {
		return err
	}
	return m.db.Put(vaultKey(vault.Reserve, vault.Owner), data)
}

package state

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"vaultpay/core/types"
	"vaultpay/crypto"
	"vaultpay/storage"
)

var balancePrefix = []byte("balance:")

// Manager reads and writes every persistent ledger record. It implements the
// state contracts of both native engines on top of a plain key-value store,
// with keccak-hashed record keys so unrelated records can never collide.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// WithTransaction runs fn against a staged overlay of the store. If fn
// returns an error nothing is written; otherwise every staged write lands in
// one flush. This is the all-or-nothing envelope multi-step operations such
// as payment processing rely on.
func (m *Manager) WithTransaction(fn func(*Manager) error) error {
	staged := newOverlay(m.db)
	if err := fn(&Manager{db: staged}); err != nil {
		return err
	}
	return staged.flush()
}

func balanceKey(addr crypto.Address, asset string) []byte {
	raw := addr.Bytes()
	buf := make([]byte, 0, len(balancePrefix)+len(asset)+1+len(raw))
	buf = append(buf, balancePrefix...)
	buf = append(buf, asset...)
	buf = append(buf, ':')
	buf = append(buf, raw...)
	return ethcrypto.Keccak256(buf)
}

// Balance returns the custody balance for (addr, asset). Missing balances
// read as zero.
func (m *Manager) Balance(addr crypto.Address, asset string) (*big.Int, error) {
	data, err := m.db.Get(balanceKey(addr, asset))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (m *Manager) setBalance(addr crypto.Address, asset string, balance *big.Int) error {
	data, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return err
	}
	return m.db.Put(balanceKey(addr, asset), data)
}

// EnsureBalance provisions a zero custody balance for (addr, asset) if none
// exists yet. Idempotent.
func (m *Manager) EnsureBalance(addr crypto.Address, asset string) error {
	ok, err := m.db.Has(balanceKey(addr, asset))
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return m.setBalance(addr, asset, big.NewInt(0))
}

// Transfer atomically moves amount between custody balances. It fails when
// the source cannot cover the amount or when the authorizer cannot prove
// authority over the source address.
func (m *Manager) Transfer(from, to crypto.Address, asset string, amount *big.Int, auth types.Authorizer) error {
	if amount == nil || amount.Sign() <= 0 {
		return types.ErrInvalidAmount
	}
	if auth == nil || !auth.Authorizes(from) {
		return types.ErrUnauthorized
	}
	fromBalance, err := m.Balance(from, asset)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return types.ErrInsufficientFunds
	}
	toBalance, err := m.Balance(to, asset)
	if err != nil {
		return err
	}
	if err := m.setBalance(from, asset, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return m.setBalance(to, asset, new(big.Int).Add(toBalance, amount))
}

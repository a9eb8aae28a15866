package types

import (
	"errors"

	"vaultpay/crypto"
)

var (
	// ErrUnauthorized is returned when an authorizer cannot prove authority
	// over the balance it is trying to move.
	ErrUnauthorized = errors.New("types: authorizer cannot act for address")
	// ErrInsufficientFunds is returned when a balance cannot cover a debit.
	ErrInsufficientFunds = errors.New("types: insufficient funds")
	// ErrInvalidAmount is returned for nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("types: amount must be positive")
)

// Authorizer proves the right to move funds out of an address. The hosting
// environment supplies SignerAuthority values for externally signed
// operations; crypto.Authority values cover derived, keyless addresses.
type Authorizer interface {
	Authorizes(addr crypto.Address) bool
}

// SignerAuthority represents an external account whose signature the host has
// already verified. It authorizes exactly its own address.
type SignerAuthority struct {
	Addr crypto.Address
}

func (s SignerAuthority) Authorizes(addr crypto.Address) bool {
	return !s.Addr.IsZero() && s.Addr.Equal(addr)
}

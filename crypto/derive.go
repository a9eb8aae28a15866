package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// derivationDomain separates authority derivation from every other keccak use
// in the system. Changing it changes every derived address.
const derivationDomain = "vaultpay/derived/v1"

var (
	// ErrNoValidBump is returned when no bump in [0,255] produces a valid
	// derived address for the seed tuple.
	ErrNoValidBump = errors.New("crypto: no valid bump for seed tuple")
	// ErrInvalidBump is returned when a stored bump does not re-derive the
	// canonical authority for its seeds.
	ErrInvalidBump = errors.New("crypto: bump does not match derivation")
)

// Authority is the capability to act as a derived, keyless address. It is
// only obtainable by presenting the full seed tuple to the derivation, so
// holding a value of this type proves the holder ran the deriving logic.
// Authorities are passed explicitly through function arguments; there is no
// ambient registry.
type Authority struct {
	addr  Address
	tag   string
	seeds [][]byte
	bump  uint8
}

// DeriveAuthority computes the authority for (tag, seeds...) using the
// smallest bump whose digest is valid. Identical inputs always produce the
// identical address. A digest that begins with a compressed-secp256k1 point
// prefix is rejected, so no private key can ever be presented for the derived
// address.
func DeriveAuthority(tag string, seeds ...[]byte) (Authority, error) {
	for bump := 0; bump <= 255; bump++ {
		digest := derivationDigest(tag, seeds, uint8(bump))
		if !validDerivation(digest) {
			continue
		}
		return Authority{
			addr:  NewAddress(DerivedPrefix, digest[12:32]),
			tag:   tag,
			seeds: cloneSeeds(seeds),
			bump:  uint8(bump),
		}, nil
	}
	return Authority{}, ErrNoValidBump
}

// AuthorityAt re-proves a previously derived authority from its stored bump.
// The bump must be the canonical (smallest valid) one for the seed tuple;
// anything else is a hard failure.
func AuthorityAt(tag string, bump uint8, seeds ...[]byte) (Authority, error) {
	auth, err := DeriveAuthority(tag, seeds...)
	if err != nil {
		return Authority{}, err
	}
	if auth.bump != bump {
		return Authority{}, fmt.Errorf("%w: have %d want %d", ErrInvalidBump, bump, auth.bump)
	}
	return auth, nil
}

// Address returns the derived address the authority may act as.
func (a Authority) Address() Address { return a.addr }

// Bump returns the discriminant that must be persisted alongside any record
// using this authority.
func (a Authority) Bump() uint8 { return a.bump }

// Tag returns the derivation tag.
func (a Authority) Tag() string { return a.tag }

// Authorizes reports whether the authority may move funds out of addr. A
// derived authority only ever speaks for its own address.
func (a Authority) Authorizes(addr Address) bool {
	return !a.addr.IsZero() && a.addr.Equal(addr)
}

func derivationDigest(tag string, seeds [][]byte, bump uint8) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	buf := make([]byte, 0, 64)
	buf = append(buf, derivationDomain...)
	n := binary.PutUvarint(lenBuf[:], uint64(len(tag)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, tag...)
	for _, seed := range seeds {
		n = binary.PutUvarint(lenBuf[:], uint64(len(seed)))
		buf = append(buf, lenBuf[:n]...)
		buf = append(buf, seed...)
	}
	buf = append(buf, bump)
	return ethcrypto.Keccak256(buf)
}

// validDerivation rejects digests whose leading byte matches a compressed
// secp256k1 public key prefix. Such a digest could double as a key-backed
// account preimage, which would break the no-private-key guarantee.
func validDerivation(digest []byte) bool {
	return digest[0] != 0x02 && digest[0] != 0x03
}

func cloneSeeds(seeds [][]byte) [][]byte {
	out := make([][]byte, len(seeds))
	for i, seed := range seeds {
		out[i] = append([]byte(nil), seed...)
	}
	return out
}

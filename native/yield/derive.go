package yield

import "vaultpay/crypto"

const (
	reserveTag = "yield_reserve"
	vaultTag   = "yield_account"
)

// ReserveAuthority derives the signing authority for an asset's reserve. Pure;
// safe to call without any state.
func ReserveAuthority(asset string) (crypto.Authority, error) {
	return crypto.DeriveAuthority(reserveTag, []byte(asset))
}

// VaultAuthority derives the signing authority for a depositor vault under the
// given reserve.
func VaultAuthority(reserve, owner crypto.Address) (crypto.Authority, error) {
	return crypto.DeriveAuthority(vaultTag, reserve.Bytes(), owner.Bytes())
}

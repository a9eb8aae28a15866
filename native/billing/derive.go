package billing

import "vaultpay/crypto"

const (
	configTag       = "config"
	vendorTag       = "vendor"
	subscriptionTag = "subscription"
	delegatedTag    = "vaultpay_authority"
)

// ConfigAuthority derives the record and treasury authority for an
// (asset, operator) pairing.
func ConfigAuthority(asset string, authority crypto.Address) (crypto.Authority, error) {
	return crypto.DeriveAuthority(configTag, []byte(asset), authority.Bytes())
}

// VendorAuthority derives the record and payout authority for a vendor under
// a config.
func VendorAuthority(config, vendorAuthority crypto.Address) (crypto.Authority, error) {
	return crypto.DeriveAuthority(vendorTag, config.Bytes(), vendorAuthority.Bytes())
}

// SubscriptionAuthority derives the record address for a (vendor, user)
// agreement.
func SubscriptionAuthority(vendor, user crypto.Address) (crypto.Authority, error) {
	return crypto.DeriveAuthority(subscriptionTag, vendor.Bytes(), user.Bytes())
}

// DelegatedAuthority derives the standing per-user authority the billing
// ledger uses to act inside the yield engine without the user co-signing each
// payment. Scoped by config so delegations never cross platforms.
func DelegatedAuthority(config, user crypto.Address) (crypto.Authority, error) {
	return crypto.DeriveAuthority(delegatedTag, config.Bytes(), user.Bytes())
}

package core

import (
	"errors"
	"math/big"
	"testing"

	"vaultpay/config"
	"vaultpay/core/types"
	"vaultpay/crypto"
	"vaultpay/native/billing"
	nativecommon "vaultpay/native/common"
	"vaultpay/native/yield"
	"vaultpay/storage"
)

const (
	testAsset      = "USDC"
	secondsPerYear = 365 * 24 * 60 * 60
)

func makeAddress(prefix crypto.AddressPrefix, suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(prefix, raw)
}

type testPlatform struct {
	node      *Node
	now       int64
	operator  crypto.Address
	cfg       *billing.Config
	vendor    *billing.Vendor
	user      crypto.Address
	delegated crypto.Address
}

func newTestPlatform(t *testing.T) *testPlatform {
	t.Helper()
	p := &testPlatform{
		node:     NewNode(storage.NewMemDB()),
		operator: makeAddress(crypto.AccountPrefix, 0x01),
		user:     makeAddress(crypto.AccountPrefix, 0x02),
	}
	p.node.SetNowFunc(func() int64 { return p.now })

	if err := p.node.Mint(p.operator, testAsset, big.NewInt(10_000_000)); err != nil {
		t.Fatalf("mint operator: %v", err)
	}
	if err := p.node.Mint(p.user, testAsset, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("mint user: %v", err)
	}

	operatorAuth := types.SignerAuthority{Addr: p.operator}
	if _, err := p.node.InitReserve(p.operator, operatorAuth, testAsset, 500, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("init reserve: %v", err)
	}
	reserveAuth, err := yield.ReserveAuthority(testAsset)
	if err != nil {
		t.Fatalf("derive reserve: %v", err)
	}
	cfg, err := p.node.InitBillingConfig(p.operator, testAsset, 0, 250, 100, 10*secondsPerYear, reserveAuth.Address())
	if err != nil {
		t.Fatalf("init billing config: %v", err)
	}
	p.cfg = cfg

	vendorAuthority := makeAddress(crypto.AccountPrefix, 0x03)
	vendor, err := p.node.InitVendor(cfg.Address, vendorAuthority, 0)
	if err != nil {
		t.Fatalf("init vendor: %v", err)
	}
	p.vendor = vendor
	if err := p.node.SetVendorWhitelisted(cfg.Address, operatorAuth, vendor.Address, true); err != nil {
		t.Fatalf("whitelist vendor: %v", err)
	}

	delegated, err := p.node.OnboardUser(cfg.Address, p.user)
	if err != nil {
		t.Fatalf("onboard user: %v", err)
	}
	p.delegated = delegated
	return p
}

func (p *testPlatform) balance(t *testing.T, addr crypto.Address) int64 {
	t.Helper()
	balance, err := p.node.Balance(addr, testAsset)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance.Int64()
}

func TestFullBillingFlow(t *testing.T) {
	p := newTestPlatform(t)
	userAuth := types.SignerAuthority{Addr: p.user}

	if err := p.node.BillingDeposit(p.cfg.Address, p.user, userAuth, big.NewInt(100_000)); err != nil {
		t.Fatalf("billing deposit: %v", err)
	}
	if got := p.balance(t, p.user); got != 900_000 {
		t.Fatalf("unexpected user balance after deposit: %d", got)
	}

	sub, err := p.node.CreateSubscription(p.vendor.Address, p.user, 0, big.NewInt(10_000), 4, 2_592_000)
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	// A year passes, the custody vault accrues against the reserve, then the
	// payment splits 250 bps into the treasury.
	p.now = secondsPerYear
	if err := p.node.ProcessPayment(p.cfg.Address, p.vendor.Address, sub.Address, p.delegated); err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if got := p.balance(t, p.vendor.PayoutAddress); got != 9_750 {
		t.Fatalf("unexpected vendor payout: %d", got)
	}
	if got := p.balance(t, p.cfg.TreasuryAddress); got != 250 {
		t.Fatalf("unexpected treasury balance: %d", got)
	}

	vault, err := p.node.Vault(testAsset, p.delegated)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	if vault.Principal.Cmp(big.NewInt(90_000)) != 0 {
		t.Fatalf("unexpected principal: %s", vault.Principal)
	}
	// 5% on 100000 principal accrued before the withdrawal.
	if vault.UnclaimedYield.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("unexpected unclaimed yield: %s", vault.UnclaimedYield)
	}

	claimed, err := p.node.ClaimTreasury(p.cfg.Address, types.SignerAuthority{Addr: p.operator}, nil)
	if err != nil {
		t.Fatalf("claim treasury: %v", err)
	}
	if claimed.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("unexpected treasury claim: %s", claimed)
	}
}

func TestProcessPaymentRollsBackAtomically(t *testing.T) {
	p := newTestPlatform(t)
	userAuth := types.SignerAuthority{Addr: p.user}

	if err := p.node.BillingDeposit(p.cfg.Address, p.user, userAuth, big.NewInt(5_000)); err != nil {
		t.Fatalf("billing deposit: %v", err)
	}
	sub, err := p.node.CreateSubscription(p.vendor.Address, p.user, 0, big.NewInt(10_000), 4, 2_592_000)
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	reserveBefore := p.balance(t, p.cfg.YieldReserve)

	// The accrual preamble succeeds but the principal withdrawal cannot cover
	// the payment. Everything staged so far, the accrual included, must be
	// discarded.
	p.now = secondsPerYear
	err = p.node.ProcessPayment(p.cfg.Address, p.vendor.Address, sub.Address, p.delegated)
	if !errors.Is(err, yield.ErrMathUnderflow) {
		t.Fatalf("expected principal underflow, got %v", err)
	}

	vault, err := p.node.Vault(testAsset, p.delegated)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	if vault.UnclaimedYield.Sign() != 0 {
		t.Fatalf("accrual leaked out of the failed transaction: %s", vault.UnclaimedYield)
	}
	if vault.LastUpdate != 0 {
		t.Fatalf("accrual timestamp leaked out of the failed transaction: %d", vault.LastUpdate)
	}
	if got := p.balance(t, p.cfg.YieldReserve); got != reserveBefore {
		t.Fatalf("reserve float changed across failed payment: %d != %d", got, reserveBefore)
	}
	if got := p.balance(t, p.vendor.PayoutAddress); got != 0 {
		t.Fatalf("vendor received funds from failed payment: %d", got)
	}
	if err := p.node.CancelSubscription(sub.Address, p.user, userAuth); err != nil {
		t.Fatalf("cancel after failed payment: %v", err)
	}
}

func TestBillingWithdrawExitPath(t *testing.T) {
	p := newTestPlatform(t)
	userAuth := types.SignerAuthority{Addr: p.user}

	if err := p.node.BillingDeposit(p.cfg.Address, p.user, userAuth, big.NewInt(100_000)); err != nil {
		t.Fatalf("billing deposit: %v", err)
	}

	// The full principal comes back out even with no vendor registered for
	// the user; accrued yield stays in the vault as unclaimed.
	p.now = secondsPerYear
	if err := p.node.BillingWithdraw(p.cfg.Address, p.user, userAuth, big.NewInt(100_000)); err != nil {
		t.Fatalf("billing withdraw: %v", err)
	}
	if got := p.balance(t, p.user); got != 1_000_000 {
		t.Fatalf("unexpected user balance after exit: %d", got)
	}
	vault, err := p.node.Vault(testAsset, p.delegated)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	if vault.Principal.Sign() != 0 {
		t.Fatalf("unexpected remaining principal: %s", vault.Principal)
	}
	if vault.UnclaimedYield.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("unexpected unclaimed yield: %s", vault.UnclaimedYield)
	}
}

func TestDirectYieldLifecycle(t *testing.T) {
	p := newTestPlatform(t)
	saver := makeAddress(crypto.AccountPrefix, 0x04)
	if err := p.node.Mint(saver, testAsset, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("mint saver: %v", err)
	}
	auth := types.SignerAuthority{Addr: saver}

	if _, err := p.node.OpenVault(testAsset, saver); err != nil {
		t.Fatalf("open vault: %v", err)
	}
	if err := p.node.YieldDeposit(testAsset, saver, auth, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("yield deposit: %v", err)
	}

	p.now = secondsPerYear
	claimed, err := p.node.ClaimYield(testAsset, saver, auth)
	if err != nil {
		t.Fatalf("claim yield: %v", err)
	}
	if claimed.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("unexpected yield: %s want 50000", claimed)
	}
	if err := p.node.YieldWithdraw(testAsset, saver, auth, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("yield withdraw: %v", err)
	}
	if got := p.balance(t, saver); got != 1_050_000 {
		t.Fatalf("unexpected saver balance: %d", got)
	}
}

func TestPausesBlockStateChanges(t *testing.T) {
	p := newTestPlatform(t)
	p.node.SetPauses(config.Pauses{Billing: true})

	userAuth := types.SignerAuthority{Addr: p.user}
	err := p.node.BillingDeposit(p.cfg.Address, p.user, userAuth, big.NewInt(1_000))
	if !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}

	p.node.SetPauses(config.Pauses{})
	if err := p.node.BillingDeposit(p.cfg.Address, p.user, userAuth, big.NewInt(1_000)); err != nil {
		t.Fatalf("deposit after unpause: %v", err)
	}
}

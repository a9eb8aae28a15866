package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)

	require.Equal(t, "./vaultpay-data", cfg.DataDir)
	require.Equal(t, "local", cfg.Environment)
	require.Equal(t, uint64(250), cfg.Billing.PlatformFeeBps)
	require.Len(t, cfg.Reserves, 1)
	require.Equal(t, "USDC", cfg.Reserves[0].Asset)

	// The written default must load back cleanly.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("DataDir = \"./d\"\nBogusKey = true\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "BogusKey")
}

func TestLoadValidatesBillingPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
DataDir = "./d"

[Billing]
PlatformFeeBps = 12000
MinSubscriptionDuration = 100
MaxSubscriptionDuration = 1000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PlatformFeeBps")
}

func TestLoadRejectsDuplicateReserves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
DataDir = "./d"

[[Reserve]]
Asset = "USDC"
APYBps = 500

[[Reserve]]
Asset = "USDC"
APYBps = 700
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate asset")
}

func TestPausesView(t *testing.T) {
	pauses := Pauses{Yield: true}
	require.True(t, pauses.IsPaused("yield"))
	require.False(t, pauses.IsPaused("billing"))
	require.False(t, pauses.IsPaused("unknown"))
}

package config

// Reserve declares one yield reserve the daemon provisions at startup.
type Reserve struct {
	Asset  string `toml:"Asset"`
	APYBps uint64 `toml:"APYBps"`
}

// Billing bundles the platform-wide billing policy applied when the daemon
// initialises a billing config for an asset.
type Billing struct {
	PlatformFeeBps          uint64 `toml:"PlatformFeeBps"`
	MinSubscriptionDuration uint64 `toml:"MinSubscriptionDuration"`
	MaxSubscriptionDuration uint64 `toml:"MaxSubscriptionDuration"`
}

// Logging controls structured log output and optional file rotation.
type Logging struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Pauses flags whole modules as halted. Engines refuse every state-changing
// operation for a paused module.
type Pauses struct {
	Yield   bool `toml:"Yield"`
	Billing bool `toml:"Billing"`
}

// IsPaused implements the pause view consumed by the native engines.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "yield":
		return p.Yield
	case "billing":
		return p.Billing
	}
	return false
}

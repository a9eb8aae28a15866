package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir        string    `toml:"DataDir"`
	Environment    string    `toml:"Environment"`
	MetricsAddress string    `toml:"MetricsAddress"`
	Logging        Logging   `toml:"Logging"`
	Reserves       []Reserve `toml:"Reserve"`
	Billing        Billing   `toml:"Billing"`
	Pauses         Pauses    `toml:"Pauses"`
}

// Load loads the configuration from the given path. A missing file is
// populated with defaults and written back so operators can edit it.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	applyDefaults(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./vaultpay-data"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.Billing.MaxSubscriptionDuration == 0 {
		cfg.Billing.MinSubscriptionDuration = 86_400
		cfg.Billing.MaxSubscriptionDuration = 31_536_000
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		MetricsAddress: ":9090",
		Billing: Billing{
			PlatformFeeBps:          250,
			MinSubscriptionDuration: 86_400,
			MaxSubscriptionDuration: 31_536_000,
		},
		Reserves: []Reserve{{Asset: "USDC", APYBps: 500}},
	}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

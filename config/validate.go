package config

import "fmt"

const maxBasisPoints = uint64(10_000)

// ValidateConfig rejects configurations that would make the engines refuse
// every operation at runtime.
func ValidateConfig(cfg *Config) error {
	if cfg.Billing.PlatformFeeBps > maxBasisPoints {
		return fmt.Errorf("billing: PlatformFeeBps > %d", maxBasisPoints)
	}
	if cfg.Billing.MinSubscriptionDuration > cfg.Billing.MaxSubscriptionDuration {
		return fmt.Errorf("billing: MinSubscriptionDuration > MaxSubscriptionDuration")
	}
	seen := make(map[string]struct{}, len(cfg.Reserves))
	for _, reserve := range cfg.Reserves {
		if reserve.Asset == "" {
			return fmt.Errorf("reserve: empty asset ticker")
		}
		if _, dup := seen[reserve.Asset]; dup {
			return fmt.Errorf("reserve: duplicate asset %q", reserve.Asset)
		}
		seen[reserve.Asset] = struct{}{}
	}
	return nil
}

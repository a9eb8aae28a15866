package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultpay/config"
	"vaultpay/core"
	"vaultpay/core/events"
	"vaultpay/crypto"
	"vaultpay/native/billing"
	"vaultpay/native/yield"
	"vaultpay/observability/logging"
	"vaultpay/observability/metrics"
	"vaultpay/storage"
)

const operatorKeyFile = "operator.key"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("VAULTPAY_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}

	logger := logging.Setup("vaultpayd", env, logging.Options{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	operatorKey, err := ensureOperatorKey(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to load operator key", slog.Any("error", err))
		os.Exit(1)
	}
	operator := operatorKey.PubKey().Address()
	logger.Info("operator identity loaded", slog.String("address", operator.String()))

	node := core.NewNode(db)
	node.SetEmitter(events.MultiEmitter{
		logging.NewEventLogger(logger),
		metrics.VaultPay(),
	})
	node.SetPauses(cfg.Pauses)

	if err := provision(node, cfg, operator, logger); err != nil {
		logger.Error("Failed to provision ledgers", slog.Any("error", err))
		os.Exit(1)
	}

	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics listener started", slog.String("address", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics listener stopped", slog.Any("error", err))
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
}

// provision creates the configured reserves and billing configs, skipping
// those already present. Restarting the daemon is therefore idempotent.
func provision(node *core.Node, cfg *config.Config, operator crypto.Address, logger *slog.Logger) error {
	for _, reserve := range cfg.Reserves {
		_, err := node.InitReserve(operator, nil, reserve.Asset, reserve.APYBps, nil)
		switch {
		case errors.Is(err, yield.ErrReserveExists):
			logger.Info("reserve already provisioned", slog.String("asset", reserve.Asset))
		case err != nil:
			return fmt.Errorf("init reserve %s: %w", reserve.Asset, err)
		default:
			logger.Info("reserve provisioned", slog.String("asset", reserve.Asset), slog.Uint64("apy_bps", reserve.APYBps))
		}

		reserveAuth, err := yield.ReserveAuthority(reserve.Asset)
		if err != nil {
			return fmt.Errorf("derive reserve %s: %w", reserve.Asset, err)
		}
		_, err = node.InitBillingConfig(operator, reserve.Asset, 0,
			cfg.Billing.PlatformFeeBps,
			cfg.Billing.MinSubscriptionDuration,
			cfg.Billing.MaxSubscriptionDuration,
			reserveAuth.Address())
		switch {
		case errors.Is(err, billing.ErrConfigExists):
			logger.Info("billing config already provisioned", slog.String("asset", reserve.Asset))
		case err != nil:
			return fmt.Errorf("init billing config %s: %w", reserve.Asset, err)
		default:
			logger.Info("billing config provisioned", slog.String("asset", reserve.Asset), slog.Uint64("fee_bps", cfg.Billing.PlatformFeeBps))
		}
	}
	return nil
}

// ensureOperatorKey loads the daemon's key pair, generating one on first run.
func ensureOperatorKey(dataDir string) (*crypto.PrivateKey, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, operatorKeyFile)
	raw, err := os.ReadFile(path)
	if err == nil {
		decoded, decErr := hex.DecodeString(strings.TrimSpace(string(raw)))
		if decErr != nil {
			return nil, fmt.Errorf("corrupt operator key file %s: %w", path, decErr)
		}
		return crypto.PrivateKeyFromBytes(decoded)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	encoded := hex.EncodeToString(key.Bytes())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}

package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fmcd/config"
	"fmcd/internal/appstate"
	"fmcd/internal/correlation"
	"fmcd/internal/events"
	"fmcd/internal/fedclient"
	"fmcd/internal/fedclient/memclient"
	"fmcd/internal/federation"
	"fmcd/internal/ids"
	"fmcd/internal/lnpay"
	"fmcd/internal/metrics"
	"fmcd/internal/monitor"
	"fmcd/internal/payment"
	"fmcd/internal/webhook"
	"fmcd/pkg/logger"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

var Cfg config.FmcdConfig

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := logger.Init(logger.GetEnv()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	configPath := flag.String("config", "fmcd.conf", "path to the fmcd config file")
	flag.Parse()

	path := config.Path(*configPath)
	if _, err := os.Stat(path.ToString()); os.IsNotExist(err) {
		if err := config.LoadEnv(&Cfg); err != nil {
			return fmt.Errorf("failed to build default config: %w", err)
		}
		if err := config.Save(path, Cfg); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
		logger.Info("wrote default config", zap.String("path", path.ToString()))
	} else if err := config.Load(path, &Cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	metrics.Init()

	store, err := federation.OpenStore(filepath.Join(Cfg.DataDir, "multimint.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	mnemonic, err := federation.LoadOrGenerateMnemonic(store)
	if err != nil {
		return err
	}

	ctx := context.Background()

	registry, err := federation.NewRegistry(ctx, store, mnemonic, parseInviteCode, newFederationClient)
	if err != nil {
		return fmt.Errorf("failed to restore federation registry: %w", err)
	}

	bus := events.NewBus(Cfg.EventBusCapacity)
	bus.RegisterHandler(events.NewLoggingHandler())
	bus.RegisterHandler(events.NewMetricsHandler())

	if endpoints := buildWebhookEndpoints(); len(endpoints) > 0 {
		bus.RegisterHandler(webhook.NewNotifier(endpoints))
	}

	var rateCfg correlation.RateLimitConfig
	if err := copier.Copy(&rateCfg, &Cfg.RateLimit); err != nil {
		return fmt.Errorf("failed to copy rate-limit config: %w", err)
	}
	limiter := correlation.NewLimiter(rateCfg)
	defer limiter.Close()

	payCfg := payment.Config{
		PollInterval:     time.Duration(Cfg.Payments.PollIntervalSecs) * time.Second,
		OperationTimeout: time.Duration(Cfg.Payments.OperationTimeoutSecs) * time.Second,
		PerFederationCap: Cfg.Payments.PerFederationCap,
		RecoveryLimit:    Cfg.Payments.RecoveryLimit,
		DrainGrace:       payment.DefaultConfig().DrainGrace,
	}
	manager := payment.NewManager(payCfg, registry, bus)

	depositCfg := monitor.DepositConfig{
		PollInterval:     time.Duration(Cfg.DepositMonitor.PollIntervalSecs) * time.Second,
		PerFederationCap: Cfg.DepositMonitor.PerFederationCap,
		DrainGrace:       monitor.DefaultDepositConfig().DrainGrace,
	}
	deposits := monitor.NewDepositMonitor(depositCfg, registry, bus)

	balanceCfg := monitor.BalanceConfig{
		CheckInterval: time.Duration(Cfg.BalanceMonitor.CheckIntervalSecs) * time.Second,
		ThresholdMsat: Cfg.BalanceMonitor.ThresholdMsat,
	}
	balances := monitor.NewBalanceMonitor(balanceCfg, registry, bus)

	app := appstate.New(registry, manager, deposits, balances, bus, limiter, lnpay.NewBolt11Resolver(nil))

	for _, invite := range Cfg.InviteCodes {
		if _, appErr := app.JoinFederation(ctx, invite, correlation.NewRequestContext("")); appErr != nil {
			logger.Warn("failed to join bootstrap federation", zap.String("error", appErr.Message))
		}
	}

	app.StartMonitoringServices(ctx)
	defer app.StopMonitoringServices()

	logger.Info("fmcd started",
		zap.String("bind_address", Cfg.Server.BindAddress),
		zap.Int("federations", len(registry.IDs())))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("shutting down", zap.String("signal", sig.String()))
	return nil
}

// parseInviteCode derives a stable federation id from an invite code. The
// embedded reference backend has no real guardian contact to learn the id
// from, so the code itself is the identity.
func parseInviteCode(inviteCode string) (ids.FederationId, error) {
	if inviteCode == "" {
		return ids.FederationId{}, fmt.Errorf("invite code must not be empty")
	}
	sum := sha256.Sum256([]byte(inviteCode))
	return ids.FederationId(sum), nil
}

// newFederationClient constructs the reference in-memory backend. A build
// linking a real federation client library replaces this factory and
// nothing else.
func newFederationClient(_ context.Context, federationID ids.FederationId, _ [32]byte, _ string) (fedclient.Client, error) {
	return memclient.New(federationID), nil
}

// buildWebhookEndpoints validates the configured endpoints, dropping (with
// a log line) any whose URL or secret fails validation rather than
// refusing to start.
func buildWebhookEndpoints() []webhook.Endpoint {
	allowInsecure := logger.GetEnv() != "production"

	var endpoints []webhook.Endpoint
	for _, epCfg := range Cfg.Webhooks {
		var ep webhook.Endpoint
		if err := copier.Copy(&ep, &epCfg); err != nil {
			logger.Warn("failed to copy webhook endpoint config", zap.String("endpoint_id", epCfg.ID), zap.Error(err))
			continue
		}
		if err := webhook.ValidateURL(ep.URL, allowInsecure); err != nil {
			logger.Warn("skipping webhook endpoint with invalid url", zap.String("endpoint_id", ep.ID), zap.Error(err))
			continue
		}
		if ep.Secret != "" {
			if err := webhook.ValidateSecret(ep.Secret); err != nil {
				logger.Warn("skipping webhook endpoint with weak secret", zap.String("endpoint_id", ep.ID), zap.Error(err))
				continue
			}
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/signalbot/internal/adminapi"
	"github.com/betbot/signalbot/internal/bot"
	"github.com/betbot/signalbot/internal/bridge"
	"github.com/betbot/signalbot/internal/chat"
	"github.com/betbot/signalbot/internal/ledger"
	"github.com/betbot/signalbot/internal/oracle"
	"github.com/betbot/signalbot/internal/rates"
	"github.com/betbot/signalbot/pkg/config"
	"github.com/betbot/signalbot/pkg/logger"
	"github.com/betbot/signalbot/pkg/persistence"
	"github.com/betbot/signalbot/pkg/secretstore"
	"github.com/betbot/signalbot/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "", "config file path (.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.OutputFile,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil && err != context.Canceled {
		logger.Errorf("bot exited: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gatewayToken, err := resolveSecret(cfg, "SIGNALBOT_GATEWAY_TOKEN")
	if err != nil {
		return fmt.Errorf("gateway token: %w", err)
	}
	if gatewayToken == "" {
		return fmt.Errorf("gateway token is required: set SIGNALBOT_GATEWAY_TOKEN or load it into the secret store")
	}

	var initial decimal.Decimal
	if cfg.InitialBalance != "" {
		initial, err = decimal.NewFromString(cfg.InitialBalance)
		if err != nil {
			return fmt.Errorf("initial_balance: %w", err)
		}
	}

	store, err := ledger.Open(ledger.Config{DBPath: cfg.DBPath, InitialBalance: initial})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	transport, err := chat.Dial(ctx, cfg.GatewayURL, gatewayToken)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("connect gateway: %w", err)
	}

	br := bridge.New()
	// The interactive session is a separate gateway connection under the
	// operator's session token. Without the token the bridge stays
	// unbound and assisted mode tells the user to launch it first.
	if sessionToken, _ := resolveSecret(cfg, "SIGNALBOT_SESSION_TOKEN"); sessionToken != "" {
		session, err := chat.Dial(ctx, cfg.GatewayURL, sessionToken)
		if err != nil {
			logger.Warnf("interactive session dial failed, bridge stays unbound: %v", err)
		} else {
			br.Register(session, transport)
			logger.Info("interactive session registered on the bridge")
		}
	}

	admin := adminapi.New(cfg.AdminAddr, store)
	admin.Start()

	b := bot.New(bot.Options{
		Ledger:        store,
		Bridge:        br,
		Oracle:        oracle.NewClient(cfg.OracleURL, cfg.OracleTimeout),
		Rates:         rates.NewClient(cfg.RatesURL, 5*time.Second),
		Transport:     transport,
		Persist:       persistence.NewJSONFileService(filepath.Join(cfg.DataDir, "state")),
		OracleTimeout: cfg.OracleTimeout,
	})

	mgr := shutdown.NewManager()
	mgr.OnShutdown(func(ctx context.Context) { _ = admin.Stop(ctx) })
	mgr.OnShutdown(func(context.Context) { _ = transport.Close() })
	mgr.OnShutdown(func(context.Context) { _ = store.Close() })

	logger.Info("signalbot running")
	runErr := b.Run(ctx)

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	mgr.Shutdown(sctx)
	return runErr
}

// resolveSecret checks the environment first, then the badger secret
// store under the env/ prefix.
func resolveSecret(cfg *config.Config, key string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, nil
	}
	secretKey, err := secretstore.ParseKey(os.Getenv("SIGNALBOT_SECRET_KEY"))
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(cfg.SecretDBPath); statErr != nil {
		return "", nil
	}
	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.SecretDBPath,
		EncryptionKey: secretKey,
		ReadOnly:      true,
	})
	if err != nil {
		return "", err
	}
	defer ss.Close()
	v, _, err := ss.GetString("env/" + key)
	return v, err
}

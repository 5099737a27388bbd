// Command bankd runs the Bank Engine: the single-threaded ledger actor that
// mints and settles Lightning invoices, executes internal and external
// payments, forwards swaps to the Dealer for pricing, and answers balance
// queries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"lnbank/internal/bank"
	"lnbank/internal/bus"
	"lnbank/internal/config"
	"lnbank/internal/database"
	"lnbank/internal/ledger"
	"lnbank/internal/lndadapter"
	"lnbank/internal/messages"
	"lnbank/internal/onchain"
	"lnbank/pkg/cache"
	"lnbank/pkg/logger"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var Cfg config.BankConfig

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

	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Dir(filename)
	configPath := config.Path(root).Join("..", "..", "bankd.toml")
	if err := config.Load(configPath, &Cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var redisCfg cache.Config
	if err := copier.Copy(&redisCfg, &Cfg.Redis); err != nil {
		return fmt.Errorf("failed to copy cache config: %w", err)
	}
	if err := cache.Init(redisCfg); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cache.Close()

	var dbCfg database.Config
	if err := copier.Copy(&dbCfg, &Cfg.Database); err != nil {
		return fmt.Errorf("failed to copy database config: %w", err)
	}
	db, err := database.NewDB(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var lndCfg lndadapter.Config
	if err := copier.Copy(&lndCfg, &Cfg.Lnd); err != nil {
		return fmt.Errorf("failed to copy lnd config: %w", err)
	}
	lightning, err := lndadapter.NewClient(lndCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to lnd: %w", err)
	}
	defer lightning.Close()

	store := bank.NewRepoStore(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := ledger.NewLedger()
	rows, err := store.ListAllAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	if err := bank.LoadAccounts(l, rows); err != nil {
		return fmt.Errorf("failed to restore ledger from accounts: %w", err)
	}
	logger.Info("bankd: ledger restored", zap.Int("account_rows", len(rows)))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     Cfg.Redis.Host + ":" + Cfg.Redis.Port,
		Password: Cfg.Redis.Password,
		DB:       Cfg.Redis.DB,
	})
	defer redisClient.Close()
	b := bus.New(redisClient)
	if err := b.DeclareStream(ctx, Cfg.Bus.BankStream, Cfg.Bus.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to declare bank stream: %w", err)
	}
	if err := b.DeclareStream(ctx, Cfg.Bus.DealerStream, Cfg.Bus.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to declare dealer stream: %w", err)
	}

	// publish forwards the Bank Engine's outbound messages onto the stream
	// the Dealer Engine consumes: every case in bank/process.go's
	// ProcessMessage that republishes (ApiSwapRequest, DealerInvoiceRequest,
	// DealerBankStateUpdate) is addressed to the Dealer, never back to
	// itself.
	publish := func(msg messages.Message) {
		if _, err := b.Publish(ctx, Cfg.Bus.DealerStream, uuid.New().String(), msg); err != nil {
			logger.Error("bankd: failed to publish", zap.String("kind", msg.Kind()), zap.Error(err))
		}
	}

	engine := bank.New(bank.Config{
		InternalTxFeeBps:      Cfg.Fees.InternalTxFeeBps,
		ExternalTxFeeBps:      Cfg.Fees.ExternalTxFeeBps,
		LnNetworkFeeMarginBps: Cfg.Fees.LnNetworkFeeMarginBps,
	}, l, store, lightning, publish)
	engine.SetDeduper(cache.Deduper{})

	go engine.Run(ctx, 5*time.Second)
	go watchSettledInvoices(ctx, engine, lightning)
	go sweepColdStorage(ctx, Cfg.Onchain, lightning)

	logger.Info("bankd: consuming", zap.String("stream", Cfg.Bus.BankStream))
	return b.Consume(ctx, Cfg.Bus.BankStream, Cfg.Bus.ConsumerGroup, "bankd", func(messageID string, env messages.Envelope) error {
		msg, err := env.Unmarshal()
		if err != nil {
			logger.Warn("bankd: dropping undecodable message", zap.String("messageID", messageID), zap.Error(err))
			return nil
		}
		engine.ProcessMessage(ctx, msg)
		return nil
	})
}

// sweepColdStorage periodically checks the node's confirmed on-chain
// balance and, once it clears the configured threshold, pays the excess to
// the standing cold vault address. LND's own wallet performs coin
// selection, fee estimation and signing for the resulting SendCoins call;
// onchain.ValidateAddress is used to fail fast on a misconfigured vault
// address rather than after a failed RPC.
func sweepColdStorage(ctx context.Context, cfg config.OnchainConfig, lightning lndadapter.LightningClient) {
	if cfg.VaultAddress == "" {
		logger.Warn("bankd: cold storage sweep disabled, no vault address configured")
		return
	}
	if ok, err := onchain.ValidateAddress(cfg.VaultAddress, cfg.Network); err != nil || !ok {
		logger.Error("bankd: invalid cold storage vault address, sweep disabled",
			zap.String("vault_address", cfg.VaultAddress), zap.Error(err))
		return
	}

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			balance, err := lightning.GetWalletBalance(ctx)
			if err != nil {
				logger.Error("bankd: failed to read wallet balance for sweep check", zap.Error(err))
				continue
			}
			excess := balance.ConfirmedSats - cfg.SweepThresholdSats
			if excess <= 0 {
				continue
			}

			txid, err := lightning.SendOnChain(ctx, cfg.VaultAddress, excess, 1)
			if err != nil {
				logger.Error("bankd: cold storage sweep failed", zap.Int64("amount_sats", excess), zap.Error(err))
				continue
			}
			logger.Info("bankd: swept excess balance to cold storage",
				zap.Int64("amount_sats", excess), zap.String("txid", txid))
		}
	}
}

// watchSettledInvoices bridges the LND settlement subscription into the
// Bank Engine's own message stream, so a Lightning deposit is processed
// through ProcessMessage the same way a bus-delivered one would be.
func watchSettledInvoices(ctx context.Context, engine *bank.Engine, lightning lndadapter.LightningClient) {
	settled, err := lightning.SubscribeSettledInvoices(ctx)
	if err != nil {
		logger.Error("bankd: failed to subscribe to settled invoices", zap.Error(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case inv, ok := <-settled:
			if !ok {
				return
			}
			engine.ProcessMessage(ctx, messages.DepositSettled{
				PaymentRequest: inv.PaymentRequest,
				PaymentHash:    inv.PaymentHash,
				AmountSat:      inv.AmountSats,
			})
		}
	}
}

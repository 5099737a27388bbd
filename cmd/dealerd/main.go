// Command dealerd runs the Dealer Engine: it derives BTC<->fiat exchange
// rates from the hedging venue's order book, issues time-limited guaranteed
// quotes, and keeps the bank's aggregate exposure hedged within a
// configured tolerance.
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

	"lnbank/internal/bus"
	"lnbank/internal/config"
	"lnbank/internal/dealer"
	"lnbank/internal/ledger"
	"lnbank/internal/messages"
	"lnbank/internal/priceref"
	"lnbank/internal/venue"
	"lnbank/pkg/cache"
	"lnbank/pkg/logger"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	healthCheckInterval = 5 * time.Second
	riskCheckInterval   = 5 * time.Second
	sweepCheckInterval  = 60 * time.Second
)

var Cfg config.DealerConfig

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
	configPath := config.Path(root).Join("..", "..", "dealerd.toml")
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

	riskTolerances := make(map[ledger.Currency]int64, len(Cfg.RiskTolerances))
	for code, tolerance := range Cfg.RiskTolerances {
		currency, err := ledger.ParseCurrency(code)
		if err != nil {
			return fmt.Errorf("failed to parse risk tolerance currency %q: %w", code, err)
		}
		riskTolerances[currency] = tolerance
	}

	priceProvider, err := priceref.NewProvider(Cfg.PriceRef.Provider, Cfg.PriceRef.BaseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build price reference provider: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// engine is assigned once the Dealer Engine is constructed below; the
	// venue client is built first since the engine depends on it, and the
	// venue's own handler closure needs to reach back into the engine once
	// it exists.
	var engine *dealer.Engine
	venueClient := venue.NewClient(venue.Config{
		URL:        Cfg.Venue.WebsocketURL,
		APIKey:     Cfg.Venue.ApiKey,
		APISecret:  Cfg.Venue.ApiSecret,
		Passphrase: Cfg.Venue.Passphrase,
	}, func(msg messages.Message) {
		if engine != nil {
			engine.HandleVenueMessage(msg)
		}
	})
	go venueClient.Run(ctx)

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

	// publish forwards the Dealer Engine's outbound messages onto the
	// stream the Bank Engine consumes: ApiSwapResponse, DealerInvoiceRate,
	// DealerHealth and DealerCreateInvoiceRequest are all addressed back to
	// the Bank.
	publish := func(msg messages.Message) {
		if _, err := b.Publish(ctx, Cfg.Bus.BankStream, uuid.New().String(), msg); err != nil {
			logger.Error("dealerd: failed to publish", zap.String("kind", msg.Kind()), zap.Error(err))
		}
	}

	engine = dealer.New(dealer.Config{
		RiskTolerances:             riskTolerances,
		DivergenceTolerancePercent: Cfg.PriceRef.DivergenceTolerancePercent,
		ReferenceFiatCurrency:      Cfg.PriceRef.ReferenceFiatCurrency,
		ExcessSatThreshold:         decimal.NewFromInt(Cfg.PriceRef.ExcessSatThreshold),
	}, venueClient, priceProvider, venueClient, publish)

	go engine.Run(ctx, healthCheckInterval, riskCheckInterval, sweepCheckInterval)

	logger.Info("dealerd: consuming", zap.String("stream", Cfg.Bus.DealerStream))
	return b.Consume(ctx, Cfg.Bus.DealerStream, Cfg.Bus.ConsumerGroup, "dealerd", func(messageID string, env messages.Envelope) error {
		msg, err := env.Unmarshal()
		if err != nil {
			logger.Warn("dealerd: dropping undecodable message", zap.String("messageID", messageID), zap.Error(err))
			return nil
		}
		engine.ProcessMessage(msg)
		return nil
	})
}

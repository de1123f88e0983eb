package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dipwatch/internal/application/port"
	"dipwatch/internal/application/service"
	"dipwatch/internal/application/usecase/watch"
	"dipwatch/internal/domain/model"
	"dipwatch/internal/infrastructure/config"
	"dipwatch/internal/infrastructure/cooldown"
	"dipwatch/internal/infrastructure/exchange/kraken"
	"dipwatch/internal/infrastructure/logger"
	"dipwatch/internal/infrastructure/notify"
	"dipwatch/internal/infrastructure/pricecache"
	"dipwatch/internal/infrastructure/quotes"
	"dipwatch/internal/infrastructure/realtime"
	"dipwatch/internal/infrastructure/storage/postgres"
	"dipwatch/internal/infrastructure/storage/sqlite"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// storage (infrastructure -> application ports)
	var store port.AlertStore
	switch cfg.Storage.Driver {
	case "postgres":
		store, err = postgres.New(cfg.Storage.PostgresDSN)
	default:
		store, err = sqlite.New(cfg.Storage.SQLitePath)
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("open alert store failed")
	}
	defer store.Close()

	cache := pricecache.New(cfg.PriceTTL())

	var cooldowns port.CooldownStore = cooldown.NewMemory()
	var rt port.Realtime = realtime.LogEmitter{}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis ping failed")
		}
		defer rdb.Close()
		cooldowns = cooldown.NewRedis(rdb, cfg.Redis.Prefix)
		rt = realtime.NewRedisEmitter(rdb, cfg.Redis.Prefix)
	} else {
		log.Warn().Msg("redis disabled by config; cooldowns are in-memory, realtime events log-only")
	}

	var notifier port.Notifier = notify.Noop{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL, 10*time.Second)
	}

	if cfg.Kraken.Enabled {
		kc := kraken.NewClient(kraken.Config{
			URL:         cfg.Kraken.WsURL,
			SoftMsgRate: cfg.Kraken.SoftMsgRate,
			HardMsgRate: cfg.Kraken.HardMsgRate,
		})
		defer kc.Disconnect()
		if err := kc.Connect(ctx); err != nil {
			log.Fatal().Err(err).Str("url", cfg.Kraken.WsURL).Msg("kraken connect failed")
		}
		pairs := cryptoPairs(ctx, store, cfg.Kraken.ExtraPairs)
		if len(pairs) == 0 {
			log.Warn().Msg("no crypto pairs to subscribe")
		} else if err := kc.Subscribe(pairs, kraken.ChannelTicker); err != nil {
			log.Fatal().Err(err).Msg("kraken subscribe failed")
		}
		go kraken.Pump(ctx, kc.Events(), cache)
	} else {
		log.Warn().Msg("kraken feed disabled by config")
	}

	if cfg.Quotes.Enabled {
		qc := quotes.NewClient(cfg.Quotes.BaseURL, 10*time.Second)
		poller := service.NewQuotePoller(qc, cache, store, cfg.PollInterval())
		go func() {
			if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("quote poller exited")
			}
		}()
	} else {
		log.Warn().Msg("stock quote polling disabled by config")
	}

	svc := watch.NewService(watch.ServiceDeps{
		Store:        store,
		Prices:       cache,
		Cooldowns:    cooldowns,
		Realtime:     rt,
		Notifier:     notifier,
		TickInterval: cfg.TickInterval(),
		CooldownTTL:  cfg.CooldownTTL(),
	})

	log.Info().
		Str("config", *configPath).
		Str("storage", cfg.Storage.Driver).
		Bool("kraken", cfg.Kraken.Enabled).
		Bool("quotes", cfg.Quotes.Enabled).
		Bool("redis", cfg.Redis.Enabled).
		Msg("dipwatch started")

	if err := svc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("watch service exited")
	}
}

// cryptoPairs collects the ws pairs to subscribe: one per active crypto
// alert plus any extras from config, deduplicated.
func cryptoPairs(ctx context.Context, store port.AlertStore, extras []string) []string {
	seen := map[string]struct{}{}
	var pairs []string
	add := func(p string) {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}

	alerts, err := store.ListActiveAlerts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list active alerts for subscription failed")
	}
	for _, a := range alerts {
		if a.AssetType == model.AssetCrypto {
			add(a.Symbol)
		}
	}
	for _, p := range extras {
		add(p)
	}
	return pairs
}

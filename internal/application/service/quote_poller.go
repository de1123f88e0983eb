package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"dipwatch/internal/application/port"
	"dipwatch/internal/domain/model"
)

const DefaultPollInterval = time.Minute

// QuotePoller covers symbols without streaming coverage (equities): it
// fetches REST quotes on a fixed interval and writes into the same cache
// the stream feeds, so the evaluator stays agnostic to the data source.
type QuotePoller struct {
	client   port.QuoteClient
	cache    port.PriceWriter
	store    port.AlertStore
	interval time.Duration
}

func NewQuotePoller(client port.QuoteClient, cache port.PriceWriter, store port.AlertStore, interval time.Duration) *QuotePoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &QuotePoller{client: client, cache: cache, store: store, interval: interval}
}

func (p *QuotePoller) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	log.Info().Dur("interval", p.interval).Msg("quote poller started")

	// prime the cache once at startup so the first evaluator tick has data
	p.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce fetches a quote for every stock symbol carried by an active
// alert. One symbol's failure is logged and skipped; it never blocks the
// rest of the cycle.
func (p *QuotePoller) pollOnce(ctx context.Context) {
	symbols, err := p.stockSymbols(ctx)
	if err != nil {
		log.Error().Err(err).Msg("quote poller: listing alerts failed, skipping cycle")
		return
	}

	for _, sym := range symbols {
		if ctx.Err() != nil {
			return
		}
		sample, err := p.client.Quote(ctx, sym)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("quote fetch failed, skipping symbol")
			continue
		}
		p.cache.Put(sample)
	}
}

func (p *QuotePoller) stockSymbols(ctx context.Context) ([]string, error) {
	alerts, err := p.store.ListActiveAlerts(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, a := range alerts {
		if a.AssetType != model.AssetStock {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(a.Symbol))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out, nil
}

package kraken

import (
	"context"

	"github.com/rs/zerolog/log"

	"dipwatch/internal/application/port"
	"dipwatch/internal/domain/model"
)

// Pump drains the client's event channel into the price cache. Ticker
// updates and trade prints both refresh the cached price; state changes are
// logged. Pump returns when the context is cancelled or the channel closes.
func Pump(ctx context.Context, events <-chan Event, cache port.PriceWriter) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case TickerEvent:
				cache.Put(model.PriceSample{
					Symbol:     e.Pair,
					AssetType:  model.AssetCrypto,
					Price:      e.Price,
					Change24h:  e.Change24h,
					ObservedAt: e.At,
				})
			case TradeEvent:
				cache.Put(model.PriceSample{
					Symbol:     e.Pair,
					AssetType:  model.AssetCrypto,
					Price:      e.Price,
					ObservedAt: e.At,
				})
			case StateEvent:
				if e.Err != nil {
					log.Warn().Err(e.Err).Str("state", e.State.String()).Msg("kraken state change")
				} else {
					log.Info().Str("state", e.State.String()).Msg("kraken state change")
				}
			}
		}
	}
}

package port

import (
	"context"

	"dipwatch/internal/domain/model"
)

// PriceReader is the evaluator's single read path for "current price of X".
// ok is false when there is no sample or the sample is older than its TTL;
// the caller must skip evaluation rather than use stale data.
type PriceReader interface {
	Latest(asset model.AssetType, symbol string) (model.PriceSample, bool)
}

// PriceWriter is the ingestion-side half of the cache.
type PriceWriter interface {
	Put(sample model.PriceSample)
}

// QuoteClient fetches a single spot quote from the fallback REST source.
type QuoteClient interface {
	Quote(ctx context.Context, symbol string) (model.PriceSample, error)
}

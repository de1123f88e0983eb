package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"dipwatch/internal/application/port"
	"dipwatch/internal/domain/model"
	dsvc "dipwatch/internal/domain/service"
)

const (
	DefaultTickInterval = time.Minute
	DefaultCooldownTTL  = time.Hour

	// deliveryTimeout bounds the fire-and-forget external send so a stuck
	// collaborator cannot pile up goroutines forever.
	deliveryTimeout = 30 * time.Second
)

type ServiceDeps struct {
	Store     port.AlertStore
	Prices    port.PriceReader
	Cooldowns port.CooldownStore
	Realtime  port.Realtime
	Notifier  port.Notifier

	TickInterval time.Duration
	CooldownTTL  time.Duration
}

// Service is the tick-driven evaluation core: one fixed-interval pass over
// all active alerts, sequentially, on a single loop. No per-alert
// goroutines.
type Service struct {
	deps ServiceDeps
	now  func() time.Time
}

func NewService(deps ServiceDeps) *Service {
	if deps.TickInterval <= 0 {
		deps.TickInterval = DefaultTickInterval
	}
	if deps.CooldownTTL <= 0 {
		deps.CooldownTTL = DefaultCooldownTTL
	}
	return &Service{deps: deps, now: time.Now}
}

func (s *Service) Run(ctx context.Context) error {
	t := time.NewTicker(s.deps.TickInterval)
	defer t.Stop()

	log.Info().Dur("tick", s.deps.TickInterval).Msg("evaluator started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.EvaluateAll(ctx)
		}
	}
}

// EvaluateAll runs one evaluation pass. A failure on one alert never aborts
// the rest of the batch.
func (s *Service) EvaluateAll(ctx context.Context) {
	alerts, err := s.deps.Store.ListActiveAlerts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list active alerts failed, skipping tick")
		return
	}

	for _, a := range alerts {
		if ctx.Err() != nil {
			return
		}
		s.evaluateOne(ctx, a)
	}
}

func (s *Service) evaluateOne(ctx context.Context, a *model.Alert) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("alert", a.ID).Interface("panic", r).Msg("alert evaluation panicked")
		}
	}()

	sample, ok := s.deps.Prices.Latest(a.AssetType, a.Symbol)
	if !ok {
		// no fresh sample this tick; never evaluate against stale data
		return
	}

	// first observation establishes the baseline and cannot itself trigger
	if a.BaselinePrice == nil {
		if err := s.deps.Store.SetBaseline(ctx, a.ID, &sample.Price); err != nil {
			log.Error().Err(err).Str("alert", a.ID).Msg("set initial baseline failed")
		}
		return
	}

	baseline := *a.BaselinePrice
	level := dsvc.TriggeredLevel(a.SmallPct, a.MediumPct, a.LargePct, baseline, sample.Price)
	if level != model.LevelNone {
		s.maybeFire(ctx, a, level, baseline, sample)
	}

	if dsvc.ShouldResetBaseline(baseline, sample.Price) {
		if err := s.deps.Store.SetBaseline(ctx, a.ID, &sample.Price); err != nil {
			log.Error().Err(err).Str("alert", a.ID).Msg("baseline recovery reset failed")
		} else {
			log.Info().
				Str("alert", a.ID).
				Str("symbol", a.Symbol).
				Float64("old_baseline", baseline).
				Float64("new_baseline", sample.Price).
				Msg("baseline reset after recovery")
		}
	}
}

func (s *Service) maybeFire(ctx context.Context, a *model.Alert, level model.Level, baseline float64, sample model.PriceSample) {
	suppressed, err := s.deps.Cooldowns.IsSuppressed(ctx, a.ID, level)
	if err != nil {
		// fail closed: a cooldown-store outage must not become a
		// notification storm
		log.Warn().Err(err).Str("alert", a.ID).Str("level", level.String()).
			Msg("cooldown check failed, treating as suppressed")
		return
	}
	if suppressed {
		return
	}

	drop := dsvc.DropPct(baseline, sample.Price)
	rec := &model.HistoryRecord{
		AlertID:      a.ID,
		UserID:       a.UserID,
		Symbol:       a.Symbol,
		Level:        level,
		Price:        sample.Price,
		Baseline:     baseline,
		DropPct:      drop,
		ThresholdPct: a.ThresholdFor(level),
		Message:      composeMessage(a, level, drop, sample.Price, baseline),
		FiredAt:      s.now(),
	}
	s.fanout(ctx, a, rec)

	if err := s.deps.Cooldowns.Suppress(ctx, a.ID, level, s.deps.CooldownTTL); err != nil {
		log.Warn().Err(err).Str("alert", a.ID).Str("level", level.String()).
			Msg("cooldown registration failed")
	}
}

// fanout persists the history record, emits to the owner's realtime channel
// and hands the payload to the delivery collaborator. Delivery failure never
// retracts the history record or the cooldown.
func (s *Service) fanout(ctx context.Context, a *model.Alert, rec *model.HistoryRecord) {
	if err := s.deps.Store.InsertHistory(ctx, rec); err != nil {
		log.Error().Err(err).Str("alert", a.ID).Msg("history insert failed")
	}

	payload := model.AlertPayload{
		AlertID:      rec.AlertID,
		UserID:       rec.UserID,
		Symbol:       rec.Symbol,
		AssetType:    a.AssetType,
		Level:        rec.Level.String(),
		Price:        rec.Price,
		Baseline:     rec.Baseline,
		DropPct:      rec.DropPct,
		ThresholdPct: rec.ThresholdPct,
		Message:      rec.Message,
		FiredAt:      rec.FiredAt,
	}

	if err := s.deps.Realtime.EmitToUser(ctx, a.UserID, "alert", payload); err != nil {
		log.Error().Err(err).Str("alert", a.ID).Str("user", a.UserID).Msg("realtime emit failed")
	}

	// fire-and-forget external delivery
	go func() {
		dctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := s.deps.Notifier.Send(dctx, payload); err != nil {
			log.Error().Err(err).Str("alert", a.ID).Msg("notification delivery failed")
		}
	}()

	log.Info().
		Str("alert", a.ID).
		Str("symbol", a.Symbol).
		Str("level", rec.Level.String()).
		Float64("price", rec.Price).
		Float64("drop_pct", rec.DropPct).
		Msg("alert fired")
}

func composeMessage(a *model.Alert, level model.Level, drop, price, baseline float64) string {
	return fmt.Sprintf("%s is down %.2f%% from baseline %.2f (now %.2f): %s dip alert, threshold %.1f%%",
		a.Symbol, drop, baseline, price, level, a.ThresholdFor(level))
}

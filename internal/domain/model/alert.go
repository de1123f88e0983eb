package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type AssetType string

const (
	AssetCrypto AssetType = "crypto"
	AssetStock  AssetType = "stock"
)

func ParseAssetType(s string) (AssetType, error) {
	switch AssetType(strings.ToLower(strings.TrimSpace(s))) {
	case AssetCrypto:
		return AssetCrypto, nil
	case AssetStock:
		return AssetStock, nil
	default:
		return "", fmt.Errorf("unknown asset type: %q", s)
	}
}

// Level is a drop tier. Ordering matters: higher levels win when a single
// price move crosses several thresholds in one tick.
type Level int

const (
	LevelNone Level = iota
	LevelSmall
	LevelMedium
	LevelLarge
)

func (l Level) String() string {
	switch l {
	case LevelSmall:
		return "small"
	case LevelMedium:
		return "medium"
	case LevelLarge:
		return "large"
	default:
		return "none"
	}
}

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "small":
		return LevelSmall
	case "medium":
		return LevelMedium
	case "large":
		return LevelLarge
	default:
		return LevelNone
	}
}

var (
	ErrThresholdOrder = errors.New("thresholds must be strictly ascending: small < medium < large")
	ErrThresholdRange = errors.New("thresholds must be positive percentages")
)

// Alert is a per-user dip tracking subscription. BaselinePrice is nil until
// the first price observation and resets when price recovers materially
// above it.
type Alert struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Symbol        string    `json:"symbol"`
	AssetType     AssetType `json:"asset_type"`
	SmallPct      float64   `json:"small_pct"`
	MediumPct     float64   `json:"medium_pct"`
	LargePct      float64   `json:"large_pct"`
	BaselinePrice *float64  `json:"baseline_price,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (a *Alert) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(a.Symbol) == "" {
		return errors.New("symbol is required")
	}
	if _, err := ParseAssetType(string(a.AssetType)); err != nil {
		return err
	}
	return ValidateThresholds(a.SmallPct, a.MediumPct, a.LargePct)
}

// ValidateThresholds enforces the ascending-order invariant at creation and
// update time.
func ValidateThresholds(small, medium, large float64) error {
	if small <= 0 || medium <= 0 || large <= 0 {
		return ErrThresholdRange
	}
	if !(small < medium && medium < large) {
		return ErrThresholdOrder
	}
	return nil
}

// ThresholdFor returns the configured percentage for a tier.
func (a *Alert) ThresholdFor(l Level) float64 {
	switch l {
	case LevelSmall:
		return a.SmallPct
	case LevelMedium:
		return a.MediumPct
	case LevelLarge:
		return a.LargePct
	default:
		return 0
	}
}

// PriceSample is the cache-resident latest observation for a symbol. It is
// overwritten on every new observation and must not be used after its TTL.
type PriceSample struct {
	Symbol     string    `json:"symbol"`
	AssetType  AssetType `json:"asset_type"`
	Price      float64   `json:"price"`
	Change24h  float64   `json:"change_24h"`
	ObservedAt time.Time `json:"observed_at"`
}

// HistoryRecord is the immutable snapshot of a firing event.
type HistoryRecord struct {
	ID           string    `json:"id"`
	AlertID      string    `json:"alert_id"`
	UserID       string    `json:"user_id"`
	Symbol       string    `json:"symbol"`
	Level        Level     `json:"level"`
	Price        float64   `json:"price"`
	Baseline     float64   `json:"baseline"`
	DropPct      float64   `json:"drop_pct"`
	ThresholdPct float64   `json:"threshold_pct"`
	Message      string    `json:"message"`
	FiredAt      time.Time `json:"fired_at"`
}

// AlertPayload is the fully composed notification handed to the realtime
// channel and the external delivery collaborator.
type AlertPayload struct {
	AlertID      string    `json:"alert_id"`
	UserID       string    `json:"user_id"`
	Symbol       string    `json:"symbol"`
	AssetType    AssetType `json:"asset_type"`
	Level        string    `json:"level"`
	Price        float64   `json:"price"`
	Baseline     float64   `json:"baseline"`
	DropPct      float64   `json:"drop_pct"`
	ThresholdPct float64   `json:"threshold_pct"`
	Message      string    `json:"message"`
	FiredAt      time.Time `json:"fired_at"`
}

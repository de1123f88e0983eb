package port

import (
	"context"
	"errors"

	"dipwatch/internal/domain/model"
)

var (
	// ErrAlertExists is returned when a second active alert would violate
	// the one-active-alert-per-(user, symbol, assetType) invariant.
	ErrAlertExists = errors.New("an active alert already exists for this user/symbol/asset")

	ErrAlertNotFound = errors.New("alert not found")
)

type AlertStore interface {
	CreateAlert(ctx context.Context, a *model.Alert) error
	UpdateThresholds(ctx context.Context, id string, small, medium, large float64) error
	SetBaseline(ctx context.Context, id string, baseline *float64) error
	SetActive(ctx context.Context, id string, active bool) error
	DeleteAlert(ctx context.Context, id string) error
	GetAlert(ctx context.Context, id string) (*model.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]*model.Alert, error)

	InsertHistory(ctx context.Context, rec *model.HistoryRecord) error
	ListHistory(ctx context.Context, alertID string, limit int) ([]*model.HistoryRecord, error)

	Close() error
}

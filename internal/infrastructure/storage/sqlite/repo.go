package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dipwatch/internal/application/port"
	"dipwatch/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS alerts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  asset_type TEXT NOT NULL,
  small_pct REAL NOT NULL,
  medium_pct REAL NOT NULL,
  large_pct REAL NOT NULL,
  baseline_price REAL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_unique_active
  ON alerts(user_id, symbol, asset_type) WHERE active = 1;
CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id);
CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol);

CREATE TABLE IF NOT EXISTS alert_history (
  id TEXT PRIMARY KEY,
  alert_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  level TEXT NOT NULL,
  price REAL NOT NULL,
  baseline REAL NOT NULL,
  drop_pct REAL NOT NULL,
  threshold_pct REAL NOT NULL,
  message TEXT NOT NULL,
  fired_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_alert ON alert_history(alert_id);
CREATE INDEX IF NOT EXISTS idx_history_fired ON alert_history(fired_at);
`)
	return err
}

func (r *Repo) CreateAlert(ctx context.Context, a *model.Alert) error {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.Active = true

	var baseline sql.NullFloat64
	if a.BaselinePrice != nil {
		baseline = sql.NullFloat64{Float64: *a.BaselinePrice, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts(id, user_id, symbol, asset_type, small_pct, medium_pct, large_pct, baseline_price, active, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`, a.ID, a.UserID, a.Symbol, string(a.AssetType), a.SmallPct, a.MediumPct, a.LargePct, baseline, a.CreatedAt.UnixMilli(), a.UpdatedAt.UnixMilli())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return port.ErrAlertExists
	}
	return err
}

func (r *Repo) UpdateThresholds(ctx context.Context, id string, small, medium, large float64) error {
	if err := model.ValidateThresholds(small, medium, large); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET small_pct=?, medium_pct=?, large_pct=?, updated_at=? WHERE id=?
	`, small, medium, large, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) SetBaseline(ctx context.Context, id string, baseline *float64) error {
	var v sql.NullFloat64
	if baseline != nil {
		v = sql.NullFloat64{Float64: *baseline, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET baseline_price=?, updated_at=? WHERE id=?
	`, v, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET active=?, updated_at=? WHERE id=?
	`, boolToInt(active), time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) DeleteAlert(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id=?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const alertCols = `id, user_id, symbol, asset_type, small_pct, medium_pct, large_pct, baseline_price, active, created_at, updated_at`

func (r *Repo) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+alertCols+` FROM alerts WHERE id=?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, port.ErrAlertNotFound
	}
	return a, err
}

func (r *Repo) ListActiveAlerts(ctx context.Context) ([]*model.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+alertCols+` FROM alerts WHERE active=1 ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) InsertHistory(ctx context.Context, rec *model.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FiredAt.IsZero() {
		rec.FiredAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_history(id, alert_id, user_id, symbol, level, price, baseline, drop_pct, threshold_pct, message, fired_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.AlertID, rec.UserID, rec.Symbol, rec.Level.String(), rec.Price, rec.Baseline, rec.DropPct, rec.ThresholdPct, rec.Message, rec.FiredAt.UnixMilli())
	return err
}

func (r *Repo) ListHistory(ctx context.Context, alertID string, limit int) ([]*model.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, alert_id, user_id, symbol, level, price, baseline, drop_pct, threshold_pct, message, fired_at
		FROM alert_history WHERE alert_id=? ORDER BY fired_at DESC LIMIT ?
	`, alertID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.HistoryRecord
	for rows.Next() {
		var rec model.HistoryRecord
		var level string
		var firedAt int64
		if err := rows.Scan(&rec.ID, &rec.AlertID, &rec.UserID, &rec.Symbol, &level, &rec.Price, &rec.Baseline, &rec.DropPct, &rec.ThresholdPct, &rec.Message, &firedAt); err != nil {
			return nil, err
		}
		rec.Level = model.ParseLevel(level)
		rec.FiredAt = time.UnixMilli(firedAt)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	var a model.Alert
	var assetType string
	var baseline sql.NullFloat64
	var active int
	var createdAt, updatedAt int64
	if err := row.Scan(&a.ID, &a.UserID, &a.Symbol, &assetType, &a.SmallPct, &a.MediumPct, &a.LargePct, &baseline, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.AssetType = model.AssetType(assetType)
	if baseline.Valid {
		v := baseline.Float64
		a.BaselinePrice = &v
	}
	a.Active = active != 0
	a.CreatedAt = time.UnixMilli(createdAt)
	a.UpdatedAt = time.UnixMilli(updatedAt)
	return &a, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return port.ErrAlertNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ port.AlertStore = (*Repo)(nil)

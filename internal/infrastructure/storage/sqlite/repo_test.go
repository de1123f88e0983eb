package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dipwatch/internal/application/port"
	"dipwatch/internal/domain/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repo failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleAlert() *model.Alert {
	return &model.Alert{
		UserID:    "u1",
		Symbol:    "xbt/usd",
		AssetType: model.AssetCrypto,
		SmallPct:  5,
		MediumPct: 10,
		LargePct:  15,
	}
}

func TestCreateAndGetAlert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := sampleAlert()
	if err := repo.CreateAlert(ctx, a); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if a.ID == "" {
		t.Fatal("id should be assigned on create")
	}

	got, err := repo.GetAlert(ctx, a.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Symbol != "XBT/USD" {
		t.Errorf("symbol should be uppercased, got %s", got.Symbol)
	}
	if got.BaselinePrice != nil {
		t.Error("baseline starts unset")
	}
	if !got.Active {
		t.Error("new alerts are active")
	}
}

func TestDuplicateActiveAlertRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateAlert(ctx, sampleAlert()); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err := repo.CreateAlert(ctx, sampleAlert())
	if !errors.Is(err, port.ErrAlertExists) {
		t.Fatalf("expected ErrAlertExists, got %v", err)
	}

	// a different user may track the same symbol
	other := sampleAlert()
	other.UserID = "u2"
	if err := repo.CreateAlert(ctx, other); err != nil {
		t.Errorf("same symbol for another user should be allowed: %v", err)
	}
}

func TestDeactivatedAlertFreesTheSlot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := sampleAlert()
	if err := repo.CreateAlert(ctx, a); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.SetActive(ctx, a.ID, false); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if err := repo.CreateAlert(ctx, sampleAlert()); err != nil {
		t.Errorf("inactive alerts must not block a new one: %v", err)
	}

	active, err := repo.ListActiveAlerts(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("expected 1 active alert, got %d", len(active))
	}
}

func TestSetBaselineRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := sampleAlert()
	if err := repo.CreateAlert(ctx, a); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	price := 50123.45
	if err := repo.SetBaseline(ctx, a.ID, &price); err != nil {
		t.Fatalf("set baseline failed: %v", err)
	}
	got, _ := repo.GetAlert(ctx, a.ID)
	if got.BaselinePrice == nil || *got.BaselinePrice != price {
		t.Fatalf("baseline round trip failed: %v", got.BaselinePrice)
	}

	if err := repo.SetBaseline(ctx, a.ID, nil); err != nil {
		t.Fatalf("clear baseline failed: %v", err)
	}
	got, _ = repo.GetAlert(ctx, a.ID)
	if got.BaselinePrice != nil {
		t.Error("baseline should clear back to nil")
	}
}

func TestUpdateThresholdsValidates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := sampleAlert()
	if err := repo.CreateAlert(ctx, a); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.UpdateThresholds(ctx, a.ID, 15, 10, 5); !errors.Is(err, model.ErrThresholdOrder) {
		t.Errorf("descending thresholds: expected ErrThresholdOrder, got %v", err)
	}
	if err := repo.UpdateThresholds(ctx, a.ID, 3, 7, 12); err != nil {
		t.Fatalf("valid update failed: %v", err)
	}
	got, _ := repo.GetAlert(ctx, a.ID)
	if got.SmallPct != 3 || got.MediumPct != 7 || got.LargePct != 12 {
		t.Errorf("thresholds not persisted: %+v", got)
	}

	if err := repo.UpdateThresholds(ctx, "missing", 3, 7, 12); !errors.Is(err, port.ErrAlertNotFound) {
		t.Errorf("unknown id: expected ErrAlertNotFound, got %v", err)
	}
}

func TestDeleteAlert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := sampleAlert()
	if err := repo.CreateAlert(ctx, a); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.DeleteAlert(ctx, a.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.GetAlert(ctx, a.ID); !errors.Is(err, port.ErrAlertNotFound) {
		t.Errorf("expected ErrAlertNotFound after delete, got %v", err)
	}
	if err := repo.DeleteAlert(ctx, a.ID); !errors.Is(err, port.ErrAlertNotFound) {
		t.Errorf("double delete: expected ErrAlertNotFound, got %v", err)
	}
}

func TestHistoryInsertAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := sampleAlert()
	if err := repo.CreateAlert(ctx, a); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i, level := range []model.Level{model.LevelSmall, model.LevelMedium, model.LevelLarge} {
		rec := &model.HistoryRecord{
			AlertID:      a.ID,
			UserID:       a.UserID,
			Symbol:       "XBT/USD",
			Level:        level,
			Price:        100 - float64(i)*10,
			Baseline:     100,
			DropPct:      float64(i) * 10,
			ThresholdPct: float64(i)*5 + 5,
			Message:      "dip",
			FiredAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.InsertHistory(ctx, rec); err != nil {
			t.Fatalf("insert history %d failed: %v", i, err)
		}
	}

	recs, err := repo.ListHistory(ctx, a.ID, 2)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("limit not honored: got %d records", len(recs))
	}
	if recs[0].Level != model.LevelLarge {
		t.Errorf("expected newest record first, got %s", recs[0].Level)
	}
	if recs[0].FiredAt.Before(recs[1].FiredAt) {
		t.Error("records should be ordered newest first")
	}
}

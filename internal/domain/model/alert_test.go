package model

import (
	"errors"
	"testing"
)

func TestValidateThresholds(t *testing.T) {
	if err := ValidateThresholds(5, 10, 15); err != nil {
		t.Fatalf("valid thresholds rejected: %v", err)
	}
	if err := ValidateThresholds(10, 10, 15); !errors.Is(err, ErrThresholdOrder) {
		t.Errorf("equal thresholds: expected ErrThresholdOrder, got %v", err)
	}
	if err := ValidateThresholds(15, 10, 5); !errors.Is(err, ErrThresholdOrder) {
		t.Errorf("descending thresholds: expected ErrThresholdOrder, got %v", err)
	}
	if err := ValidateThresholds(0, 10, 15); !errors.Is(err, ErrThresholdRange) {
		t.Errorf("zero threshold: expected ErrThresholdRange, got %v", err)
	}
	if err := ValidateThresholds(-1, 10, 15); !errors.Is(err, ErrThresholdRange) {
		t.Errorf("negative threshold: expected ErrThresholdRange, got %v", err)
	}
}

func TestAlertValidate(t *testing.T) {
	a := &Alert{
		UserID:    "u1",
		Symbol:    "XBT/USD",
		AssetType: AssetCrypto,
		SmallPct:  5,
		MediumPct: 10,
		LargePct:  15,
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid alert rejected: %v", err)
	}

	bad := *a
	bad.UserID = "  "
	if err := bad.Validate(); err == nil {
		t.Error("blank user_id should be rejected")
	}

	bad = *a
	bad.AssetType = "bond"
	if err := bad.Validate(); err == nil {
		t.Error("unknown asset type should be rejected")
	}
}

func TestParseLevel(t *testing.T) {
	for _, l := range []Level{LevelSmall, LevelMedium, LevelLarge} {
		if got := ParseLevel(l.String()); got != l {
			t.Errorf("round trip for %s: got %s", l, got)
		}
	}
	if got := ParseLevel("whatever"); got != LevelNone {
		t.Errorf("unknown level string: expected none, got %s", got)
	}
}

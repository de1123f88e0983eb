package service

import "dipwatch/internal/domain/model"

// RecoveryFactor is the baseline reset trigger: a close above
// baseline*RecoveryFactor re-anchors the dip measurement at the new local
// peak.
const RecoveryFactor = 1.02

// DropPct measures how far price has fallen below baseline, in percent.
// Negative when price is above baseline.
func DropPct(baseline, price float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return (baseline - price) / baseline * 100
}

// TriggeredLevel returns the single highest tier whose threshold is reached,
// checked large -> medium -> small. A move that crosses all three thresholds
// in one tick yields only LevelLarge.
func TriggeredLevel(small, medium, large, baseline, price float64) model.Level {
	drop := DropPct(baseline, price)
	switch {
	case drop >= large:
		return model.LevelLarge
	case drop >= medium:
		return model.LevelMedium
	case drop >= small:
		return model.LevelSmall
	default:
		return model.LevelNone
	}
}

// ShouldResetBaseline reports whether price has recovered enough above
// baseline that the next dip should be measured from here.
func ShouldResetBaseline(baseline, price float64) bool {
	return baseline > 0 && price > baseline*RecoveryFactor
}

// Package domain holds the resource-forecasting entities and pure calculation
// logic: category resolution, the offering multiplier, the backward stage
// scheduler, and the portfolio daily-expansion aggregator. Nothing in this
// package talks to a database, a clock, or the network; every function here
// is deterministic given its arguments.
package domain

// Stage is one of the fixed, ordered sales-stage codes.
type Stage string

const (
	Stage01  Stage = "01"
	Stage02  Stage = "02"
	Stage03  Stage = "03"
	Stage04A Stage = "04A"
	Stage04B Stage = "04B"
	Stage05A Stage = "05A"
	Stage05B Stage = "05B"
	Stage06  Stage = "06"
)

// StageOrder is the fixed chronological ordering of sales stages. Index 0 is
// "earliest remaining work", the last index is closest to decision date.
var StageOrder = []Stage{Stage01, Stage02, Stage03, Stage04A, Stage04B, Stage05A, Stage05B, Stage06}

func stageIndex(s Stage) int {
	for i, v := range StageOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// NormalizeCurrentStage maps an unknown or empty stage code to Stage01, the
// spec's rule for "all stages remain".
func NormalizeCurrentStage(s Stage) Stage {
	if stageIndex(s) < 0 {
		return Stage01
	}
	return s
}

// RemainingStages returns the suffix of StageOrder beginning at current,
// after normalization.
func RemainingStages(current Stage) []Stage {
	idx := stageIndex(NormalizeCurrentStage(current))
	out := make([]Stage, len(StageOrder)-idx)
	copy(out, StageOrder[idx:])
	return out
}

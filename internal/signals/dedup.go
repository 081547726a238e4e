package signals

import (
	"fmt"
	"math"
	"time"
)

// dedupState is the rolling per-symbol bookkeeping the Deduplicator needs to
// evaluate cooldown, change-threshold, decay, and max-same-direction rules.
type dedupState struct {
	lastEmitTime     time.Time
	lastScore        float64
	sameDirectionRun int
	runDirection     int // position sign the current run was accumulated against
}

// Deduplicator suppresses signal emissions that are too frequent, too
// similar to the last emission, or too persistently one-directional,
// following the same cooldown/threshold guard shape used elsewhere in this
// codebase for execution-timing guards.
type Deduplicator struct {
	Cooldown         time.Duration
	ChangeThreshold  float64
	DecayGamma       float64
	MaxSameDirection int

	state map[string]*dedupState
}

// NewDeduplicator builds a Deduplicator with the given parameters.
func NewDeduplicator(cooldown time.Duration, changeThreshold, decayGamma float64, maxSameDirection int) *Deduplicator {
	return &Deduplicator{
		Cooldown:         cooldown,
		ChangeThreshold:  changeThreshold,
		DecayGamma:       decayGamma,
		MaxSameDirection: maxSameDirection,
		state:            make(map[string]*dedupState),
	}
}

// Evaluate decides whether a newly classified score for symbol should be
// emitted, returning the (possibly decayed) score to act on. positionSign is
// the sign of the symbol's current position (0 if flat). Checks run in this
// order: cooldown, change-threshold, max-same-direction; the decay and
// max-same-direction rules both key off positionSign rather than the
// previous signal's direction, resetting once the position flips or
// flattens, so a run of same-direction signals tapers off only while they
// keep agreeing with the position the trader is actually holding.
func (d *Deduplicator) Evaluate(symbol string, score float64, positionSign int, now time.Time) (emit bool, adjusted float64, reason string) {
	st, ok := d.state[symbol]
	if !ok {
		st = &dedupState{}
		d.state[symbol] = st
	}

	if st.runDirection != positionSign {
		st.sameDirectionRun = 0
		st.runDirection = positionSign
	}
	aligned := positionSign != 0 && sign(score) == positionSign
	sameDirection := aligned && !st.lastEmitTime.IsZero()

	if !st.lastEmitTime.IsZero() && now.Sub(st.lastEmitTime) < d.Cooldown {
		return false, 0, "cooldown"
	}

	if sameDirection && math.Abs(score-st.lastScore) < d.ChangeThreshold {
		return false, 0, "change_threshold"
	}

	if aligned && st.sameDirectionRun >= d.MaxSameDirection {
		return false, 0, fmt.Sprintf("max_same_direction(%d)", d.MaxSameDirection)
	}

	run := 0
	if aligned {
		run = st.sameDirectionRun + 1
	}

	decayed := score * math.Pow(d.DecayGamma, float64(run))

	st.lastEmitTime = now
	st.lastScore = score
	st.sameDirectionRun = run
	st.runDirection = positionSign

	return true, decayed, ""
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

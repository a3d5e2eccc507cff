package tournament

import (
	"time"

	"poker-core/internal/events"
)

const levelWarningLead = 30 * time.Second

// scheduleBlindClock arms the warning and advance timers for the current
// level, counting blindLevelDurationMillis from now.
func (tr *Tournament) scheduleBlindClock() {
	d := time.Duration(tr.settings.BlindLevelDurationMillis) * time.Millisecond
	tr.levelEndsAt = tr.clk.Now().Add(d)
	tr.armBlindTimers(d)
}

func (tr *Tournament) armBlindTimers(remaining time.Duration) {
	if warnIn := remaining - levelWarningLead; warnIn > 0 {
		tr.warnTimer = tr.clk.AfterFunc(warnIn, func() { tr.enqueue(tr.fireLevelWarning) })
	}
	tr.blindTimer = tr.clk.AfterFunc(remaining, func() { tr.enqueue(tr.advanceBlindLevel) })
}

func (tr *Tournament) fireLevelWarning() {
	tr.publish(events.TournamentLevelWarning{
		TimeRemainingMs: levelWarningLead.Milliseconds(),
		CurrentLevel:    tr.currentLevel,
	})
}

// advanceBlindLevel fires when the current level's timer elapses. It pushes
// the new blinds to every alive table (effective at each table's next
// hand) and rearms the clock for the next level. At the final configured
// level blinds stay flat; the clock is not rearmed further.
func (tr *Tournament) advanceBlindLevel() {
	if tr.currentLevel >= len(tr.settings.BlindStructure)-1 {
		return
	}
	tr.currentLevel++
	lvl := tr.settings.BlindStructure[tr.currentLevel]
	for _, tbl := range tr.tables {
		tbl.ApplyBlindLevel(lvl.Small, lvl.Big)
	}
	d := time.Duration(tr.settings.BlindLevelDurationMillis) * time.Millisecond
	tr.levelEndsAt = tr.clk.Now().Add(d)
	tr.publish(events.TournamentBlindLevelAdvanced{
		Level:       tr.currentLevel,
		SmallBlind:  lvl.Small,
		BigBlind:    lvl.Big,
		LevelEndsAt: tr.levelEndsAt.UnixMilli(),
	})
	tr.armBlindTimers(d)
}

// pauseBlindClock cancels the outstanding timers and records exactly how
// much time was left in the current level, so resume can restore it.
func (tr *Tournament) pauseBlindClock() {
	tr.cancelBlindTimers()
	remaining := tr.levelEndsAt.Sub(tr.clk.Now())
	if remaining < 0 {
		remaining = 0
	}
	tr.remainingMs = remaining.Milliseconds()
}

// resumeBlindClock rearms the clock for exactly the time recorded at pause.
func (tr *Tournament) resumeBlindClock() {
	remaining := time.Duration(tr.remainingMs) * time.Millisecond
	tr.levelEndsAt = tr.clk.Now().Add(remaining)
	tr.armBlindTimers(remaining)
}

func (tr *Tournament) cancelBlindTimers() {
	if tr.blindTimer != nil {
		tr.blindTimer.Cancel()
		tr.blindTimer = nil
	}
	if tr.warnTimer != nil {
		tr.warnTimer.Cancel()
		tr.warnTimer = nil
	}
}

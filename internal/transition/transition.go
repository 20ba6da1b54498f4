// Package transition decides, per machine and per poll cycle, whether a
// machine just finished its load.
package transition

import "laundry-notifier/internal/model"

// Detect classifies one machine. prev is nil when the machine is seen for
// the first time. Detect is pure and safe to call concurrently.
func Detect(prev *model.Snapshot, cur model.Snapshot) model.TransitionEvent {
	return model.TransitionEvent{
		Current:  cur,
		Previous: prev,
		Finished: finished(prev, cur),
	}
}

func finished(prev *model.Snapshot, cur model.Snapshot) bool {
	if cur.Status == model.StatusFinished {
		return true
	}
	if prev == nil {
		return false
	}
	return prev.Status == model.StatusInUse && cur.Status == model.StatusAvailable
}

package notification

import (
	"fmt"

	"laundry-notifier/internal/model"
)

// FormatRemaining renders a remaining time in seconds as "N minutes" or
// "H hours M minutes", rounding up to the next whole minute.
func FormatRemaining(seconds int) string {
	if seconds <= 0 {
		return "0 minutes"
	}

	minutes := (seconds + 59) / 60
	if minutes < 60 {
		return plural(minutes, "minute")
	}

	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return plural(hours, "hour")
	}
	return plural(hours, "hour") + " " + plural(rest, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// claimantMessage is sent to the user who claimed the finished load.
func claimantMessage(m model.Snapshot) string {
	return fmt.Sprintf("Your laundry in %s (%s) is ready to be collected! Cycle: %s", m.Name, m.Kind(), m.Cycle)
}

// snooperMessage is sent to users snooping on the finished machine.
func snooperMessage(m model.Snapshot) string {
	return fmt.Sprintf("%s (%s) is done!", m.Name, m.Kind())
}

package model

// Status is the normalized state of a machine as reported by the feed.
type Status string

const (
	StatusAvailable  Status = "AVAILABLE"
	StatusInUse      Status = "IN_USE"
	StatusFinished   Status = "FINISHED"
	StatusOutOfOrder Status = "OUT_OF_ORDER"
	StatusUnknown    Status = "UNKNOWN"
)

// Statuses lists every member of the closed status set.
var Statuses = []Status{StatusAvailable, StatusInUse, StatusFinished, StatusOutOfOrder, StatusUnknown}

// UnknownCycle is the cycle label used when the feed reports none.
const UnknownCycle = "Unknown"

// Snapshot is one machine's state as of a single poll. It is passed by value
// and never modified once built.
type Snapshot struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Number           string `json:"number"`
	IsWasher         bool   `json:"isWasher"`
	IsDryer          bool   `json:"isDryer"`
	Status           Status `json:"status"`
	RemainingSeconds int    `json:"remainingSeconds"`
	DoorOpen         bool   `json:"doorOpen"`
	Cycle            string `json:"cycle"`
	RemainingVend    *int   `json:"remainingVend,omitempty"`
}

// Kind returns "washer" or "dryer". Machines flagged as both count as washers.
func (s Snapshot) Kind() string {
	if s.IsWasher {
		return "washer"
	}
	return "dryer"
}

// TransitionEvent is the verdict for one machine in one poll cycle.
type TransitionEvent struct {
	Current  Snapshot  `json:"current"`
	Previous *Snapshot `json:"previous"`
	Finished bool      `json:"finished"`
}

// StatusChanged reports whether the machine was seen before with a different status.
func (e TransitionEvent) StatusChanged() bool {
	return e.Previous != nil && e.Previous.Status != e.Current.Status
}

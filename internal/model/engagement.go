package model

import "time"

// NoticeKind identifies which notification a marker tracks.
type NoticeKind int

const (
	NoticeEarlyWarning NoticeKind = iota
	NoticeCompletion
	noticeKinds
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeEarlyWarning:
		return "early-warning"
	case NoticeCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// NoticeState is either NotSent or Sent.
type NoticeState int

const (
	NoticeNotSent NoticeState = iota
	NoticeSent
)

// Notice records whether a notification of some kind was delivered, and when.
type Notice struct {
	State  NoticeState `json:"state"`
	SentAt time.Time   `json:"sentAt,omitempty"`
}

// Sent reports whether the notice was delivered.
func (n Notice) Sent() bool { return n.State == NoticeSent }

// Notices holds one Notice per NoticeKind.
type Notices [noticeKinds]Notice

// Get returns the notice for kind. Unknown kinds read as not sent.
func (n *Notices) Get(kind NoticeKind) Notice {
	if kind < 0 || kind >= noticeKinds {
		return Notice{}
	}
	return n[kind]
}

// Mark records kind as sent at t. Unknown kinds are ignored.
func (n *Notices) Mark(kind NoticeKind, t time.Time) {
	if kind < 0 || kind >= noticeKinds {
		return
	}
	n[kind] = Notice{State: NoticeSent, SentAt: t}
}

// Claim is a user's declared ownership of a machine's current load.
type Claim struct {
	MachineID string    `json:"machineId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	ClaimedAt time.Time `json:"claimedAt"`
	Notices   Notices   `json:"notices"`
}

// Snoop is a passive completion subscription.
type Snoop struct {
	MachineID string    `json:"machineId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	SnoopedAt time.Time `json:"snoopedAt"`
	Notices   Notices   `json:"notices"`
}

// Engagement is a machine's claim, if any, and its snoopers in insertion order.
type Engagement struct {
	Claim  *Claim  `json:"claim"`
	Snoops []Snoop `json:"snoops"`
}

// Empty reports whether nobody is engaged with the machine.
func (e Engagement) Empty() bool {
	return e.Claim == nil && len(e.Snoops) == 0
}

package tracker

// Command is a user request against the tracker. The transport that
// received the request builds the command; the tracker never sees
// transport-specific payloads.
type Command interface {
	command()
}

// ClaimRequested asks to claim MachineID for UserID.
type ClaimRequested struct {
	MachineID string
	UserID    string
	Username  string
}

// ReleaseRequested asks to drop the claim on MachineID.
type ReleaseRequested struct {
	MachineID string
}

// SnoopRequested asks to notify UserID when MachineID finishes.
type SnoopRequested struct {
	MachineID string
	UserID    string
	Username  string
}

// UnsnoopRequested asks to stop notifying UserID about MachineID.
type UnsnoopRequested struct {
	MachineID string
	UserID    string
}

func (ClaimRequested) command()   {}
func (ReleaseRequested) command() {}
func (SnoopRequested) command()   {}
func (UnsnoopRequested) command() {}

// Handle applies cmd and reports whether it changed anything. A false
// result means the request conflicted with the current state: the machine
// was already claimed, the user was already snooping, or there was nothing
// to remove.
func (t *Tracker) Handle(cmd Command) bool {
	switch c := cmd.(type) {
	case ClaimRequested:
		return t.Claim(c.MachineID, c.UserID, c.Username)
	case ReleaseRequested:
		_, ok := t.ReleaseClaim(c.MachineID)
		return ok
	case SnoopRequested:
		return t.Snoop(c.MachineID, c.UserID, c.Username)
	case UnsnoopRequested:
		return t.Unsnoop(c.MachineID, c.UserID)
	default:
		return false
	}
}

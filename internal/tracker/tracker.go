// Package tracker keeps the in-memory record of who claimed which machine
// and who is snooping on it, along with which notifications they already got.
package tracker

import (
	"log"
	"sync"
	"time"

	"laundry-notifier/internal/model"
)

// Tracker is safe for concurrent use. Every operation runs inside a single
// critical section and never blocks on I/O.
type Tracker struct {
	mu     sync.RWMutex
	claims map[string]*model.Claim
	snoops map[string][]*model.Snoop
	now    func() time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		claims: make(map[string]*model.Claim),
		snoops: make(map[string][]*model.Snoop),
		now:    time.Now,
	}
}

// Claim records userID as the owner of machineID's load. It returns false,
// leaving the existing claim in place, if the machine is already claimed.
func (t *Tracker) Claim(machineID, userID, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.claims[machineID]; exists {
		return false
	}
	t.claims[machineID] = &model.Claim{
		MachineID: machineID,
		UserID:    userID,
		Username:  username,
		ClaimedAt: t.now(),
	}
	log.Printf("Machine %s claimed by %s (%s)", machineID, username, userID)
	return true
}

// ReleaseClaim removes and returns the claim on machineID, if any.
func (t *Tracker) ReleaseClaim(machineID string) (model.Claim, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.claims[machineID]
	if !ok {
		return model.Claim{}, false
	}
	delete(t.claims, machineID)
	log.Printf("Claim removed from machine %s", machineID)
	return *c, true
}

// GetClaim returns a copy of the claim on machineID, if any.
func (t *Tracker) GetClaim(machineID string) (model.Claim, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.claims[machineID]
	if !ok {
		return model.Claim{}, false
	}
	return *c, true
}

// Snoop subscribes userID to machineID's completion. It returns false if
// the user is already snooping on that machine.
func (t *Tracker) Snoop(machineID, userID, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.snoops[machineID] {
		if s.UserID == userID {
			return false
		}
	}
	t.snoops[machineID] = append(t.snoops[machineID], &model.Snoop{
		MachineID: machineID,
		UserID:    userID,
		Username:  username,
		SnoopedAt: t.now(),
	})
	log.Printf("User %s (%s) added snoop to machine %s", username, userID, machineID)
	return true
}

// Unsnoop removes userID's snoop on machineID and reports whether one
// existed. A machine left with no snoopers is dropped from the index.
func (t *Tracker) Unsnoop(machineID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.snoops[machineID]
	for i, s := range list {
		if s.UserID != userID {
			continue
		}
		if len(list) == 1 {
			delete(t.snoops, machineID)
		} else {
			rest := make([]*model.Snoop, 0, len(list)-1)
			rest = append(rest, list[:i]...)
			t.snoops[machineID] = append(rest, list[i+1:]...)
		}
		log.Printf("Snoop removed from machine %s for user %s", machineID, userID)
		return true
	}
	return false
}

// GetSnoops returns copies of machineID's snoops in the order they were added.
// The result is never nil.
func (t *Tracker) GetSnoops(machineID string) []model.Snoop {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copySnoops(t.snoops[machineID])
}

// MarkClaimNotified records that the claimant of machineID got a
// notification of the given kind. It is a no-op when there is no claim.
func (t *Tracker) MarkClaimNotified(machineID string, kind model.NoticeKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.claims[machineID]; ok {
		c.Notices.Mark(kind, t.now())
	}
}

// MarkSnoopsNotified records that every current snooper of machineID got a
// notification of the given kind.
func (t *Tracker) MarkSnoopsNotified(machineID string, kind model.NoticeKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for _, s := range t.snoops[machineID] {
		s.Notices.Mark(kind, now)
	}
}

// TakePending returns the claim and snoops of machineID that have not yet
// been sent a notice of kind, and marks exactly those as sent in the same
// critical section. Engagements registered afterwards stay pending.
func (t *Tracker) TakePending(machineID string, kind model.NoticeKind) model.Engagement {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var e model.Engagement
	if c, ok := t.claims[machineID]; ok && !c.Notices.Get(kind).Sent() {
		c.Notices.Mark(kind, now)
		claim := *c
		e.Claim = &claim
	}
	for _, s := range t.snoops[machineID] {
		if s.Notices.Get(kind).Sent() {
			continue
		}
		s.Notices.Mark(kind, now)
		e.Snoops = append(e.Snoops, *s)
	}
	return e
}

// ClearMachine drops the claim and every snoop on machineID at once.
func (t *Tracker) ClearMachine(machineID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, claimed := t.claims[machineID]
	_, snooped := t.snoops[machineID]
	delete(t.claims, machineID)
	delete(t.snoops, machineID)
	if claimed || snooped {
		log.Printf("Cleared all user data for machine %s", machineID)
	}
}

// Engagement returns machineID's claim and snoops read in one critical section.
func (t *Tracker) Engagement(machineID string) model.Engagement {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var e model.Engagement
	if c, ok := t.claims[machineID]; ok {
		claim := *c
		e.Claim = &claim
	}
	e.Snoops = copySnoops(t.snoops[machineID])
	return e
}

// AllClaims returns every claim, in no particular order.
func (t *Tracker) AllClaims() []model.Claim {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]model.Claim, 0, len(t.claims))
	for _, c := range t.claims {
		out = append(out, *c)
	}
	return out
}

// AllSnoops returns every snoop. Snoops of one machine keep their order.
func (t *Tracker) AllSnoops() []model.Snoop {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []model.Snoop
	for _, list := range t.snoops {
		out = append(out, copySnoops(list)...)
	}
	return out
}

func copySnoops(list []*model.Snoop) []model.Snoop {
	out := make([]model.Snoop, 0, len(list))
	for _, s := range list {
		out = append(out, *s)
	}
	return out
}

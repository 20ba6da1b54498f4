package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"laundry-notifier/internal/model"
	"laundry-notifier/internal/store"
	"laundry-notifier/internal/tracker"
	"laundry-notifier/internal/transition"
)

// MachineView exposes the latest complete generation.
type MachineView interface {
	Current() *transition.Generation
}

// Engagements is the part of the tracker the API reads and mutates.
type Engagements interface {
	Handle(cmd tracker.Command) bool
	ReleaseClaim(machineID string) (model.Claim, bool)
	Engagement(machineID string) model.Engagement
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	machines MachineView
	tracker  Engagements
	store    store.Store
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(machines MachineView, tr Engagements, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		machines: machines,
		tracker:  tr,
		store:    s,
		webpush:  webpushOptions,
	}
}

// machine looks id up in the current generation.
func (h *Handler) machine(id string) (model.Snapshot, bool) {
	if h.machines == nil {
		return model.Snapshot{}, false
	}
	return h.machines.Current().Get(id)
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"laundry-notifier/internal/model"
	"laundry-notifier/internal/notification"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// machineResponse is a snapshot joined with who is waiting on it.
type machineResponse struct {
	model.Snapshot
	Kind      string        `json:"kind"`
	Remaining string        `json:"remaining"`
	Claim     *model.Claim  `json:"claim"`
	Snoops    []model.Snoop `json:"snoops"`
}

func (h *Handler) describe(s model.Snapshot) machineResponse {
	e := h.tracker.Engagement(s.ID)
	return machineResponse{
		Snapshot:  s,
		Kind:      s.Kind(),
		Remaining: notification.FormatRemaining(s.RemainingSeconds),
		Claim:     e.Claim,
		Snoops:    e.Snoops,
	}
}

// ListMachines handles GET /api/machines.
func (h *Handler) ListMachines(c *gin.Context) {
	var snaps []model.Snapshot
	if h.machines != nil {
		snaps = h.machines.Current().Snapshots()
	}

	response := make([]machineResponse, 0, len(snaps))
	for _, s := range snaps {
		response = append(response, h.describe(s))
	}
	c.JSON(http.StatusOK, response)
}

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	s, ok := h.machine(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "machine not found"})
		return
	}
	c.JSON(http.StatusOK, h.describe(s))
}

// GetMachineHistory handles GET /api/machines/:id/history.
func (h *Handler) GetMachineHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.store.FinishHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []model.FinishRecord{}
	}
	c.JSON(http.StatusOK, records)
}

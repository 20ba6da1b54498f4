package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-notifier/internal/model"
	"laundry-notifier/internal/tracker"
)

type engageRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Username string `json:"username"`
}

func (r engageRequest) name() string {
	if r.Username == "" {
		return r.UserID
	}
	return r.Username
}

// ClaimMachine handles POST /api/machines/:id/claim. Only a machine that is
// running can be claimed.
func (h *Handler) ClaimMachine(c *gin.Context) {
	var req engageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id := c.Param("id")
	m, ok := h.machine(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "machine not found"})
		return
	}
	if m.Status != model.StatusInUse {
		c.JSON(http.StatusConflict, gin.H{"error": "machine is not in use"})
		return
	}

	if !h.tracker.Handle(tracker.ClaimRequested{MachineID: id, UserID: req.UserID, Username: req.name()}) {
		c.JSON(http.StatusConflict, gin.H{"error": "machine is already claimed"})
		return
	}
	c.JSON(http.StatusCreated, h.tracker.Engagement(id).Claim)
}

// ReleaseClaim handles DELETE /api/machines/:id/claim.
func (h *Handler) ReleaseClaim(c *gin.Context) {
	claim, ok := h.tracker.ReleaseClaim(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "machine is not claimed"})
		return
	}
	c.JSON(http.StatusOK, claim)
}

// SnoopMachine handles POST /api/machines/:id/snoops.
func (h *Handler) SnoopMachine(c *gin.Context) {
	var req engageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	id := c.Param("id")
	if _, ok := h.machine(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "machine not found"})
		return
	}

	if !h.tracker.Handle(tracker.SnoopRequested{MachineID: id, UserID: req.UserID, Username: req.name()}) {
		c.JSON(http.StatusConflict, gin.H{"error": "already snooping on this machine"})
		return
	}
	c.JSON(http.StatusCreated, h.tracker.Engagement(id).Snoops)
}

// UnsnoopMachine handles DELETE /api/machines/:id/snoops/:user_id.
func (h *Handler) UnsnoopMachine(c *gin.Context) {
	if !h.tracker.Handle(tracker.UnsnoopRequested{MachineID: c.Param("id"), UserID: c.Param("user_id")}) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not snooping on this machine"})
		return
	}
	c.Status(http.StatusNoContent)
}

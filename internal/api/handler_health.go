package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports whether the monitor has completed a poll.
func (h *Handler) Health(c *gin.Context) {
	if h.machines == nil || h.machines.Current() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "waiting for first poll"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "machines": h.machines.Current().Len()})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"UpWatch/internal/backend/services"
)

// CreateMonitor registers a new monitored URL for the calling owner.
func (h *Handlers) CreateMonitor(c *gin.Context) {
	var params services.MonitorParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "Malformed monitor body"))
		return
	}

	monitor, err := h.monitorService.Create(c.Request.Context(), callerFrom(c), params)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse("monitor_created", gin.H{
		"monitor": monitor,
	}))
}

// ListMonitors returns the caller's monitors (all of them for admins).
func (h *Handlers) ListMonitors(c *gin.Context) {
	monitors, err := h.monitorService.List(c.Request.Context(), callerFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitors_list", gin.H{
		"monitors": monitors,
		"count":    len(monitors),
	}))
}

// GetMonitor returns one monitor with its recent results.
func (h *Handlers) GetMonitor(c *gin.Context) {
	monitor, err := h.monitorService.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitor_found", gin.H{
		"monitor": monitor,
	}))
}

// UpdateMonitor edits url/label/frequency.
func (h *Handlers) UpdateMonitor(c *gin.Context) {
	var params services.MonitorParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "Malformed monitor body"))
		return
	}

	monitor, err := h.monitorService.Update(c.Request.Context(), callerFrom(c), c.Param("id"), params)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitor_updated", gin.H{
		"monitor": monitor,
	}))
}

// DeleteMonitor removes a monitor and all of its results.
func (h *Handlers) DeleteMonitor(c *gin.Context) {
	if err := h.monitorService.Delete(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitor_deleted", nil))
}

// GetMonitorResults returns recent check results for a monitor.
func (h *Handlers) GetMonitorResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	results, err := h.monitorService.Results(c.Request.Context(), callerFrom(c), c.Param("id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("results_found", gin.H{
		"monitor_id": c.Param("id"),
		"results":    results,
		"count":      len(results),
	}))
}

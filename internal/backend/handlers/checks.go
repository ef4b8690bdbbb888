package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	shared "UpWatch/internal/shared/models"
)

// PendingChecks lists currently claimed monitors, oldest claim first, so
// stale leases are visible to workers and operators.
func (h *Handlers) PendingChecks(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "50"))

	tickets, err := h.schedulerService.ListPending(c.Request.Context(), callerFrom(c), count)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("pending_checks", gin.H{
		"checks": tickets,
		"count":  len(tickets),
	}))
}

// ClaimChecks hands the caller a batch of exclusive claim tickets for due
// monitors.
func (h *Handlers) ClaimChecks(c *gin.Context) {
	var req shared.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "Count is required"))
		return
	}

	tickets, err := h.schedulerService.ClaimNext(c.Request.Context(), callerFrom(c), req.Count)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("checks_claimed", gin.H{
		"checks": tickets,
		"count":  len(tickets),
	}))
}

// SubmitResult closes a claim with an externally observed outcome.
func (h *Handlers) SubmitResult(c *gin.Context) {
	var req shared.ResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "Malformed result body"))
		return
	}
	if req.MonitorID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "Monitor id is required"))
		return
	}

	result, err := h.recorderService.Record(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse("result_recorded", gin.H{
		"result": result,
	}))
}

// ExecuteCheck claims the monitor, probes it server-side and records the
// outcome in one go.
func (h *Handlers) ExecuteCheck(c *gin.Context) {
	var req struct {
		MonitorID string `json:"monitor_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", "Monitor id is required"))
		return
	}

	result, err := h.recorderService.Execute(c.Request.Context(), callerFrom(c), req.MonitorID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("check_executed", gin.H{
		"result": result,
	}))
}

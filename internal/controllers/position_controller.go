package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"route_tracker/internal/apperr"
)

// RecordPosition stores a GPS sample for a run in progress.
func (h *Controller) RecordPosition(c *gin.Context) {
	runID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		ProfileID string   `json:"profile_id"`
		Lat       *float64 `json:"lat"`
		Lon       *float64 `json:"lon"`
	}
	if !h.bindJSON(c, &input) {
		return
	}
	if input.Lat == nil || input.Lon == nil {
		h.respondError(c, apperr.Validation("lat and lon are required"))
		return
	}
	profileID, ok := h.requireUUID(c, "profile_id", input.ProfileID)
	if !ok {
		return
	}

	pos, err := h.svc.Positions.RecordPosition(c.Request.Context(), runID, profileID, *input.Lat, *input.Lon)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"position": pos})
}

// ListPositions returns a run's positions, oldest first.
func (h *Controller) ListPositions(c *gin.Context) {
	runID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	positions, err := h.svc.Positions.ListPositions(c.Request.Context(), runID, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

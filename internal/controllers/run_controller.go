package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartRun opens a run for a vehicle on a route.
func (h *Controller) StartRun(c *gin.Context) {
	var input struct {
		RouteID   string `json:"route_id"`
		VehicleID string `json:"vehicle_id"`
		ProfileID string `json:"profile_id"`
	}
	if !h.bindJSON(c, &input) {
		return
	}
	routeID, ok := h.requireUUID(c, "route_id", input.RouteID)
	if !ok {
		return
	}
	vehicleID, ok := h.requireUUID(c, "vehicle_id", input.VehicleID)
	if !ok {
		return
	}
	profileID, ok := h.requireUUID(c, "profile_id", input.ProfileID)
	if !ok {
		return
	}

	run, err := h.svc.Trips.StartRun(c.Request.Context(), routeID, vehicleID, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"run": run})
}

// FinalizeRun completes a run owned by the caller.
func (h *Controller) FinalizeRun(c *gin.Context) {
	runID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		ProfileID string `json:"profile_id"`
	}
	if !h.bindJSON(c, &input) {
		return
	}
	profileID, ok := h.requireUUID(c, "profile_id", input.ProfileID)
	if !ok {
		return
	}

	run, err := h.svc.Trips.FinalizeRun(c.Request.Context(), runID, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// MyRuns lists the runs of ?profile_id=, newest first.
func (h *Controller) MyRuns(c *gin.Context) {
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	runs, err := h.svc.Trips.ListRunsByProfile(c.Request.Context(), profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// RouteRuns lists the runs of a route owned by ?profile_id=.
func (h *Controller) RouteRuns(c *gin.Context) {
	routeID, ok := h.pathID(c, "route_id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	runs, err := h.svc.Trips.ListRunsByRoute(c.Request.Context(), routeID, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

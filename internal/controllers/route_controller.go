package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"route_tracker/internal/services"
)

// CreateRoute creates a route from a GeoJSON shape or from an ordered list of streets.
func (h *Controller) CreateRoute(c *gin.Context) {
	var input struct {
		Name      string          `json:"name" binding:"required,max=255"`
		ProfileID string          `json:"profile_id"`
		Color     *string         `json:"color"`
		Shape     json.RawMessage `json:"shape"`
		StreetIDs []uuid.UUID     `json:"street_ids"`
	}
	if !h.bindJSON(c, &input) {
		return
	}
	profileID, ok := h.requireUUID(c, "profile_id", input.ProfileID)
	if !ok {
		return
	}

	route, err := h.svc.Routes.CreateRoute(c.Request.Context(), services.CreateRouteInput{
		Name:      input.Name,
		ProfileID: profileID,
		Color:     input.Color,
		Shape:     input.Shape,
		StreetIDs: input.StreetIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"route": route})
}

// ListRoutes returns the routes of ?profile_id= without their geometry.
func (h *Controller) ListRoutes(c *gin.Context) {
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	routes, err := h.svc.Routes.ListRoutes(c.Request.Context(), profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

// GetRoute returns a single route with its schedules and ordered streets for the owner
func (h *Controller) GetRoute(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	route, err := h.svc.Routes.GetRoute(c.Request.Context(), id, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route})
}

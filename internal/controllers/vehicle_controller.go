package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"route_tracker/internal/services"
)

// CreateVehicle registers a vehicle for a profile; Active defaults to true
func (h *Controller) CreateVehicle(c *gin.Context) {
	var input struct {
		Plate     string  `json:"plate" binding:"required"`
		Make      *string `json:"make"`
		Model     *string `json:"model"`
		Active    *bool   `json:"active"`
		ProfileID string  `json:"profile_id"`
	}
	if !h.bindJSON(c, &input) {
		return
	}
	profileID, ok := h.requireUUID(c, "profile_id", input.ProfileID)
	if !ok {
		return
	}

	v, err := h.svc.Vehicles.Create(c.Request.Context(), services.VehicleInput{
		Plate:     input.Plate,
		Make:      input.Make,
		Model:     input.Model,
		Active:    input.Active,
		ProfileID: profileID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": v})
}

// ListVehicles returns the vehicles of ?profile_id=.
func (h *Controller) ListVehicles(c *gin.Context) {
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	vehicles, err := h.svc.Vehicles.List(c.Request.Context(), profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Controller) GetVehicle(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	v, err := h.svc.Vehicles.Get(c.Request.Context(), id, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v})
}

func (h *Controller) UpdateVehicle(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	var input struct {
		Plate  *string `json:"plate"`
		Make   *string `json:"make"`
		Model  *string `json:"model"`
		Active *bool   `json:"active"`
	}
	if !h.bindJSON(c, &input) {
		return
	}

	v, err := h.svc.Vehicles.Update(c.Request.Context(), id, profileID, services.VehicleUpdate{
		Plate:  input.Plate,
		Make:   input.Make,
		Model:  input.Model,
		Active: input.Active,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v})
}

func (h *Controller) DeleteVehicle(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	if err := h.svc.Vehicles.Delete(c.Request.Context(), id, profileID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
}

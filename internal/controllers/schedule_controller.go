package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"route_tracker/internal/services"
)

type scheduleInput struct {
	DayOfWeek int     `json:"day_of_week" binding:"required"`
	StartTime string  `json:"start_time" binding:"required"`
	EndTime   *string `json:"end_time"`
}

func (in scheduleInput) toService() services.ScheduleInput {
	return services.ScheduleInput{DayOfWeek: in.DayOfWeek, StartTime: in.StartTime, EndTime: in.EndTime}
}

func (h *Controller) ListSchedules(c *gin.Context) {
	routeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	schedules, err := h.svc.Schedules.List(c.Request.Context(), routeID, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

func (h *Controller) CreateSchedule(c *gin.Context) {
	routeID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		scheduleInput
		ProfileID string `json:"profile_id"`
	}
	if !h.bindJSON(c, &input) {
		return
	}
	profileID, ok := h.requireUUID(c, "profile_id", input.ProfileID)
	if !ok {
		return
	}
	s, err := h.svc.Schedules.Create(c.Request.Context(), routeID, profileID, input.toService())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": s})
}

func (h *Controller) UpdateSchedule(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	var input scheduleInput
	if !h.bindJSON(c, &input) {
		return
	}
	s, err := h.svc.Schedules.Update(c.Request.Context(), id, profileID, input.toService())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": s})
}

func (h *Controller) DeleteSchedule(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	profileID, ok := h.profileQuery(c)
	if !ok {
		return
	}
	if err := h.svc.Schedules.Delete(c.Request.Context(), id, profileID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
}

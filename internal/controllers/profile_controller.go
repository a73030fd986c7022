package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"route_tracker/internal/apperr"
)

// CreateProfile registers a new profile. Admin only.
func (h *Controller) CreateProfile(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required,max=255"`
	}
	if !h.bindJSON(c, &input) {
		return
	}
	p, err := h.svc.Profiles.Create(c.Request.Context(), input.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": p})
}

// ListProfiles returns every profile. Admin only.
func (h *Controller) ListProfiles(c *gin.Context) {
	profiles, err := h.svc.Profiles.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// PublicProfiles refuses to enumerate tenants.
func (h *Controller) PublicProfiles(c *gin.Context) {
	h.respondError(c, apperr.Forbidden("profiles are not publicly listable"))
}

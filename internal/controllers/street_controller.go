package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Controller) ListStreets(c *gin.Context) {
	streets, err := h.svc.Streets.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streets": streets})
}

func (h *Controller) GetStreet(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	s, err := h.svc.Streets.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"street": s})
}

package controllers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"route_tracker/internal/apperr"
	"route_tracker/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller holds the gin handlers of the API.
type Controller struct {
	svc   *services.Services
	store Pinger
	debug bool
}

func New(svc *services.Services, store Pinger, debug bool) *Controller {
	return &Controller{svc: svc, store: store, debug: debug}
}

// respondError writes err as {"error", "kind"}. Storage failures are logged and
// their cause is only exposed in debug mode.
func (h *Controller) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	body := gin.H{"error": apperr.MessageOf(err), "kind": kind}
	if kind == apperr.KindStorage {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		if h.debug {
			body["detail"] = err.Error()
		}
	}
	c.AbortWithStatusJSON(kind.Status(), body)
}

func (h *Controller) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logrus.WithError(err).WithField("path", c.FullPath()).Warn("invalid input payload")
		h.respondError(c, apperr.Validation("invalid input: %v", err))
		return false
	}
	return true
}

// pathID parses the UUID path parameter name.
func (h *Controller) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.respondError(c, apperr.Validation("%s must be a UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

// profileQuery reads the caller's ?profile_id=.
func (h *Controller) profileQuery(c *gin.Context) (uuid.UUID, bool) {
	return h.requireUUID(c, "profile_id", c.Query("profile_id"))
}

func (h *Controller) requireUUID(c *gin.Context, field, raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		h.respondError(c, apperr.Validation("%s is required", field))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		h.respondError(c, apperr.Validation("%s must be a UUID", field))
		return uuid.Nil, false
	}
	return id, true
}

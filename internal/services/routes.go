package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/apperr"
	"route_tracker/internal/geo"
	"route_tracker/internal/metrics"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Routes assembles and reads routes.
type Routes struct {
	store store.Store
}

// CreateRouteInput carries exactly one of Shape (GeoJSON) or StreetIDs.
type CreateRouteInput struct {
	Name      string
	ProfileID uuid.UUID
	Color     *string
	Shape     json.RawMessage
	StreetIDs []uuid.UUID
}

func (in CreateRouteInput) hasShape() bool {
	s := bytes.TrimSpace(in.Shape)
	return len(s) > 0 && !bytes.Equal(s, []byte("null"))
}

// CreateRoute stores a route built from a caller-supplied shape, or from the union
// of the given streets. In street mode the association rows keep the input order,
// duplicates included. The route and its associations are written atomically.
func (r *Routes) CreateRoute(ctx context.Context, in CreateRouteInput) (models.Route, error) {
	if in.hasShape() == (len(in.StreetIDs) > 0) {
		return models.Route{}, apperr.Validation("provide exactly one of shape or streetIds")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Route{}, apperr.Validation("name is required")
	}
	if in.Color != nil && !colorPattern.MatchString(*in.Color) {
		return models.Route{}, apperr.Validation("color must look like #RRGGBB")
	}
	if _, err := r.store.GetProfile(ctx, in.ProfileID); err != nil {
		return models.Route{}, requireProfile(err, in.ProfileID)
	}

	route := models.Route{
		ProfileID: in.ProfileID,
		Name:      name,
		Color:     in.Color,
	}

	mode := "shape"
	if in.hasShape() {
		shape, err := geo.ParseGeoJSON(in.Shape)
		if err != nil {
			return models.Route{}, apperr.Validation("shape is not valid GeoJSON: %v", err)
		}
		if err := geo.ValidateLinear(shape); err != nil {
			return models.Route{}, apperr.Validation("invalid shape: %v", err)
		}
		route.Shape = geo.Geometry{T: shape}
	} else {
		mode = "streets"
	}

	var created models.Route
	err := r.store.WithinTx(ctx, func(tx store.Store) error {
		if mode == "streets" {
			if err := assembleFromStreets(ctx, tx, &route, in.StreetIDs); err != nil {
				return err
			}
		}
		if err := tx.CreateRoute(ctx, &route); err != nil {
			return apperr.Storage(err, "create route")
		}
		var err error
		created, err = tx.GetRoute(ctx, route.ID)
		if err != nil {
			return apperr.Storage(err, "reload route")
		}
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			err = apperr.Storage(err, "create route")
		}
		return models.Route{}, err
	}

	metrics.RoutesCreated.WithLabelValues(mode).Inc()
	logrus.WithFields(logrus.Fields{
		"route_id":   created.ID,
		"profile_id": created.ProfileID,
		"mode":       mode,
	}).Info("route created")
	return created, nil
}

// assembleFromStreets sets the route's shape to the union of the streets and
// attaches them at their input positions.
func assembleFromStreets(ctx context.Context, tx store.Store, route *models.Route, ids []uuid.UUID) error {
	found, err := tx.FindStreets(ctx, ids)
	if err != nil {
		return apperr.Storage(err, "load streets")
	}
	known := make(map[uuid.UUID]bool, len(found))
	for _, s := range found {
		known[s.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return apperr.Validation("street %s does not exist", id)
		}
	}

	union, err := tx.UnionStreetGeometries(ctx, ids)
	if errors.Is(err, store.ErrEmptyUnion) {
		return apperr.Validation("could not derive a valid geometry from the selected streets")
	}
	if err != nil {
		return apperr.Storage(err, "union street geometries")
	}
	route.Shape = geo.Geometry{T: union}

	route.Streets = make([]models.RouteStreet, len(ids))
	for i, id := range ids {
		route.Streets[i] = models.RouteStreet{StreetID: id, Position: i}
	}
	return nil
}

// GetRoute returns a route with its streets and schedules. Only the owner may read it.
func (r *Routes) GetRoute(ctx context.Context, id, profileID uuid.UUID) (models.Route, error) {
	route, err := r.store.GetRoute(ctx, id)
	if err != nil {
		return models.Route{}, lookupErr(err, "route", id)
	}
	if err := Authorize(route, profileID, "caller does not own this route"); err != nil {
		return models.Route{}, err
	}
	return route, nil
}

// ListRoutes returns the profile's routes without their geometry.
func (r *Routes) ListRoutes(ctx context.Context, profileID uuid.UUID) ([]models.Route, error) {
	if _, err := r.store.GetProfile(ctx, profileID); err != nil {
		return nil, requireProfile(err, profileID)
	}
	routes, err := r.store.ListRoutes(ctx, profileID)
	if err != nil {
		return nil, apperr.Storage(err, "list routes")
	}
	return routes, nil
}

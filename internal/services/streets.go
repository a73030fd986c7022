package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/apperr"
	"route_tracker/internal/cache"
	"route_tracker/internal/geo"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

// Streets serves the read-only street catalogue through a read-through cache.
type Streets struct {
	store store.Store
	cache cache.Cache
	ttl   time.Duration
}

func (s *Streets) List(ctx context.Context) ([]models.Street, error) {
	var out []models.Street
	if hit, err := s.cache.GetJSON(ctx, cache.StreetsListKey, &out); err == nil && hit {
		return out, nil
	}
	out, err := s.store.ListStreets(ctx)
	if err != nil {
		return nil, apperr.Storage(err, "list streets")
	}
	s.fill(ctx, cache.StreetsListKey, out)
	return out, nil
}

func (s *Streets) Get(ctx context.Context, id uuid.UUID) (models.Street, error) {
	var st models.Street
	key := cache.StreetKey(id.String())
	if hit, err := s.cache.GetJSON(ctx, key, &st); err == nil && hit {
		return st, nil
	}
	st, err := s.store.GetStreet(ctx, id)
	if err != nil {
		return models.Street{}, lookupErr(err, "street", id)
	}
	s.fill(ctx, key, st)
	return st, nil
}

// Import validates and bulk-inserts streets, then drops every cached street.
func (s *Streets) Import(ctx context.Context, streets []models.Street) (int, error) {
	for i := range streets {
		streets[i].Name = strings.TrimSpace(streets[i].Name)
		if streets[i].Name == "" {
			return 0, apperr.Validation("street %d has no name", i)
		}
		if err := geo.ValidateLinear(streets[i].Shape.T); err != nil {
			return 0, apperr.Validation("street %q: %v", streets[i].Name, err)
		}
	}

	var n int
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		var err error
		n, err = tx.ImportStreets(ctx, streets)
		return err
	})
	if err != nil {
		return 0, apperr.Storage(err, "import streets")
	}

	if err := s.cache.DeletePattern(ctx, cache.StreetsPattern); err != nil {
		logrus.WithError(err).Warn("street cache invalidation failed")
	}
	logrus.WithField("count", n).Info("streets imported")
	return n, nil
}

func (s *Streets) fill(ctx context.Context, key string, v any) {
	if err := s.cache.SetJSON(ctx, key, v, s.ttl); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("street cache fill failed")
	}
}

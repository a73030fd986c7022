package services

import (
	"context"
	"strings"

	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/apperr"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

// Profiles are managed by administrators only and are immutable once created.
type Profiles struct {
	store store.Store
}

func (s *Profiles) Create(ctx context.Context, name string) (models.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Profile{}, apperr.Validation("name is required")
	}
	p := models.Profile{Name: name}
	if err := s.store.CreateProfile(ctx, &p); err != nil {
		return models.Profile{}, apperr.Storage(err, "create profile")
	}
	logrus.WithField("profile_id", p.ID).Info("profile created")
	return p, nil
}

func (s *Profiles) List(ctx context.Context) ([]models.Profile, error) {
	out, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, apperr.Storage(err, "list profiles")
	}
	return out, nil
}

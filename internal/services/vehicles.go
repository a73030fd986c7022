package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"route_tracker/internal/apperr"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

const maxPlateLen = 10

type Vehicles struct {
	store store.Store
}

type VehicleInput struct {
	Plate     string
	Make      *string
	Model     *string
	Active    *bool
	ProfileID uuid.UUID
}

// VehicleUpdate holds the fields to change; nil fields are left as they are.
type VehicleUpdate struct {
	Plate  *string
	Make   *string
	Model  *string
	Active *bool
}

func normalizePlate(raw string) (string, error) {
	plate := strings.ToUpper(strings.TrimSpace(raw))
	if plate == "" {
		return "", apperr.Validation("plate is required")
	}
	if utf8.RuneCountInString(plate) > maxPlateLen {
		return "", apperr.Validation("plate must be at most %d characters", maxPlateLen)
	}
	return plate, nil
}

func vehicleWriteErr(err error, plate string) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Conflict("plate %s is already registered", plate)
	}
	return apperr.Storage(err, "save vehicle")
}

func (s *Vehicles) Create(ctx context.Context, in VehicleInput) (models.Vehicle, error) {
	plate, err := normalizePlate(in.Plate)
	if err != nil {
		return models.Vehicle{}, err
	}
	if _, err := s.store.GetProfile(ctx, in.ProfileID); err != nil {
		return models.Vehicle{}, requireProfile(err, in.ProfileID)
	}

	v := models.Vehicle{
		Plate:     plate,
		Make:      in.Make,
		Model:     in.Model,
		Active:    true,
		ProfileID: in.ProfileID,
	}
	if in.Active != nil {
		v.Active = *in.Active
	}
	if err := s.store.CreateVehicle(ctx, &v); err != nil {
		return models.Vehicle{}, vehicleWriteErr(err, plate)
	}
	return v, nil
}

// Get returns the vehicle if profileID owns it.
func (s *Vehicles) Get(ctx context.Context, id, profileID uuid.UUID) (models.Vehicle, error) {
	v, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		return models.Vehicle{}, lookupErr(err, "vehicle", id)
	}
	if err := Authorize(v, profileID, "caller does not own this vehicle"); err != nil {
		return models.Vehicle{}, err
	}
	return v, nil
}

func (s *Vehicles) List(ctx context.Context, profileID uuid.UUID) ([]models.Vehicle, error) {
	if _, err := s.store.GetProfile(ctx, profileID); err != nil {
		return nil, requireProfile(err, profileID)
	}
	out, err := s.store.ListVehicles(ctx, profileID)
	if err != nil {
		return nil, apperr.Storage(err, "list vehicles")
	}
	return out, nil
}

func (s *Vehicles) Update(ctx context.Context, id, profileID uuid.UUID, in VehicleUpdate) (models.Vehicle, error) {
	v, err := s.Get(ctx, id, profileID)
	if err != nil {
		return models.Vehicle{}, err
	}
	if in.Plate != nil {
		plate, err := normalizePlate(*in.Plate)
		if err != nil {
			return models.Vehicle{}, err
		}
		v.Plate = plate
	}
	if in.Make != nil {
		v.Make = in.Make
	}
	if in.Model != nil {
		v.Model = in.Model
	}
	if in.Active != nil {
		v.Active = *in.Active
	}
	if err := s.store.UpdateVehicle(ctx, &v); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Vehicle{}, apperr.NotFound("vehicle %s not found", id)
		}
		return models.Vehicle{}, vehicleWriteErr(err, v.Plate)
	}
	return v, nil
}

func (s *Vehicles) Delete(ctx context.Context, id, profileID uuid.UUID) error {
	if _, err := s.Get(ctx, id, profileID); err != nil {
		return err
	}
	if err := s.store.DeleteVehicle(ctx, id); err != nil {
		return lookupErr(err, "vehicle", id)
	}
	return nil
}

package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route_tracker/internal/apperr"
	"route_tracker/internal/events"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

func TestRunLifecycle(t *testing.T) {
	f := newFixture(t)
	p1 := f.profile(t, "P1")
	v1 := f.vehicle(t, p1.ID, "abc123")
	r1 := f.shapeRoute(t, p1.ID, "R1")

	run, err := f.svc.Trips.StartRun(f.ctx, r1.ID, v1.ID, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunInProgress, run.State)
	assert.True(t, run.StartedAt.After(t0))
	assert.Nil(t, run.EndedAt)

	pos, err := f.svc.Positions.RecordPosition(f.ctx, run.ID, p1.ID, 3.42158, -76.5205)
	require.NoError(t, err)
	assert.Equal(t, []float64{-76.5205, 3.42158}, pos.Point.FlatCoords())

	done, err := f.svc.Trips.FinalizeRun(f.ctx, run.ID, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, done.State)
	require.NotNil(t, done.EndedAt)
	assert.False(t, done.EndedAt.Before(run.StartedAt))

	assert.Equal(t, []string{events.RunStarted, events.RunCompleted}, f.events.runs)
	assert.Len(t, f.events.positions, 1)
}

func TestStartRunConflictsAcrossProfiles(t *testing.T) {
	f := newFixture(t)
	p1, p2 := f.profile(t, "P1"), f.profile(t, "P2")
	v1 := f.vehicle(t, p1.ID, "V1")
	r1 := f.shapeRoute(t, p1.ID, "R1")
	r2 := f.shapeRoute(t, p2.ID, "R2")

	_, err := f.svc.Trips.StartRun(f.ctx, r1.ID, v1.ID, p1.ID)
	require.NoError(t, err)

	_, err = f.svc.Trips.StartRun(f.ctx, r2.ID, v1.ID, p2.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "vehicle already has an active run", apperr.MessageOf(err))

	runs, err := f.store.ListRunsByProfile(f.ctx, p2.ID)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStartRunAfterFinalizeIsAllowed(t *testing.T) {
	f := newFixture(t)
	p1 := f.profile(t, "P1")
	v1 := f.vehicle(t, p1.ID, "V1")
	r1 := f.shapeRoute(t, p1.ID, "R1")

	first, err := f.svc.Trips.StartRun(f.ctx, r1.ID, v1.ID, p1.ID)
	require.NoError(t, err)
	_, err = f.svc.Trips.FinalizeRun(f.ctx, first.ID, p1.ID)
	require.NoError(t, err)

	second, err := f.svc.Trips.StartRun(f.ctx, r1.ID, v1.ID, p1.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStartRunConcurrentExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	p1 := f.profile(t, "P1")
	v1 := f.vehicle(t, p1.ID, "V1")
	r1 := f.shapeRoute(t, p1.ID, "R1")

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Trips.StartRun(f.ctx, r1.ID, v1.ID, p1.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.KindOf(err) == apperr.KindConflict:
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)

	runs, err := f.store.ListRunsByProfile(f.ctx, p1.ID)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStartRunPreconditions(t *testing.T) {
	f := newFixture(t)
	p1 := f.profile(t, "P1")
	v1 := f.vehicle(t, p1.ID, "V1")
	r1 := f.shapeRoute(t, p1.ID, "R1")

	tests := []struct {
		name                        string
		routeID, vehicleID, profile uuid.UUID
		want                        apperr.Kind
	}{
		{"unknown profile", r1.ID, v1.ID, uuid.New(), apperr.KindValidation},
		{"unknown route", uuid.New(), v1.ID, p1.ID, apperr.KindNotFound},
		{"unknown vehicle", r1.ID, uuid.New(), p1.ID, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Trips.StartRun(f.ctx, tt.routeID, tt.vehicleID, tt.profile)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperr.KindOf(err))
		})
	}
}

func TestFinalizeRun(t *testing.T) {
	f := newFixture(t)
	p1, p2 := f.profile(t, "P1"), f.profile(t, "P2")
	v1 := f.vehicle(t, p1.ID, "V1")
	r1 := f.shapeRoute(t, p1.ID, "R1")
	run, err := f.svc.Trips.StartRun(f.ctx, r1.ID, v1.ID, p1.ID)
	require.NoError(t, err)

	t.Run("unknown run", func(t *testing.T) {
		_, err := f.svc.Trips.FinalizeRun(f.ctx, uuid.New(), p1.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("other profile", func(t *testing.T) {
		_, err := f.svc.Trips.FinalizeRun(f.ctx, run.ID, p2.ID)
		require.ErrorIs(t, err, apperr.ErrForbidden)
		assert.Equal(t, "caller does not own this run", apperr.MessageOf(err))

		got, err := f.store.GetRun(f.ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RunInProgress, got.State)
	})

	t.Run("twice", func(t *testing.T) {
		done, err := f.svc.Trips.FinalizeRun(f.ctx, run.ID, p1.ID)
		require.NoError(t, err)

		_, err = f.svc.Trips.FinalizeRun(f.ctx, run.ID, p1.ID)
		require.ErrorIs(t, err, apperr.ErrConflict)

		got, err := f.store.GetRun(f.ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, *done.EndedAt, *got.EndedAt)
	})
}

func TestListRunsByProfileNewestFirst(t *testing.T) {
	f := newFixture(t)
	p1 := f.profile(t, "P1")
	r1 := f.shapeRoute(t, p1.ID, "R1")

	var ids []uuid.UUID
	for _, plate := range []string{"A1", "A2", "A3"} {
		v := f.vehicle(t, p1.ID, plate)
		run, err := f.svc.Trips.StartRun(f.ctx, r1.ID, v.ID, p1.ID)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := f.svc.Trips.ListRunsByProfile(f.ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{runs[0].ID, runs[1].ID, runs[2].ID})

	byRoute, err := f.svc.Trips.ListRunsByRoute(f.ctx, r1.ID, p1.ID)
	require.NoError(t, err)
	assert.Len(t, byRoute, 3)

	_, err = f.svc.Trips.ListRunsByRoute(f.ctx, r1.ID, f.profile(t, "P2").ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

// vanishingVehicleStore deletes the vehicle right after StartRun has looked it up.
type vanishingVehicleStore struct {
	*store.Memory
}

func (s vanishingVehicleStore) GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error) {
	v, err := s.Memory.GetVehicle(ctx, id)
	if err == nil {
		err = s.Memory.DeleteVehicle(ctx, id)
	}
	return v, err
}

func TestStartRunVehicleDeletedBeforeInsert(t *testing.T) {
	f := newFixture(t)
	p1 := f.profile(t, "P1")
	v1 := f.vehicle(t, p1.ID, "V1")
	r1 := f.shapeRoute(t, p1.ID, "R1")

	svc := New(Deps{Store: vanishingVehicleStore{f.store}, Clock: f.clock.Now, Events: f.events})
	_, err := svc.Trips.StartRun(f.ctx, r1.ID, v1.ID, p1.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	runs, err := f.store.ListRunsByProfile(f.ctx, p1.ID)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Empty(t, f.events.runs)
}

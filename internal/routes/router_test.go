package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"route_tracker/internal/controllers"
	"route_tracker/internal/geo"
	"route_tracker/internal/middleware"
	"route_tracker/internal/models"
	"route_tracker/internal/services"
	"route_tracker/internal/store"
)

const testSecret = "router-test-secret"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *store.Memory
	jwt    *middleware.JWT
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemory()
	ctrl := controllers.New(services.New(services.Deps{Store: st}), st, false)
	auth := middleware.NewJWT(testSecret)
	return &testServer{t: t, router: SetupRouter(ctrl, auth, limiter), store: st, jwt: auth}
}

func (s *testServer) do(method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (s *testServer) adminToken() string {
	tok, err := s.jwt.GenerateToken("ops", middleware.RoleAdmin)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) createProfile(name string) string {
	w, body := s.do(http.MethodPost, "/admin/profiles", gin.H{"name": name}, s.adminToken())
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return body["profile"].(map[string]any)["id"].(string)
}

func (s *testServer) createVehicle(profileID, plate string) string {
	w, body := s.do(http.MethodPost, "/vehicles", gin.H{"plate": plate, "profile_id": profileID}, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return body["vehicle"].(map[string]any)["id"].(string)
}

func (s *testServer) createShapeRoute(profileID string) string {
	w, body := s.do(http.MethodPost, "/routes", gin.H{
		"name":       "Downtown loop",
		"profile_id": profileID,
		"color":      "#FF8800",
		"shape": gin.H{
			"type":        "LineString",
			"coordinates": [][]float64{{-70.65, -33.45}, {-70.64, -33.44}},
		},
	}, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return body["route"].(map[string]any)["id"].(string)
}

func field(body map[string]any, key, name string) any {
	return body[key].(map[string]any)[name]
}

func TestOpsEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w, body := s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, body = s.do(http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])

	w, body = s.do(http.MethodGet, "/version", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "version")

	w, _ = s.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminProfilesRequireAdminToken(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := s.do(http.MethodPost, "/admin/profiles", gin.H{"name": "Acme"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userTok, err := s.jwt.GenerateToken("someone", "operator")
	require.NoError(t, err)
	w, body := s.do(http.MethodPost, "/admin/profiles", gin.H{"name": "Intruder"}, userTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", body["kind"])
	assert.NotContains(t, w.Body.String(), "profile\"")
	stored, err := s.store.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored, "a non-admin token must not create profiles")

	id := s.createProfile("Acme")
	w, body = s.do(http.MethodGet, "/admin/profiles", nil, s.adminToken())
	require.Equal(t, http.StatusOK, w.Code)
	profiles := body["profiles"].([]any)
	require.Len(t, profiles, 1)
	assert.Equal(t, id, profiles[0].(map[string]any)["id"])

	w, body = s.do(http.MethodGet, "/profiles", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "profiles are not publicly listable", body["error"])
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	profileID := s.createProfile("Acme")
	vehicleID := s.createVehicle(profileID, "ab-123")
	routeID := s.createShapeRoute(profileID)

	start := gin.H{"route_id": routeID, "vehicle_id": vehicleID, "profile_id": profileID}
	w, body := s.do(http.MethodPost, "/runs/start", start, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	runID := field(body, "run", "id").(string)
	assert.Equal(t, "in_progress", field(body, "run", "state"))

	w, body = s.do(http.MethodPost, "/runs/start", start, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", body["kind"])

	w, body = s.do(http.MethodPost, "/runs/"+runID+"/positions", gin.H{"profile_id": profileID, "lat": -33.45, "lon": -70.65}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	point := field(body, "position", "point").(map[string]any)
	assert.Equal(t, "Point", point["type"])
	assert.Equal(t, []any{-70.65, -33.45}, point["coordinates"])

	w, _ = s.do(http.MethodPost, "/runs/"+runID+"/positions", gin.H{"profile_id": profileID, "lat": 91.0, "lon": 0.0}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(http.MethodPost, "/runs/"+runID+"/positions", gin.H{"profile_id": profileID, "lon": 0.0}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, body = s.do(http.MethodPost, "/runs/"+runID+"/finalize", gin.H{"profile_id": profileID}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", field(body, "run", "state"))
	assert.NotNil(t, field(body, "run", "ended_at"))

	w, _ = s.do(http.MethodPost, "/runs/"+runID+"/finalize", gin.H{"profile_id": profileID}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/runs/"+runID+"/positions", gin.H{"profile_id": profileID, "lat": -33.45, "lon": -70.65}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(http.MethodGet, "/runs/"+runID+"/positions?profile_id="+profileID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["positions"], 1)

	w, body = s.do(http.MethodGet, "/runs/mine?profile_id="+profileID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["runs"], 1)

	w, body = s.do(http.MethodGet, "/runs/routes/"+routeID+"?profile_id="+profileID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["runs"], 1)

	// the vehicle is free again
	w, _ = s.do(http.MethodPost, "/runs/start", start, "")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestOwnershipIsEnforced(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.createProfile("Owner")
	other := s.createProfile("Other")
	vehicleID := s.createVehicle(owner, "own-1")
	routeID := s.createShapeRoute(owner)

	w, body := s.do(http.MethodPost, "/runs/start", gin.H{"route_id": routeID, "vehicle_id": vehicleID, "profile_id": owner}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	runID := field(body, "run", "id").(string)

	w, _ = s.do(http.MethodPost, "/runs/"+runID+"/finalize", gin.H{"profile_id": other}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, "/runs/"+runID+"/positions", gin.H{"profile_id": other, "lat": 1.0, "lon": 1.0}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/routes/"+routeID+"?profile_id="+other, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/vehicles/"+vehicleID+"?profile_id="+other, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateRouteFromStreets(t *testing.T) {
	s := newTestServer(t, nil)
	profileID := s.createProfile("Acme")

	streets := []models.Street{
		{Name: "Alameda", Shape: geo.Geometry{T: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 0}).SetSRID(geo.SRID)}},
		{Name: "Matta", Shape: geo.Geometry{T: geom.NewLineStringFlat(geom.XY, []float64{1, 0, 1, 1}).SetSRID(geo.SRID)}},
	}
	_, err := s.store.ImportStreets(context.Background(), streets)
	require.NoError(t, err)

	w, body := s.do(http.MethodGet, "/streets", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["streets"], 2)

	ids := []string{streets[1].ID.String(), streets[0].ID.String()}
	w, body = s.do(http.MethodPost, "/routes", gin.H{"name": "Centro", "profile_id": profileID, "street_ids": ids}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	routeID := field(body, "route", "id").(string)
	assert.Equal(t, "MultiLineString", field(body, "route", "shape").(map[string]any)["type"])

	w, body = s.do(http.MethodGet, "/routes/"+routeID+"?profile_id="+profileID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	linked := field(body, "route", "streets").([]any)
	require.Len(t, linked, 2)
	assert.Equal(t, ids[0], linked[0].(map[string]any)["street_id"])
	assert.Equal(t, ids[1], linked[1].(map[string]any)["street_id"])
}

func TestCreateRouteValidation(t *testing.T) {
	s := newTestServer(t, nil)
	profileID := s.createProfile("Acme")

	tests := []struct {
		name string
		body gin.H
	}{
		{"neither shape nor streets", gin.H{"name": "x", "profile_id": profileID}},
		{"both shape and streets", gin.H{
			"name": "x", "profile_id": profileID,
			"shape":      gin.H{"type": "LineString", "coordinates": [][]float64{{0, 0}, {1, 1}}},
			"street_ids": []string{"5f0d9a4e-1a2b-4c3d-8e9f-001122334455"},
		}},
		{"bad color", gin.H{
			"name": "x", "profile_id": profileID, "color": "orange",
			"shape": gin.H{"type": "LineString", "coordinates": [][]float64{{0, 0}, {1, 1}}},
		}},
		{"unknown street", gin.H{"name": "x", "profile_id": profileID, "street_ids": []string{"5f0d9a4e-1a2b-4c3d-8e9f-001122334455"}}},
		{"malformed street id", gin.H{"name": "x", "profile_id": profileID, "street_ids": []string{"nope"}}},
		{"missing profile", gin.H{"name": "x", "shape": gin.H{"type": "LineString", "coordinates": [][]float64{{0, 0}, {1, 1}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := s.do(http.MethodPost, "/routes", tt.body, "")
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.Equal(t, "validation_error", body["kind"])
		})
	}
}

func TestSchedulesOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	profileID := s.createProfile("Acme")
	routeID := s.createShapeRoute(profileID)

	w, body := s.do(http.MethodPost, "/routes/"+routeID+"/schedules", gin.H{
		"profile_id": profileID, "day_of_week": 1, "start_time": "07:30", "end_time": "09:00:00",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	scheduleID := field(body, "schedule", "id").(string)
	assert.Equal(t, "07:30:00", field(body, "schedule", "start_time"))

	w, _ = s.do(http.MethodPut, "/schedules/"+scheduleID+"?profile_id="+profileID, gin.H{
		"day_of_week": 2, "start_time": "10:00", "end_time": "09:00",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, body = s.do(http.MethodGet, "/routes/"+routeID+"/schedules?profile_id="+profileID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["schedules"], 1)

	w, _ = s.do(http.MethodDelete, "/schedules/"+scheduleID+"?profile_id="+profileID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMalformedIdentifiers(t *testing.T) {
	s := newTestServer(t, nil)

	w, body := s.do(http.MethodGet, "/routes/not-a-uuid?profile_id=also-bad", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation_error", body["kind"])

	w, _ = s.do(http.MethodGet, "/runs/mine", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(http.MethodPost, "/runs/start", gin.H{"route_id": "x"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRateLimiterAppliesToAPI(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 1, time.Minute, nil)
	defer limiter.Close()
	s := newTestServer(t, limiter)

	w, _ := s.do(http.MethodGet, "/streets", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/streets", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// ops endpoints bypass the limiter
	w, _ = s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

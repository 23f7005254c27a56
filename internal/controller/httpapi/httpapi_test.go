package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/Freeeeeet/tutorconnect/internal/repository/memory"
	"github.com/Freeeeeet/tutorconnect/internal/scheduling"
	"github.com/Freeeeeet/tutorconnect/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testSecret = []byte("test-secret")
	// Понедельник, 5 января 2026, полдень UTC
	testNow = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
)

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) {
	return false, nil
}

func newTestApp(t *testing.T, limiter RateLimiter) *fiber.App {
	t.Helper()

	store := memory.NewStore()
	store.Seed(memory.DemoUsers())

	clock := func() time.Time { return testNow }
	logger := zap.NewNop()

	availability, err := service.NewAvailabilityService(store, store.Availability(), store.Users(), 16, clock, logger)
	require.NoError(t, err)

	bookings := service.NewBookingService(
		store,
		store.Bookings(),
		store.Users(),
		availability,
		service.NopNotifier{},
		service.BookingOptions{Window: scheduling.DefaultWindow(), Policy: service.PolicyOpen},
		clock,
		logger,
	)

	h := NewHandler(availability, bookings, clock, logger)
	return NewServer(h, Options{JWTSecret: testSecret, Limiter: limiter}, logger)
}

func token(t *testing.T, userID int64, role model.Role, tz string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	if tz != "" {
		claims["tz"] = tz
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, app *fiber.App, method, path, tok string, body interface{}) (int, map[string]interface{}, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var obj map[string]interface{}
	_ = json.Unmarshal(raw, &obj)
	return resp.StatusCode, obj, raw
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)

	status, body, _ := do(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthErrors(t *testing.T) {
	app := newTestApp(t, nil)

	status, body, _ := do(t, app, http.MethodGet, "/api/v1/bookings/me", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", body["status"])

	status, _, _ = do(t, app, http.MethodGet, "/api/v1/bookings/me", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _, _ = do(t, app, http.MethodGet, "/api/v1/bookings/me", token(t, 4, model.Role("guest"), ""), nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAvailabilityRoundTrip(t *testing.T) {
	app := newTestApp(t, nil)
	tutorTok := token(t, 3, model.RoleTutor, "America/New_York")

	status, _, raw := do(t, app, http.MethodPut, "/api/v1/tutors/3/availability", tutorTok, map[string]interface{}{
		"schedule": map[string]interface{}{
			"monday": []map[string]interface{}{
				{"start_time": "09:00", "end_time": "10:00", "is_available": true},
				{"start_time": "", "end_time": "", "is_available": false},
			},
		},
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	var schedule scheduleResponse
	require.NoError(t, json.Unmarshal(raw, &schedule))
	assert.Equal(t, "America/New_York", schedule.Timezone)
	require.Len(t, schedule.Slots, 1)
	assert.Equal(t, "09:00", schedule.Slots[0].StartLocal.String())
	assert.Equal(t, "14:00", schedule.Slots[0].StartUTC.String())

	studentTok := token(t, 4, model.RoleStudent, "")
	status, _, raw = do(t, app, http.MethodGet, "/api/v1/tutors/3/availability?tz=Europe/Berlin", studentTok, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	require.NoError(t, json.Unmarshal(raw, &schedule))
	require.Len(t, schedule.Slots, 1)
	assert.Equal(t, "15:00", schedule.Slots[0].StartLocal.String())

	status, body, _ := do(t, app, http.MethodPost, "/api/v1/tutors/3/availability", studentTok, map[string]interface{}{
		"day_of_week": "tuesday", "start_time": "09:00", "end_time": "10:00",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["kind"])

	status, body, _ = do(t, app, http.MethodPost, "/api/v1/tutors/3/availability", tutorTok, map[string]interface{}{
		"day_of_week": "funday", "start_time": "09:00", "end_time": "10:00",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", body["kind"])

	status, body, _ = do(t, app, http.MethodPost, "/api/v1/tutors/3/availability", tutorTok, map[string]interface{}{
		"day_of_week": "tue", "start_time": "09:00", "end_time": "10:00",
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "09:00", body["start_time_local"])
	assert.Equal(t, "14:00", body["start_time_utc"])
}

func TestBookingLifecycle(t *testing.T) {
	app := newTestApp(t, nil)
	studentTok := token(t, 4, model.RoleStudent, "UTC")
	otherTok := token(t, 5, model.RoleStudent, "UTC")
	tutorTok := token(t, 3, model.RoleTutor, "America/New_York")

	status, body, raw := do(t, app, http.MethodPost, "/api/v1/bookings", studentTok, map[string]interface{}{
		"tutor_id":   3,
		"date":       "2026-01-06",
		"start_time": "15:00",
		"end_time":   "16:00",
		"subject":    "Algebra",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, float64(4), body["student_id"])
	id := int64(body["id"].(float64))
	path := "/api/v1/bookings/" + strconv.FormatInt(id, 10)

	status, body, _ = do(t, app, http.MethodPost, "/api/v1/bookings", otherTok, map[string]interface{}{
		"tutor_id":   3,
		"date":       "2026-01-06",
		"start_time": "15:30",
		"end_time":   "16:30",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "slot_conflict", body["kind"])

	status, body, _ = do(t, app, http.MethodGet, path+"?tz=America/New_York", tutorTok, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "10:00", body["start_time_local"])
	assert.Equal(t, "15:00", body["start_time_utc"])

	status, body, _ = do(t, app, http.MethodGet, path, otherTok, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["kind"])

	status, _, _ = do(t, app, http.MethodPost, path+"/confirm", studentTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body, _ = do(t, app, http.MethodPost, path+"/confirm", tutorTok, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "confirmed", body["status"])

	status, body, _ = do(t, app, http.MethodPost, path+"/confirm", tutorTok, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", body["kind"])

	status, body, raw = do(t, app, http.MethodPost, path+"/reschedule", tutorTok, map[string]interface{}{
		"date": "2026-01-07", "start_time": "09:00", "end_time": "10:00",
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "2026-01-07", body["date_local"])
	assert.Equal(t, "14:00", body["start_time_utc"])
	assert.Equal(t, "confirmed", body["status"])

	status, body, _ = do(t, app, http.MethodPost, path+"/cancel", studentTok, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cancelled", body["status"])

	status, _, raw = do(t, app, http.MethodGet, "/api/v1/bookings/me", studentTok, nil)
	require.Equal(t, http.StatusOK, status)
	var mine []bookingResponse
	require.NoError(t, json.Unmarshal(raw, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, model.BookingStatusCancelled, mine[0].Status)

	status, body, _ = do(t, app, http.MethodGet, "/api/v1/bookings/999", studentTok, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["kind"])
}

func TestCreateBookingErrors(t *testing.T) {
	app := newTestApp(t, nil)
	studentTok := token(t, 4, model.RoleStudent, "UTC")

	cases := []struct {
		name   string
		body   map[string]interface{}
		status int
		kind   string
	}{
		{
			name:   "too soon",
			body:   map[string]interface{}{"tutor_id": 3, "date": "2026-01-05", "start_time": "15:00", "end_time": "16:00"},
			status: http.StatusUnprocessableEntity,
			kind:   "booking_window",
		},
		{
			name:   "too far",
			body:   map[string]interface{}{"tutor_id": 3, "date": "2026-01-20", "start_time": "15:00", "end_time": "16:00"},
			status: http.StatusUnprocessableEntity,
			kind:   "booking_window",
		},
		{
			name:   "bad time",
			body:   map[string]interface{}{"tutor_id": 3, "date": "2026-01-06", "start_time": "3pm", "end_time": "16:00"},
			status: http.StatusBadRequest,
			kind:   "invalid_time_format",
		},
		{
			name:   "end before start",
			body:   map[string]interface{}{"tutor_id": 3, "date": "2026-01-06", "start_time": "16:00", "end_time": "15:00"},
			status: http.StatusBadRequest,
			kind:   "invalid_time_range",
		},
		{
			name:   "bad date",
			body:   map[string]interface{}{"tutor_id": 3, "date": "06.01.2026", "start_time": "15:00", "end_time": "16:00"},
			status: http.StatusBadRequest,
			kind:   "validation",
		},
		{
			name:   "missing tutor",
			body:   map[string]interface{}{"date": "2026-01-06", "start_time": "15:00", "end_time": "16:00"},
			status: http.StatusBadRequest,
			kind:   "validation",
		},
		{
			name:   "unknown tutor",
			body:   map[string]interface{}{"tutor_id": 42, "date": "2026-01-06", "start_time": "15:00", "end_time": "16:00"},
			status: http.StatusNotFound,
			kind:   "not_found",
		},
		{
			name:   "booking for someone else",
			body:   map[string]interface{}{"student_id": 5, "tutor_id": 3, "date": "2026-01-06", "start_time": "15:00", "end_time": "16:00"},
			status: http.StatusForbidden,
			kind:   "forbidden",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			status, body, raw := do(t, app, http.MethodPost, "/api/v1/bookings", studentTok, c.body)
			assert.Equal(t, c.status, status, string(raw))
			assert.Equal(t, c.kind, body["kind"])
			assert.Equal(t, "error", body["status"])
		})
	}
}

func TestListTutorBookingsRedactsForOutsiders(t *testing.T) {
	app := newTestApp(t, nil)
	studentTok := token(t, 4, model.RoleStudent, "UTC")
	otherTok := token(t, 5, model.RoleStudent, "UTC")

	status, _, raw := do(t, app, http.MethodPost, "/api/v1/bookings", studentTok, map[string]interface{}{
		"tutor_id": 3, "date": "2026-01-08", "start_time": "09:00", "end_time": "10:00", "subject": "Physics",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, _, raw = do(t, app, http.MethodGet, "/api/v1/tutors/3/bookings", otherTok, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var list []bookingResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Subject)

	status, _, raw = do(t, app, http.MethodGet, "/api/v1/tutors/3/bookings?from=2026-01-08&to=2026-01-08", studentTok, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Subject)
	assert.Equal(t, "Physics", *list[0].Subject)

	status, body, _ := do(t, app, http.MethodGet, "/api/v1/tutors/3/bookings?from=2026-01-09&to=2026-01-08", studentTok, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", body["kind"])
}

func TestTutorBookingsAcrossUTCMidnight(t *testing.T) {
	app := newTestApp(t, nil)
	studentTok := token(t, 4, model.RoleStudent, "Asia/Tokyo")

	status, _, raw := do(t, app, http.MethodPost, "/api/v1/bookings", studentTok, map[string]interface{}{
		"tutor_id": 3, "date": "2026-01-08", "start_time": "08:30", "end_time": "09:30",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var created bookingResponse
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "2026-01-07", created.DateUTC)
	assert.Equal(t, "23:30", created.StartUTC)
	assert.Equal(t, "00:30", created.EndUTC)
	assert.Equal(t, "2026-01-08", created.DateLocal)
	assert.Equal(t, "08:30", created.StartLocal)
	assert.Equal(t, "09:30", created.EndLocal)

	status, _, raw = do(t, app, http.MethodGet, "/api/v1/tutors/3/bookings?from=2026-01-08&to=2026-01-08", studentTok, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var list []bookingResponse
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	status, _, raw = do(t, app, http.MethodGet, "/api/v1/tutors/3/bookings?from=2026-01-08&to=2026-01-08&tz=UTC", studentTok, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Empty(t, list)
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, denyLimiter{})

	status, body, _ := do(t, app, http.MethodPost, "/api/v1/bookings", token(t, 4, model.RoleStudent, "UTC"), map[string]interface{}{
		"tutor_id": 3, "date": "2026-01-06", "start_time": "15:00", "end_time": "16:00",
	})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "error", body["status"])
}

func TestRequestLoggerRecordsErrorStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(zap.NewNop())})
	app.Use(requestLogger(zap.New(core)))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperror.New(apperror.KindNotFound, "booking not found")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	status, body, _ := do(t, app, http.MethodGet, "/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["kind"])

	status, _, _ = do(t, app, http.MethodGet, "/ok", "", nil)
	assert.Equal(t, http.StatusOK, status)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(http.StatusNotFound), entries[0].ContextMap()["status"])
	assert.Equal(t, int64(http.StatusOK), entries[1].ContextMap()["status"])
}

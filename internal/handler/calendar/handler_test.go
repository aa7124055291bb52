package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-schedule/internal/handler"
	"github.com/jwalitptl/clinic-schedule/internal/middleware"
	"github.com/jwalitptl/clinic-schedule/internal/model"
	calendarService "github.com/jwalitptl/clinic-schedule/internal/service/calendar"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()
}

type fakeService struct {
	week    calendarService.WeekQuery
	drop    calendarService.DropRequest
	dropErr error
}

func (f *fakeService) Week(_ context.Context, q calendarService.WeekQuery) (*calendarService.View, error) {
	f.week = q
	return &calendarService.View{WeekStart: calendarService.MondayOf(q.WeekStart).Format(model.DateLayout)}, nil
}

func (f *fakeService) Drop(_ context.Context, req calendarService.DropRequest) (*calendarService.Drop, error) {
	f.drop = req
	if f.dropErr != nil {
		return nil, f.dropErr
	}
	return &calendarService.Drop{ID: req.ID, DayIndex: req.DayIndex, Start: "10:00"}, nil
}

func setup() (*gin.Engine, *fakeService) {
	svc := &fakeService{}
	h := NewHandler(svc)
	h.now = func() time.Time { return time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(middleware.ErrorHandler(handler.MapError))
	h.RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func serve(r *gin.Engine, method, target string, payload interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&buf).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetWeek(t *testing.T) {
	r, svc := setup()
	clinician := uuid.New()

	w := serve(r, http.MethodGet, "/api/v1/calendar?clinician_id="+clinician.String()+"&week_start=2024-03-13", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, clinician, svc.week.ClinicianID)
	assert.Equal(t, uuid.Nil, svc.week.ClinicID)
	assert.Equal(t, "2024-03-13", svc.week.WeekStart.Format(model.DateLayout))
	assert.Nil(t, svc.week.Draft)
	assert.Contains(t, w.Body.String(), `"week_start":"2024-03-11"`)
}

func TestGetWeekDefaultsToCurrentWeek(t *testing.T) {
	r, svc := setup()

	w := serve(r, http.MethodGet, "/api/v1/calendar?clinic_id="+uuid.NewString()+
		"&draft_date=2024-03-08&draft_start=11:15&draft_duration=30", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2024-03-07", svc.week.WeekStart.Format(model.DateLayout))
	require.NotNil(t, svc.week.Draft)
	assert.Equal(t, model.Draft{Date: "2024-03-08", Start: "11:15", Duration: 30}, *svc.week.Draft)
}

func TestGetWeekRejectsBadInput(t *testing.T) {
	r, _ := setup()
	id := uuid.NewString()

	for name, target := range map[string]string{
		"no owner":        "/api/v1/calendar",
		"bad week start":  "/api/v1/calendar?clinic_id=" + id + "&week_start=03/11/2024",
		"bad clinician":   "/api/v1/calendar?clinician_id=42",
		"bad draft start": "/api/v1/calendar?clinic_id=" + id + "&draft_start=9h",
	} {
		w := serve(r, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestDrop(t *testing.T) {
	r, svc := setup()
	clinician := uuid.New()

	w := serve(r, http.MethodPost, "/api/v1/calendar/drop", map[string]interface{}{
		"clinician_id": clinician.String(),
		"week_start":   "2024-03-04",
		"id":           "c-1",
		"day_index":    2,
		"offset_y":     160,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "c-1", svc.drop.ID)
	assert.Equal(t, 2, svc.drop.DayIndex)
	assert.Equal(t, 160.0, svc.drop.OffsetY)
	assert.Equal(t, clinician, svc.drop.ClinicianID)
	assert.Contains(t, w.Body.String(), `"start":"10:00"`)
}

func TestDropErrors(t *testing.T) {
	r, svc := setup()
	clinician := uuid.NewString()

	w := serve(r, http.MethodPost, "/api/v1/calendar/drop", map[string]interface{}{
		"clinician_id": clinician, "id": "c-1", "day_index": 9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.dropErr = calendarService.ErrUnknownAppointment
	w = serve(r, http.MethodPost, "/api/v1/calendar/drop", map[string]interface{}{
		"clinician_id": clinician, "id": "missing", "day_index": 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.dropErr = calendarService.ErrOutsideGrid
	w = serve(r, http.MethodPost, "/api/v1/calendar/drop", map[string]interface{}{
		"clinician_id": clinician, "id": "c-1", "day_index": 1, "offset_y": -50,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

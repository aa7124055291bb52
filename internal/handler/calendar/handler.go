package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	calendarService "github.com/jwalitptl/clinic-schedule/internal/service/calendar"
	apperrors "github.com/jwalitptl/clinic-schedule/pkg/errors"
	"github.com/jwalitptl/clinic-schedule/pkg/httputil"
)

// Service renders calendar weeks and applies drops.
type Service interface {
	Week(ctx context.Context, q calendarService.WeekQuery) (*calendarService.View, error)
	Drop(ctx context.Context, req calendarService.DropRequest) (*calendarService.Drop, error)
}

type Handler struct {
	service Service
	now     func() time.Time
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	calendar := r.Group("/calendar")
	{
		calendar.GET("", h.GetWeek)
		calendar.POST("/drop", h.Drop)
	}
}

// WeekParams selects the calendar owner and week.
type WeekParams struct {
	ClinicianID string `form:"clinician_id" json:"clinician_id" binding:"omitempty,uuid"`
	ClinicID    string `form:"clinic_id" json:"clinic_id" binding:"omitempty,uuid"`
	WeekStart   string `form:"week_start" json:"week_start"`
}

type weekQuery struct {
	WeekParams
	DraftDate     string `form:"draft_date"`
	DraftStart    string `form:"draft_start" binding:"omitempty,hhmm"`
	DraftDuration int    `form:"draft_duration" binding:"min=0"`
	DraftTitle    string `form:"draft_title"`
}

type dropRequest struct {
	WeekParams
	Draft    *model.Draft `json:"draft"`
	ID       string       `json:"id" binding:"required"`
	DayIndex int          `json:"day_index" binding:"min=0,max=6"`
	OffsetY  float64      `json:"offset_y"`
}

// query turns the raw parameters into a service query. An empty week start
// means the current week.
func (h *Handler) query(p WeekParams, draft *model.Draft) (calendarService.WeekQuery, error) {
	q := calendarService.WeekQuery{WeekStart: h.now(), Draft: draft}
	if p.WeekStart != "" {
		t, err := time.Parse(model.DateLayout, p.WeekStart)
		if err != nil {
			return q, fmt.Errorf("%w: %q", calendarService.ErrInvalidWeekStart, p.WeekStart)
		}
		q.WeekStart = t
	}
	if p.ClinicianID != "" {
		q.ClinicianID = uuid.MustParse(p.ClinicianID)
	}
	if p.ClinicID != "" {
		q.ClinicID = uuid.MustParse(p.ClinicID)
	}
	if q.ClinicianID == uuid.Nil && q.ClinicID == uuid.Nil {
		return q, apperrors.BadRequest("clinician_id or clinic_id is required", nil)
	}
	return q, nil
}

func (h *Handler) GetWeek(c *gin.Context) {
	var req weekQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(err)
		return
	}
	var draft *model.Draft
	if req.DraftDate != "" || req.DraftStart != "" {
		draft = &model.Draft{
			Date:     req.DraftDate,
			Start:    req.DraftStart,
			Duration: req.DraftDuration,
			Title:    req.DraftTitle,
		}
	}
	q, err := h.query(req.WeekParams, draft)
	if err != nil {
		_ = c.Error(err)
		return
	}

	view, err := h.service.Week(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httputil.RespondWithSuccess(c, view)
}

func (h *Handler) Drop(c *gin.Context) {
	var req dropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}
	q, err := h.query(req.WeekParams, req.Draft)
	if err != nil {
		_ = c.Error(err)
		return
	}

	drop, err := h.service.Drop(c.Request.Context(), calendarService.DropRequest{
		WeekQuery: q,
		ID:        req.ID,
		DayIndex:  req.DayIndex,
		OffsetY:   req.OffsetY,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusOK, drop)
}

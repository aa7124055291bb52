package schedule

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/service/grid"
	scheduleService "github.com/jwalitptl/clinic-schedule/internal/service/schedule"
	"github.com/jwalitptl/clinic-schedule/internal/service/sloteditor"
	apperrors "github.com/jwalitptl/clinic-schedule/pkg/errors"
	"github.com/jwalitptl/clinic-schedule/pkg/httputil"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// Sessions hands out the loaded store of an owner.
type Sessions interface {
	Get(ctx context.Context, kind model.OwnerKind, ownerID, clinicID uuid.UUID) (*scheduleService.Store, error)
}

type Handler struct {
	sessions Sessions
}

func NewHandler(sessions Sessions) *Handler {
	return &Handler{sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	schedules := r.Group("/schedules/:kind/:owner_id")
	{
		schedules.GET("", h.GetSchedule)
		schedules.GET("/sync", h.GetSync)
		schedules.POST("/save", h.SaveAll)
		schedules.POST("/apply-clinic-defaults", h.ApplyClinicDefaults)

		days := schedules.Group("/days/:weekday")
		days.PUT("", h.SetDay)
		days.POST("/toggle", h.ToggleDay)
		days.POST("/copy", h.CopyDay)
		days.POST("/paste", h.PasteDay)
		days.POST("/slots", h.AddSlot)
		days.PUT("/slots/:index", h.EditSlot)
		days.DELETE("/slots/:index", h.DeleteSlot)
	}
}

type slotRequest struct {
	Start string `json:"start" binding:"required,hhmm"`
	End   string `json:"end" binding:"required,hhmm"`
}

type dayRequest struct {
	Status model.DayStatus `json:"status" binding:"omitempty,oneof=open closed inherited"`
	Slots  []slotRequest   `json:"slots" binding:"dive"`
}

// slotSubmission fields are optional; empty ones keep the prefill.
type slotSubmission struct {
	Start string `json:"start" binding:"omitempty,hhmm"`
	End   string `json:"end" binding:"omitempty,hhmm"`
}

type scheduleResponse struct {
	Kind      model.OwnerKind             `json:"kind"`
	OwnerID   uuid.UUID                   `json:"owner_id"`
	Columns   []grid.Column               `json:"columns"`
	HasErrors bool                        `json:"has_errors"`
	Results   []scheduleService.DayResult `json:"results,omitempty"`
}

func respond(c *gin.Context, status int, store *scheduleService.Store, results []scheduleService.DayResult) {
	httputil.RespondWithStatus(c, status, scheduleResponse{
		Kind:      store.Kind(),
		OwnerID:   store.OwnerID(),
		Columns:   grid.Columns(store),
		HasErrors: store.HasErrors(),
		Results:   results,
	})
}

// store resolves :kind and :owner_id (and ?clinic_id for doctors).
func (h *Handler) store(c *gin.Context) (*scheduleService.Store, bool) {
	kind, err := model.ParseOwnerKind(c.Param("kind"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest(err.Error(), err))
		return nil, false
	}
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("invalid owner ID", err))
		return nil, false
	}
	clinicID := uuid.Nil
	if raw := c.Query("clinic_id"); raw != "" {
		if clinicID, err = uuid.Parse(raw); err != nil {
			_ = c.Error(apperrors.BadRequest("invalid clinic ID", err))
			return nil, false
		}
	}

	store, err := h.sessions.Get(c.Request.Context(), kind, ownerID, clinicID)
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	return store, true
}

func weekday(c *gin.Context) (model.Weekday, bool) {
	n, err := strconv.Atoi(c.Param("weekday"))
	if err != nil || !model.Weekday(n).Valid() {
		_ = c.Error(scheduleService.ErrInvalidWeekday)
		return 0, false
	}
	return model.Weekday(n), true
}

func slotIndex(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("invalid slot index", err))
		return 0, false
	}
	return n, true
}

func (h *Handler) GetSchedule(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, store, nil)
}

func (h *Handler) GetSync(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, store.Sync())
}

func (h *Handler) SetDay(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	w, ok := weekday(c)
	if !ok {
		return
	}
	var req dayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	day := model.DaySchedule{Status: req.Status}
	for _, s := range req.Slots {
		slot := timeslot.Slot{Start: s.Start, End: s.End}
		if errs := sloteditor.Validate(slot, nil, nil); len(errs) > 0 {
			_ = c.Error(errs)
			return
		}
		day.Slots = append(day.Slots, slot)
	}
	if err := store.SetDay(w, day); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, store, nil)
}

func (h *Handler) ToggleDay(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	w, ok := weekday(c)
	if !ok {
		return
	}
	if err := store.ToggleDay(c.Request.Context(), w); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, store, nil)
}

func (h *Handler) CopyDay(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	w, ok := weekday(c)
	if !ok {
		return
	}
	day, err := store.CopyDay(w)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httputil.RespondWithSuccess(c, day)
}

func (h *Handler) PasteDay(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	w, ok := weekday(c)
	if !ok {
		return
	}
	if err := store.PasteDay(w); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, store, nil)
}

func (h *Handler) AddSlot(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	w, ok := weekday(c)
	if !ok {
		return
	}
	var req slotSubmission
	if err := bindOptional(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	open := sloteditor.Submission{Start: req.Start, End: req.End}.Opener()
	if err := grid.AddSlot(store, w, open); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, store, nil)
}

func (h *Handler) EditSlot(c *gin.Context) {
	h.editSlot(c, false)
}

func (h *Handler) DeleteSlot(c *gin.Context) {
	h.editSlot(c, true)
}

func (h *Handler) editSlot(c *gin.Context, del bool) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	w, ok := weekday(c)
	if !ok {
		return
	}
	index, ok := slotIndex(c)
	if !ok {
		return
	}
	sub := sloteditor.Submission{Delete: del}
	if !del {
		var req slotSubmission
		if err := bindOptional(c, &req); err != nil {
			_ = c.Error(err)
			return
		}
		sub.Start, sub.End = req.Start, req.End
	}
	if err := grid.EditSlot(store, w, index, sub.Opener()); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, store, nil)
}

func (h *Handler) SaveAll(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	results, err := store.SaveAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, store, results)
}

func (h *Handler) ApplyClinicDefaults(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	persist, err := strconv.ParseBool(c.DefaultQuery("persist", "false"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("persist must be true or false", err))
		return
	}
	results, err := store.ApplyClinicDefaults(c.Request.Context(), persist)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, store, results)
}

// bindOptional accepts an empty body.
func bindOptional(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

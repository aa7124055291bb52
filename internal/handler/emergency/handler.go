package emergency

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	emergencyService "github.com/jwalitptl/clinic-schedule/internal/service/emergency"
	"github.com/jwalitptl/clinic-schedule/internal/service/sloteditor"
	apperrors "github.com/jwalitptl/clinic-schedule/pkg/errors"
	"github.com/jwalitptl/clinic-schedule/pkg/httputil"
	"github.com/jwalitptl/clinic-schedule/pkg/timeslot"
)

// Service loads and edits emergency configs.
type Service interface {
	Get(ctx context.Context, clinicID uuid.UUID) (model.EmergencyConfig, error)
	Edit(ctx context.Context, clinicID uuid.UUID, fn func(*emergencyService.Block) error) (model.EmergencyConfig, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	emergency := r.Group("/clinics/:clinic_id/emergency")
	{
		emergency.GET("", h.Get)
		emergency.PUT("", h.Replace)
		emergency.PATCH("", h.Update)
		emergency.POST("/fill", h.FillAllDays)

		days := emergency.Group("/days/:day/slots")
		days.POST("", h.AddSlot)
		days.PUT("/:index", h.EditSlot)
		days.DELETE("/:index", h.DeleteSlot)
	}
}

type slotRequest struct {
	Start string `json:"start" binding:"required,hhmm"`
	End   string `json:"end" binding:"required,hhmm"`
}

type replaceRequest struct {
	Mode  model.EmergencyMode            `json:"mode" binding:"required,oneof=always specific"`
	Phone string                         `json:"phone" binding:"max=32"`
	Slots map[model.DayKey][]slotRequest `json:"slots" binding:"dive,dive"`
}

// updateRequest changes the mode or the phone and leaves slots alone.
type updateRequest struct {
	Mode  *model.EmergencyMode `json:"mode" binding:"omitempty,oneof=always specific"`
	Phone *string              `json:"phone" binding:"omitempty,max=32"`
}

type slotSubmission struct {
	Start string `json:"start" binding:"omitempty,hhmm"`
	End   string `json:"end" binding:"omitempty,hhmm"`
}

type emergencyResponse struct {
	Config model.EmergencyConfig  `json:"config"`
	Days   []emergencyService.Day `json:"days"`
}

func respond(c *gin.Context, status int, cfg model.EmergencyConfig) {
	httputil.RespondWithStatus(c, status, emergencyResponse{
		Config: cfg,
		Days:   emergencyService.NewBlock(cfg, nil).Days(),
	})
}

func clinicID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("clinic_id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("invalid clinic ID", err))
		return uuid.Nil, false
	}
	return id, true
}

// edit runs fn through the service and renders the saved config.
func (h *Handler) edit(c *gin.Context, status int, fn func(*emergencyService.Block) error) {
	id, ok := clinicID(c)
	if !ok {
		return
	}
	cfg, err := h.service.Edit(c.Request.Context(), id, fn)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, status, cfg)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := clinicID(c)
	if !ok {
		return
	}
	cfg, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, cfg)
}

func (h *Handler) Replace(c *gin.Context) {
	var req replaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}
	cfg := model.EmergencyConfig{Mode: req.Mode, Phone: req.Phone, Slots: model.EmergencySlots{}}
	for k, slots := range req.Slots {
		for _, s := range slots {
			slot := timeslot.Slot{Start: s.Start, End: s.End}
			if errs := sloteditor.Validate(slot, nil, nil); len(errs) > 0 {
				_ = c.Error(errs)
				return
			}
			cfg.Slots[k] = append(cfg.Slots[k], slot)
		}
	}
	h.edit(c, http.StatusOK, func(b *emergencyService.Block) error {
		return b.Replace(cfg)
	})
}

func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}
	h.edit(c, http.StatusOK, func(b *emergencyService.Block) error {
		if req.Mode != nil {
			if err := b.SetMode(*req.Mode); err != nil {
				return err
			}
		}
		if req.Phone != nil {
			b.SetPhone(*req.Phone)
		}
		return nil
	})
}

func (h *Handler) FillAllDays(c *gin.Context) {
	h.edit(c, http.StatusOK, func(b *emergencyService.Block) error {
		b.FillAllDays()
		return nil
	})
}

func (h *Handler) AddSlot(c *gin.Context) {
	var req slotSubmission
	if err := bindOptional(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	open := sloteditor.Submission{Start: req.Start, End: req.End}.Opener()
	day := model.DayKey(c.Param("day"))
	h.edit(c, http.StatusCreated, func(b *emergencyService.Block) error {
		return b.AddSlot(day, open)
	})
}

func (h *Handler) EditSlot(c *gin.Context) {
	h.editSlot(c, false)
}

func (h *Handler) DeleteSlot(c *gin.Context) {
	h.editSlot(c, true)
}

func (h *Handler) editSlot(c *gin.Context, del bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("invalid slot index", err))
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
	day := model.DayKey(c.Param("day"))
	h.edit(c, http.StatusOK, func(b *emergencyService.Block) error {
		return b.EditSlot(day, index, sub.Opener())
	})
}

func bindOptional(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

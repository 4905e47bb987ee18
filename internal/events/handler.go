package events

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatepass/backend/internal/middleware"
	"github.com/gatepass/backend/internal/models"
	"github.com/gatepass/backend/pkg/response"
)

// CreateRequest is the body for POST /events. Checkpoints must name at
// least the mandatory entry checkpoint.
type CreateRequest struct {
	Title            string                   `json:"title" binding:"required"`
	Description      string                   `json:"description"`
	StartsAt         time.Time                `json:"starts_at" binding:"required"`
	EndsAt           *time.Time               `json:"ends_at"`
	Checkpoints      []string                 `json:"checkpoints" binding:"required,min=1"`
	RegistrationForm []models.FormFieldConfig `json:"registration_form"`
}

// UpdateRequest is the body for PATCH /events/:id.
type UpdateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// FormRequest is the body for PUT /events/:id/form.
type FormRequest struct {
	Fields []models.FormFieldConfig `json:"fields" binding:"required"`
}

// UnlockRequest is the body for PUT /events/:id/checkpoints/unlock.
type UnlockRequest struct {
	Unlocked []string `json:"unlocked"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /events (organizer/admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if hasDuplicates(req.Checkpoints) {
		response.BadRequest(c, "duplicate checkpoint names")
		return
	}

	creatorVal, _ := c.Get(middleware.ContextUserID)
	creatorID, _ := creatorVal.(uuid.UUID)

	var form json.RawMessage
	if len(req.RegistrationForm) > 0 {
		var err error
		form, err = json.Marshal(req.RegistrationForm)
		if err != nil {
			response.BadRequest(c, "invalid registration_form")
			return
		}
	}

	e := &models.Event{
		Title:               req.Title,
		Description:         req.Description,
		StartsAt:            req.StartsAt,
		EndsAt:              req.EndsAt,
		CreatedBy:           creatorID,
		Checkpoints:         req.Checkpoints,
		UnlockedCheckpoints: []string{req.Checkpoints[0]}, // entry checkpoint opens by default
		RegistrationForm:    form,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), id, req.Title, req.Description, req.StartsAt, req.EndsAt); err != nil {
		h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to update event")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// UpdateForm handles PUT /events/:id/form, replacing the registration
// form config. Existing registrations keep their submitted responses.
func (h *Handler) UpdateForm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req FormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	form, err := json.Marshal(req.Fields)
	if err != nil {
		response.BadRequest(c, "invalid fields")
		return
	}
	if err := h.repo.UpdateRegistrationForm(c.Request.Context(), id, form); err != nil {
		h.logger.Error("update registration form failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to update form")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// UnlockCheckpoints handles PUT /events/:id/checkpoints/unlock. The
// unlocked set gates which checkpoints the scanning surface offers; it
// must be a subset of the event's defined checkpoints.
func (h *Handler) UnlockCheckpoints(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	for _, cp := range req.Unlocked {
		if !e.HasCheckpoint(cp) {
			response.BadRequest(c, "unknown checkpoint: "+cp)
			return
		}
	}

	if err := h.repo.SetUnlockedCheckpoints(c.Request.Context(), id, req.Unlocked); err != nil {
		h.logger.Error("unlock checkpoints failed", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to update checkpoints")
		return
	}
	e.UnlockedCheckpoints = req.Unlocked
	response.OK(c, e)
}

func hasDuplicates(names []string) bool {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return true
		}
		seen[n] = struct{}{}
	}
	return false
}

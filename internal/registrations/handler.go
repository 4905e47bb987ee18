package registrations

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatepass/backend/internal/checkin"
	"github.com/gatepass/backend/internal/events"
	"github.com/gatepass/backend/internal/middleware"
	"github.com/gatepass/backend/internal/models"
	"github.com/gatepass/backend/internal/realtime"
	"github.com/gatepass/backend/pkg/queue"
	"github.com/gatepass/backend/pkg/response"
)

// RegisterRequest is the body for POST /events/:id/register. Responses is
// the dynamic form bag defined by the event's registration form config;
// the engine stores it opaquely.
type RegisterRequest struct {
	Responses map[string]string `json:"responses,omitempty"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	repo      *Repository
	eventRepo *events.Repository
	codec     *checkin.TokenCodec
	queue     *queue.Queue
	hub       *realtime.Hub
	logger    *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(repo *Repository, eventRepo *events.Repository, codec *checkin.TokenCodec, q *queue.Queue, hub *realtime.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, eventRepo: eventRepo, codec: codec, queue: q, hub: hub, logger: logger}
}

// Register handles POST /events/:id/register. Creates the registration
// (status pending) and issues its check-in token exactly once.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.eventRepo.GetByID(c.Request.Context(), eventID)
	if err != nil || event == nil {
		response.NotFound(c, "event not found")
		return
	}

	userVal, _ := c.Get(middleware.ContextUserID)
	userID, ok := userVal.(uuid.UUID)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var responses json.RawMessage
	if len(req.Responses) > 0 {
		responses, err = json.Marshal(req.Responses)
		if err != nil {
			response.BadRequest(c, "invalid responses")
			return
		}
	}

	secret, err := checkin.NewRegistrationSecret()
	if err != nil {
		h.logger.Error("generate registration secret failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}
	reg := &models.Registration{
		ID:          uuid.New(),
		EventID:     eventID,
		UserID:      userID,
		Responses:   responses,
		TokenSecret: secret,
	}
	reg.Token, err = h.codec.Issue(reg.ID, eventID, secret)
	if err != nil {
		h.logger.Error("issue check-in token failed", zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}

	if err := h.repo.Create(c.Request.Context(), reg); err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			response.Conflict(c, "already registered for this event")
			return
		}
		h.logger.Error("create registration failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to register")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToEventAndPublish(eventID, realtime.EventRegistrationCreated, gin.H{
			"registration_id": reg.ID,
			"user_id":         userID,
		})
	}
	response.Created(c, reg)
}

// Get handles GET /registrations/:id. Owners see their own registration;
// organizer-level roles see any.
func (h *Handler) Get(c *gin.Context) {
	reg, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	response.OK(c, reg)
}

// ListCheckIns handles GET /registrations/:id/checkins.
func (h *Handler) ListCheckIns(c *gin.Context) {
	reg, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{
		"registration_id":     reg.ID,
		"status":              reg.Status,
		"checkpoint_checkins": reg.CheckIns,
	})
}

// ListByEvent handles GET /events/:id/registrations (organizer/admin).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	total, approved, checkedIn, err := h.repo.CountByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to count registrations")
		return
	}
	response.OK(c, gin.H{
		"registrations": list,
		"total":         total,
		"approved":      approved,
		"checked_in":    checkedIn,
	})
}

// Approve handles POST /registrations/:id/approve (organizer/admin).
func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, models.EmailTypeApproved, h.repo.Approve)
}

// Reject handles POST /registrations/:id/reject (organizer/admin).
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, models.EmailTypeRejected, h.repo.Reject)
}

// decide runs the approval workflow. The repository enforces the pending
// precondition; the decision never touches the token or checkpoint history.
func (h *Handler) decide(c *gin.Context, emailType string, op func(ctx context.Context, id, actorID uuid.UUID) (*models.Registration, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	actorVal, _ := c.Get(middleware.ContextUserID)
	actorID, ok := actorVal.(uuid.UUID)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}

	reg, err := op(c.Request.Context(), id, actorID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "registration not found")
		case errors.Is(err, ErrNotPending):
			response.Conflict(c, "registration already decided")
		default:
			h.logger.Error("decision failed", zap.Error(err), zap.String("registration_id", id.String()))
			response.Internal(c, "failed to update registration")
		}
		return
	}

	if h.queue != nil {
		recipient, mailErr := h.repo.RecipientEmail(c.Request.Context(), reg.ID)
		if mailErr == nil {
			payload := queue.DecisionEmailPayload{
				EmailType:      emailType,
				EventID:        reg.EventID,
				RegistrationID: reg.ID,
				RecipientEmail: recipient,
			}
			if qErr := h.queue.EnqueueDecisionEmail(c.Request.Context(), payload); qErr != nil {
				h.logger.Warn("enqueue decision email failed", zap.Error(qErr), zap.String("registration_id", reg.ID.String()))
			}
		}
	}

	if h.hub != nil {
		h.hub.BroadcastToEventAndPublish(reg.EventID, realtime.EventRegistrationDecision, gin.H{
			"registration_id": reg.ID,
			"status":          reg.Status,
			"decided_by":      actorID,
		})
	}
	response.OK(c, reg)
}

// loadAuthorized parses :id, loads the registration and enforces that the
// caller is either the applicant or an organizer-level role.
func (h *Handler) loadAuthorized(c *gin.Context) (*models.Registration, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return nil, false
	}
	reg, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
		} else {
			response.Internal(c, "failed to load registration")
		}
		return nil, false
	}

	userVal, _ := c.Get(middleware.ContextUserID)
	userID, _ := userVal.(uuid.UUID)
	roleVal, _ := c.Get(middleware.ContextUserRole)
	role, _ := roleVal.(string)
	switch {
	case reg.UserID == userID:
	case role == string(models.RoleAdmin), role == string(models.RoleOrganizer), role == string(models.RoleVolunteer):
	default:
		response.Forbidden(c, "not your registration")
		return nil, false
	}
	return reg, true
}

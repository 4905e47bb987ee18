package checkin

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatepass/backend/internal/middleware"
	"github.com/gatepass/backend/internal/realtime"
	"github.com/gatepass/backend/pkg/response"
)

// CheckInRequest is the body for POST /checkin, as sent by a scanning client.
type CheckInRequest struct {
	Token      string `json:"token" binding:"required"`
	Checkpoint string `json:"checkpoint" binding:"required"`
}

// Handler exposes the check-in coordinator over HTTP.
type Handler struct {
	coordinator *Coordinator
	hub         *realtime.Hub
	logger      *zap.Logger
}

// NewHandler creates a check-in handler.
func NewHandler(coordinator *Coordinator, hub *realtime.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{coordinator: coordinator, hub: hub, logger: logger}
}

// CheckIn handles POST /checkin. The acting volunteer comes from the
// authenticated session; business-rule failures map to typed 4xx
// responses the kiosk can turn into feedback, infra failures to 500.
func (h *Handler) CheckIn(c *gin.Context) {
	actorVal, ok := c.Get(middleware.ContextUserID)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	actorID, ok := actorVal.(uuid.UUID)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	res, err := h.coordinator.CheckIn(c.Request.Context(), req.Token, req.Checkpoint, actorID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrWrongTokenKind):
			response.Unauthorized(c, "invalid token")
		case errors.Is(err, ErrExpiredToken):
			response.Unauthorized(c, "token expired")
		case errors.Is(err, ErrRegistrationNotFound):
			response.NotFound(c, "registration not found")
		case errors.Is(err, ErrRegistrationNotApproved):
			response.Forbidden(c, "registration not approved")
		case errors.Is(err, ErrCheckpointNotRecognized):
			response.BadRequest(c, "checkpoint not recognized")
		default:
			h.logger.Error("check-in failed", zap.Error(err))
			response.Internal(c, "check-in failed")
		}
		return
	}

	if h.hub != nil && !res.AlreadyRecorded {
		h.hub.BroadcastToEventAndPublish(res.Registration.EventID, realtime.EventCheckpointScan, gin.H{
			"registration_id": res.Registration.ID,
			"checkpoint":      res.Record.Checkpoint,
			"actor_id":        res.Record.ActorID,
			"scanned_at":      res.Record.CreatedAt,
			"status":          res.Registration.Status,
		})
	}

	response.OK(c, res)
}

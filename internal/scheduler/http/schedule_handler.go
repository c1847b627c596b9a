// Package http exposes the scheduler over the admin API.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/relay/internal/clock"
	apperrors "github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/httputil"
	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/scheduler/http/dto"
	"github.com/allisson/relay/internal/scheduler/usecase"
	customValidation "github.com/allisson/relay/internal/validation"
)

// ScheduleHandler handles schedule and cancel requests.
type ScheduleHandler struct {
	schedulerUseCase usecase.SchedulerUseCase
	clock            clock.Clock
	logger           *slog.Logger
}

// NewScheduleHandler creates a ScheduleHandler. A nil clock means the system clock.
func NewScheduleHandler(
	schedulerUseCase usecase.SchedulerUseCase,
	clk clock.Clock,
	logger *slog.Logger,
) *ScheduleHandler {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ScheduleHandler{
		schedulerUseCase: schedulerUseCase,
		clock:            clk,
		logger:           logger,
	}
}

// CreateHandler schedules a serialized message.
// POST /v1/schedules - Returns 201 Created with the cancellation token.
func (h *ScheduleHandler) CreateHandler(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	raw, err := req.ToRawSchedule(h.clock.Now())
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	handle, err := h.schedulerUseCase.ScheduleRaw(c.Request.Context(), raw)
	if err != nil {
		// An unregistered type is a client mistake here, not a missing resource.
		if apperrors.Is(err, messaging.ErrUnknownMessageType) {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "message scheduled",
		slog.String("token_id", handle.TokenID.String()),
		slog.String("message_type", raw.MessageType),
		slog.Time("scheduled_time", handle.ScheduledTime),
	)
	c.JSON(http.StatusCreated, dto.MapHandleToResponse(handle))
}

// CancelHandler cancels a pending scheduled message.
// DELETE /v1/schedules/:token - Returns 200 OK. Unknown or already dispatched
// tokens report cancelled=false.
func (h *ScheduleHandler) CancelHandler(c *gin.Context) {
	tokenID, err := uuid.Parse(c.Param("token"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid token format: must be a valid UUID"),
			h.logger)
		return
	}

	cancelled, err := h.schedulerUseCase.Cancel(c.Request.Context(), tokenID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.CancelResponse{TokenID: tokenID.String(), Cancelled: cancelled})
}

// RegisterRoutes mounts the schedule endpoints on group.
func (h *ScheduleHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/schedules", h.CreateHandler)
	group.DELETE("/schedules/:token", h.CancelHandler)
}

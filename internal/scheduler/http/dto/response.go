package dto

import (
	"time"

	"github.com/allisson/relay/internal/scheduler/usecase"
)

// ScheduleResponse identifies a scheduled message.
type ScheduleResponse struct {
	TokenID       string    `json:"token_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// CancelResponse reports whether a pending message was removed.
type CancelResponse struct {
	TokenID   string `json:"token_id"`
	Cancelled bool   `json:"cancelled"`
}

// MapHandleToResponse converts a schedule handle.
func MapHandleToResponse(handle *usecase.ScheduleHandle) ScheduleResponse {
	return ScheduleResponse{
		TokenID:       handle.TokenID.String(),
		ScheduledTime: handle.ScheduledTime.UTC(),
	}
}

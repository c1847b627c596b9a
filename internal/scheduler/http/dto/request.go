// Package dto provides the request and response bodies of the schedule API.
package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"time"

	validation "github.com/jellydator/validation"

	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/scheduler/usecase"
	customValidation "github.com/allisson/relay/internal/validation"
)

// MaxDelayMS is the largest delay_ms whose duration fits in a time.Duration.
const MaxDelayMS = int64(math.MaxInt64 / int64(time.Millisecond))

// ScheduleRequest schedules an already serialized message. JSON payloads go
// in Body; other content types (e.g. Avro) are sent base64 encoded in
// BodyBase64. Exactly one of ScheduledTime and DelayMS must be set.
// An empty Destination publishes by message type.
type ScheduleRequest struct {
	MessageType   string            `json:"message_type"`
	ContentType   string            `json:"content_type,omitempty"`
	Body          json.RawMessage   `json:"body,omitempty"`
	BodyBase64    string            `json:"body_base64,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	Destination   string            `json:"destination,omitempty"`
	ScheduledTime *time.Time        `json:"scheduled_time,omitempty"`
	DelayMS       int64             `json:"delay_ms,omitempty"`
}

// Validate checks the shape of the request. Whether the type is registered and
// the body decodes is checked by the scheduler.
func (r *ScheduleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MessageType,
			validation.Required,
			customValidation.NotBlank,
			customValidation.MessageType,
			validation.Length(1, 255),
		),
		validation.Field(&r.ContentType, customValidation.NoWhitespace, validation.Length(0, 255)),
		validation.Field(&r.Body,
			validation.When(r.BodyBase64 == "", validation.Required.Error("body or body_base64 is required")),
			validation.When(r.BodyBase64 != "", validation.Empty.Error("must not be set with body_base64")),
		),
		validation.Field(&r.BodyBase64, customValidation.Base64),
		validation.Field(&r.Destination, customValidation.Address),
		validation.Field(&r.ScheduledTime,
			validation.When(r.DelayMS == 0, validation.Required.Error("scheduled_time or delay_ms is required")),
			validation.When(r.DelayMS != 0, validation.Nil.Error("must not be set with delay_ms")),
		),
		validation.Field(&r.Headers, validation.By(noReservedHeaders)),
		validation.Field(&r.DelayMS, validation.Min(int64(0)), validation.Max(MaxDelayMS)),
	)
}

func noReservedHeaders(value any) error {
	headers, _ := value.(map[string]string)
	if _, ok := headers[messaging.HeaderScheduledDestination]; ok {
		return errors.New(messaging.HeaderScheduledDestination + " is reserved, use destination")
	}
	return nil
}

// ToRawSchedule converts a validated request. now resolves DelayMS.
func (r *ScheduleRequest) ToRawSchedule(now time.Time) (usecase.RawSchedule, error) {
	body := []byte(r.Body)
	if r.BodyBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(r.BodyBase64)
		if err != nil {
			return usecase.RawSchedule{}, customValidation.WrapValidationError(err)
		}
		body = decoded
	}

	var destination messaging.Address
	if r.Destination != "" {
		parsed, err := messaging.ParseAddress(r.Destination)
		if err != nil {
			return usecase.RawSchedule{}, err
		}
		destination = parsed
	}

	at := now.Add(time.Duration(r.DelayMS) * time.Millisecond)
	if r.ScheduledTime != nil {
		at = r.ScheduledTime.UTC()
	}

	var headers messaging.Headers
	if len(r.Headers) > 0 {
		headers = make(messaging.Headers, len(r.Headers))
		for k, v := range r.Headers {
			headers[k] = messaging.StringHeader(v)
		}
	}

	return usecase.RawSchedule{
		MessageType:   r.MessageType,
		ContentType:   r.ContentType,
		Body:          body,
		Headers:       headers,
		Destination:   destination,
		ScheduledTime: at,
	}, nil
}

// Package validation provides jellydator/validation rules shared by the API DTOs.
package validation

import (
	"encoding/base64"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/relay/internal/errors"
	messaging "github.com/allisson/relay/internal/messaging/domain"
)

// messageTypePattern accepts dotted type names such as "Orders.OrderPlaced".
var messageTypePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\-]*(\.[A-Za-z_][A-Za-z0-9_\-]*)*$`)

// WrapValidationError wraps validation errors as ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace rejects leading or trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank rejects strings that are empty after trimming.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// MessageType validates the shape of a message type name.
var MessageType = validation.NewStringRuleWithError(
	messageTypePattern.MatchString,
	validation.NewError("validation_message_type", "must be a dotted message type name"),
)

// Address validates a transport address such as "kafka://orders". Empty
// strings pass so the rule composes with Required.
var Address = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_address_type", "must be a string")
	}
	if s == "" {
		return nil
	}
	if _, err := messaging.ParseAddress(s); err != nil {
		return validation.NewError("validation_address", "must be a valid transport address")
	}
	return nil
})

// Base64 validates standard base64. Empty strings pass.
var Base64 = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_base64_type", "must be a string")
	}
	if s == "" {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return validation.NewError("validation_base64", "must be valid base64-encoded data")
	}
	return nil
})

package domain

// Dead-letter envelope headers. Consumers of dead-letter endpoints depend on
// these exact names.
const (
	HeaderDeadLetterReason            = "DeadLetterReason"
	HeaderDeadLetterDescription       = "DeadLetterDescription"
	HeaderDeadLetterTime              = "DeadLetterTime"
	HeaderDeadLetterOriginalMessageID = "DeadLetterOriginalMessageId"
	HeaderDeadLetterScheduledTokenID  = "DeadLetterScheduledTokenId"
)

// Dead-letter reason codes.
const (
	ReasonUnresolvableMessageType = "UnresolvableMessageType"
	ReasonInvalidMessage          = "InvalidMessage"
)

// HeaderScheduledDestination carries the destination of a scheduled send.
// It is stripped before the message is forwarded.
const HeaderScheduledDestination = "ScheduledDestinationAddress"

// Default content type when a producer does not pick a serializer.
const ContentTypeJSON = "application/json"

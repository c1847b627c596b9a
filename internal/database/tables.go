package database

import (
	"regexp"

	validation "github.com/jellydator/validation"
)

// Default table names for the persisted messaging entities.
const (
	DefaultOutboxTable    = "outbox_messages"
	DefaultInboxTable     = "inbox_states"
	DefaultScheduledTable = "scheduled_messages"
	DefaultSagaTable      = "saga_states"
)

// identifierPattern accepts plain or schema-qualified SQL identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)

// TableNames holds the table names used by the repositories. Names are
// interpolated into SQL, so they must pass Validate first.
type TableNames struct {
	Outbox    string
	Inbox     string
	Scheduled string
	Saga      string
}

// DefaultTableNames returns the table names created by the bundled migrations.
func DefaultTableNames() TableNames {
	return TableNames{
		Outbox:    DefaultOutboxTable,
		Inbox:     DefaultInboxTable,
		Scheduled: DefaultScheduledTable,
		Saga:      DefaultSagaTable,
	}
}

// Validate checks that every name is a safe SQL identifier.
func (t TableNames) Validate() error {
	identifier := validation.Match(identifierPattern).Error("must be a valid SQL identifier")
	return validation.ValidateStruct(&t,
		validation.Field(&t.Outbox, validation.Required, identifier),
		validation.Field(&t.Inbox, validation.Required, identifier),
		validation.Field(&t.Scheduled, validation.Required, identifier),
		validation.Field(&t.Saga, validation.Required, identifier),
	)
}

// OrDefault fills blank names with their defaults.
func (t TableNames) OrDefault() TableNames {
	d := DefaultTableNames()
	if t.Outbox == "" {
		t.Outbox = d.Outbox
	}
	if t.Inbox == "" {
		t.Inbox = d.Inbox
	}
	if t.Scheduled == "" {
		t.Scheduled = d.Scheduled
	}
	if t.Saga == "" {
		t.Saga = d.Saga
	}
	return t
}

// All returns every table name.
func (t TableNames) All() []string {
	return []string{t.Outbox, t.Inbox, t.Scheduled, t.Saga}
}

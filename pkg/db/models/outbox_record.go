package models

import (
	"encoding/json"
	"time"
)

// OutboxRecord is one pending event awaiting relay to the event log. Rows are
// append-only: producers insert them inside their own transactions and the
// relay deletes them after confirmed delivery. Nothing updates them in place.
type OutboxRecord struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	EventType       string          `gorm:"column:event_type;type:text;not null"`
	EventDateTime   time.Time       `gorm:"column:event_date_time;not null"`
	Environment     string          `gorm:"column:environment;type:text;not null"`
	EventContext    json.RawMessage `gorm:"column:event_context;type:jsonb;not null"`
	MetadataVersion int64           `gorm:"column:metadata_version;not null;default:1"`
}

// TableName keeps the historical table name shared with producers.
func (OutboxRecord) TableName() string {
	return "event_outbox"
}

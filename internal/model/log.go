package model

import "time"

// LogSourceField is the log event field naming the component an entry comes from.
// Events carrying it are copied to the logs table.
const LogSourceField = "source"

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogEntry is a row of the logs table
type LogEntry struct {
	ID        string         `bson:"_id" json:"id"`
	Level     string         `bson:"level" json:"level"`
	Source    string         `bson:"source" json:"source"`
	Message   string         `bson:"message" json:"message"`
	Context   map[string]any `bson:"context" json:"context,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
}

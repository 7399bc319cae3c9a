package domain

import "time"

type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "INFO"
	SeverityWarning NotificationSeverity = "WARNING"
	SeverityError   NotificationSeverity = "ERROR"
)

const (
	NotificationTypeSplitCompleted = "DOCUMENT_SPLIT_COMPLETED"
	NotificationTypeSplitFailed    = "DOCUMENT_SPLIT_FAILED"
)

// Notification is the fire-and-forget event emitted when a split finishes or
// fails. Delivery problems are logged, never surfaced to the pipeline.
type Notification struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Type      string               `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Severity  NotificationSeverity `json:"severity"`
	Category  string               `json:"category"`
	ActionURL string               `json:"action_url,omitempty"`
	Data      map[string]string    `json:"data,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

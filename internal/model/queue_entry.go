// internal/model/queue_entry.go
package model

import "time"

// Queue entry statuses. A failed entry has exhausted max_attempts and is
// never retried automatically again; a sent entry is immutable.
const (
    StatusPending    = "pending"
    StatusProcessing = "processing"
    StatusSent       = "sent"
    StatusFailed     = "failed"
)

const DefaultMaxAttempts = 3

// DefaultPriority is assigned to entries created by a campaign fan-out.
// Lower values are served first.
const DefaultPriority = 100

type QueueEntry struct {
    ID          int        `db:"id" json:"id"`
    CampaignID  int        `db:"campaign_id" json:"campaign_id"`
    Phone       string     `db:"phone" json:"phone"`
    Message     string     `db:"message" json:"message"`
    ImageURL    string     `db:"image_url" json:"image_url,omitempty"`
    Priority    int        `db:"priority" json:"priority"`
    Status      string     `db:"status" json:"status"`
    Attempts    int        `db:"attempts" json:"attempts"`
    MaxAttempts int        `db:"max_attempts" json:"max_attempts"`
    LastError   string     `db:"last_error,omitempty" json:"last_error,omitempty"`
    CreatedAt   time.Time  `db:"created_at" json:"created_at"`
    ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

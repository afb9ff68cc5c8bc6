// internal/model/campaign.go
package model

import (
    "time"

    "github.com/lib/pq"
)

// Campaign frequencies
const (
    FrequencyOnce   = "once"
    FrequencyDaily  = "daily"
    FrequencyWeekly = "weekly"
)

type Campaign struct {
    ID               int            `db:"id" json:"id"`
    Name             string         `db:"name" json:"name"`
    Frequency        string         `db:"frequency" json:"frequency"`
    TimesOfDay       pq.StringArray `db:"times_of_day" json:"times_of_day"`
    Weekdays         pq.Int64Array  `db:"weekdays" json:"weekdays"`
    RecipientListIDs pq.Int64Array  `db:"recipient_list_ids" json:"recipient_list_ids"`
    MessageTemplate  string         `db:"message_template" json:"message_template"`
    ProductName      string         `db:"product_name" json:"product_name"`
    ProductPrice     string         `db:"product_price" json:"product_price"`
    ImageURL         string         `db:"image_url" json:"image_url,omitempty"`
    Active           bool           `db:"active" json:"active"`
    LastRunAt        *time.Time     `db:"last_run_at" json:"last_run_at,omitempty"`
    NextRunAt        *time.Time     `db:"next_run_at" json:"next_run_at,omitempty"`
    TotalSent        int            `db:"total_sent" json:"total_sent"`
    CreatedAt        time.Time      `db:"created_at" json:"created_at"`
    UpdatedAt        *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

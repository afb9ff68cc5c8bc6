// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
    CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
    return &ErrCampaignNotFound{CampaignID: id}
}

// ErrQueueEntryNotFound is a sentinel error for missing queue entries
type ErrQueueEntryNotFound struct {
    EntryID int
}

func (e *ErrQueueEntryNotFound) Error() string {
    return fmt.Sprintf("queue entry with ID %d not found", e.EntryID)
}

func NewQueueEntryNotFound(id int) error {
    return &ErrQueueEntryNotFound{EntryID: id}
}

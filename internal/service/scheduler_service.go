// internal/service/scheduler_service.go
package service

import (
    "fmt"
    "log"
    "time"

    "github.com/okwach/wablast-backend/internal/model"
    "github.com/okwach/wablast-backend/internal/repository"
    "github.com/okwach/wablast-backend/internal/schedule"
)

// DrainNudger asks the delivery worker to drain right away. Implemented by
// the amqp publisher; nil means "rely on the periodic sweep".
type DrainNudger interface {
    PublishDrain() error
}

// SchedulerService fires due campaigns: it expands recipient lists into
// queue entries and reschedules the campaign, atomically per campaign.
type SchedulerService struct {
    CampaignRepo repository.CampaignRepositoryInterface
    ContactRepo  repository.ContactRepositoryInterface
    Nudger       DrainNudger
}

// Tick fires every campaign whose next_run_at has arrived. Per-campaign
// failures are logged and skipped; the untouched next_run_at makes the next
// tick retry them. Only a storage error on the due-query itself propagates.
func (s *SchedulerService) Tick(now time.Time) error {
    due, err := s.CampaignRepo.ListDue(now)
    if err != nil {
        return fmt.Errorf("failed to list due campaigns: %w", err)
    }

    for _, c := range due {
        if _, err := s.Fire(c, now); err != nil {
            log.Println("⚠️ failed to fire campaign", c.ID, ":", err)
        }
    }
    return nil
}

// Fire expands one campaign into queue entries and reschedules it in a
// single transaction, then nudges the drainer. Returns the number of
// entries enqueued.
func (s *SchedulerService) Fire(c *model.Campaign, now time.Time) (int, error) {
    contacts, err := s.ContactRepo.ListByListIDs(c.RecipientListIDs)
    if err != nil {
        return 0, fmt.Errorf("failed to expand recipient lists: %w", err)
    }

    entries := make([]*model.QueueEntry, 0, len(contacts))
    for _, contact := range contacts {
        entries = append(entries, &model.QueueEntry{
            CampaignID:  c.ID,
            Phone:       contact.Phone,
            Message:     RenderMessage(c, contact),
            ImageURL:    c.ImageURL,
            Priority:    model.DefaultPriority,
            Status:      model.StatusPending,
            MaxAttempts: model.DefaultMaxAttempts,
        })
    }

    nextRun := schedule.NextRun(c, now)
    if nextRun == nil {
        log.Println("📭 campaign", c.ID, "has no further occurrences, closing it")
    }

    if err := s.CampaignRepo.FanOut(c.ID, now, nextRun, entries); err != nil {
        return 0, fmt.Errorf("fan-out failed: %w", err)
    }
    log.Printf("✅ campaign %d fired: %d entries enqueued, next run %v\n", c.ID, len(entries), nextRun)

    if s.Nudger != nil && len(entries) > 0 {
        if err := s.Nudger.PublishDrain(); err != nil {
            // The periodic sweep will pick the backlog up anyway.
            log.Println("⚠️ failed to publish drain nudge:", err)
        }
    }
    return len(entries), nil
}

// internal/service/drainer.go
package service

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/okwach/wablast-backend/internal/model"
    "github.com/okwach/wablast-backend/internal/repository"
    "github.com/okwach/wablast-backend/internal/whatsapp"
)

const DefaultBatchSize = 5

// DrainResult reports one drain pass.
type DrainResult struct {
    Sent   int `json:"sent"`
    Failed int `json:"failed"`
    Total  int `json:"total"`
}

// Drainer consumes the delivery queue: it claims pending entries one at a
// time, delivers them through the messaging gateway with humanized pacing,
// re-queues transient failures up to max_attempts and quarantines the rest.
// Overlapping drain passes are tolerated; the atomic claim in the repository
// is the only concurrency control.
type Drainer struct {
    Entries repository.QueueEntryRepositoryInterface
    Sender  whatsapp.Sender
    Pacer   Pacer
    Media   *MediaErrorMatcher
}

func NewDrainer(entries repository.QueueEntryRepositoryInterface, sender whatsapp.Sender, pacer Pacer, media *MediaErrorMatcher) *Drainer {
    if pacer == nil {
        pacer = NewHumanPacer()
    }
    if media == nil {
        media = DefaultMediaErrorMatcher()
    }
    return &Drainer{Entries: entries, Sender: sender, Pacer: pacer, Media: media}
}

// Drain processes at most batchSize entries in strict priority-then-age
// order, sequentially. Remaining backlog waits for the next pass.
func (d *Drainer) Drain(ctx context.Context, batchSize int) (*DrainResult, error) {
    if batchSize <= 0 {
        batchSize = DefaultBatchSize
    }

    entries, err := d.Entries.FetchPending(batchSize)
    if err != nil {
        return nil, err
    }

    result := &DrainResult{}
    for _, entry := range entries {
        claimed, err := d.Entries.Claim(entry.ID)
        if err != nil {
            return result, err
        }
        if !claimed {
            // Another worker got there first.
            continue
        }

        result.Total++
        if d.deliver(ctx, entry) {
            result.Sent++
        } else {
            result.Failed++
        }

        // Inter-message pacing applies after every entry, success or not.
        if err := sleepCtx(ctx, d.Pacer.MessageDelay()); err != nil {
            return result, err
        }
    }
    return result, nil
}

// deliver runs the full per-entry sequence and persists the outcome. It
// reports whether the entry ended up sent.
func (d *Drainer) deliver(ctx context.Context, entry *model.QueueEntry) bool {
    if err := d.Sender.SetPresence(ctx, entry.Phone, whatsapp.PresenceComposing); err != nil {
        // Best-effort only.
        log.Println("⚠️ presence hint failed for", entry.Phone, ":", err)
    }
    if err := sleepCtx(ctx, d.Pacer.TypingDelay()); err != nil {
        d.recordFailure(entry, err)
        return false
    }

    if err := d.send(ctx, entry); err != nil {
        d.recordFailure(entry, err)
        return false
    }

    if err := d.Entries.MarkSent(entry.ID, time.Now()); err != nil {
        log.Println("⚠️ failed to mark entry", entry.ID, "as sent:", err)
    }
    return true
}

// send picks the right gateway operation. A media-classified failure of
// send-image gets one degraded fallback to send-text within the same
// attempt; a failing fallback counts as an ordinary transient failure.
func (d *Drainer) send(ctx context.Context, entry *model.QueueEntry) error {
    if entry.ImageURL == "" {
        res, err := d.Sender.SendText(ctx, entry.Phone, entry.Message)
        return resultError(res, err)
    }

    res, err := d.Sender.SendImage(ctx, entry.Phone, entry.Message, entry.ImageURL)
    imgErr := resultError(res, err)
    if imgErr == nil {
        return nil
    }
    if !d.Media.Match(imgErr.Error()) {
        return imgErr
    }

    log.Println("📩 media send failed for entry", entry.ID, "- falling back to text:", imgErr)
    res, err = d.Sender.SendText(ctx, entry.Phone, entry.Message)
    return resultError(res, err)
}

func (d *Drainer) recordFailure(entry *model.QueueEntry, sendErr error) {
    entry.Attempts++
    if entry.Attempts >= entry.MaxAttempts {
        entry.Attempts = entry.MaxAttempts
        if err := d.Entries.MarkFailed(entry.ID, entry.Attempts, sendErr.Error()); err != nil {
            log.Println("⚠️ failed to quarantine entry", entry.ID, ":", err)
            return
        }
        log.Println("❌ entry", entry.ID, "quarantined after", entry.Attempts, "attempts:", sendErr)
        return
    }
    if err := d.Entries.MarkRetry(entry.ID, entry.Attempts, sendErr.Error()); err != nil {
        log.Println("⚠️ failed to re-queue entry", entry.ID, ":", err)
        return
    }
    log.Println("⚠️ entry", entry.ID, "re-queued (attempt", entry.Attempts, "of", entry.MaxAttempts, "):", sendErr)
}

// resultError folds the transport error and the provider acknowledgement
// into a single failure value.
func resultError(res *whatsapp.SendResult, err error) error {
    if err != nil {
        return err
    }
    if res == nil {
        return errors.New("empty gateway response")
    }
    if !res.Success {
        if res.Error != "" {
            return errors.New(res.Error)
        }
        return errors.New("gateway rejected message")
    }
    return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
    if d <= 0 {
        return nil
    }
    timer := time.NewTimer(d)
    defer timer.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-timer.C:
        return nil
    }
}

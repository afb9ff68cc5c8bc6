package repository

import (
    "database/sql"
    "time"

    appErrors "github.com/okwach/wablast-backend/internal/errors"
    "github.com/okwach/wablast-backend/internal/model"
)

type QueueEntryRepositoryInterface interface {
    GetByID(id int) (*model.QueueEntry, error)
    FetchPending(limit int) ([]*model.QueueEntry, error)
    Claim(id int) (bool, error)
    MarkSent(id int, processedAt time.Time) error
    MarkRetry(id int, attempts int, lastError string) error
    MarkFailed(id int, attempts int, lastError string) error
    StatsByCampaign(campaignID int) (map[string]int, error)
    RequeueFailed(campaignID int) (int, error)
}

type QueueEntryRepository struct {
    DB *sql.DB
}

const entryColumns = `id, campaign_id, phone, message, image_url, priority, status,
        attempts, max_attempts, last_error, created_at, processed_at`

// GetByID fetches a queue entry by its ID
func (r *QueueEntryRepository) GetByID(id int) (*model.QueueEntry, error) {
    query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE id=$1`
    var e model.QueueEntry
    err := r.DB.QueryRow(query, id).Scan(
        &e.ID, &e.CampaignID, &e.Phone, &e.Message, &e.ImageURL, &e.Priority, &e.Status,
        &e.Attempts, &e.MaxAttempts, &e.LastError, &e.CreatedAt, &e.ProcessedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewQueueEntryNotFound(id)
        }
        return nil, err
    }
    return &e, nil
}

// FetchPending returns up to limit pending entries, highest priority first
// (lower value = served first), oldest first within a priority band.
func (r *QueueEntryRepository) FetchPending(limit int) ([]*model.QueueEntry, error) {
    query := `SELECT ` + entryColumns + `
        FROM queue_entries
        WHERE status=$1
        ORDER BY priority ASC, created_at ASC
        LIMIT $2`

    rows, err := r.DB.Query(query, model.StatusPending, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    entries := []*model.QueueEntry{}
    for rows.Next() {
        var e model.QueueEntry
        if err := rows.Scan(
            &e.ID, &e.CampaignID, &e.Phone, &e.Message, &e.ImageURL, &e.Priority, &e.Status,
            &e.Attempts, &e.MaxAttempts, &e.LastError, &e.CreatedAt, &e.ProcessedAt,
        ); err != nil {
            return nil, err
        }
        entries = append(entries, &e)
    }
    return entries, rows.Err()
}

// Claim atomically transitions an entry pending → processing. It reports
// false when another worker already claimed the entry; this conditional
// update is the only concurrency control between overlapping drains.
func (r *QueueEntryRepository) Claim(id int) (bool, error) {
    query := `UPDATE queue_entries SET status=$1 WHERE id=$2 AND status=$3`
    res, err := r.DB.Exec(query, model.StatusProcessing, id, model.StatusPending)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

func (r *QueueEntryRepository) MarkSent(id int, processedAt time.Time) error {
    query := `UPDATE queue_entries SET status=$1, processed_at=$2, last_error='' WHERE id=$3`
    _, err := r.DB.Exec(query, model.StatusSent, processedAt, id)
    return err
}

// MarkRetry puts the entry back in the pending pool with its attempt count
// bumped, so a future drain pass picks it up again.
func (r *QueueEntryRepository) MarkRetry(id int, attempts int, lastError string) error {
    query := `UPDATE queue_entries SET status=$1, attempts=$2, last_error=$3 WHERE id=$4`
    _, err := r.DB.Exec(query, model.StatusPending, attempts, lastError, id)
    return err
}

// MarkFailed quarantines the entry; it is never retried automatically again.
func (r *QueueEntryRepository) MarkFailed(id int, attempts int, lastError string) error {
    query := `UPDATE queue_entries SET status=$1, attempts=$2, last_error=$3, processed_at=NOW() WHERE id=$4`
    _, err := r.DB.Exec(query, model.StatusFailed, attempts, lastError, id)
    return err
}

func (r *QueueEntryRepository) StatsByCampaign(campaignID int) (map[string]int, error) {
    query := `SELECT status, COUNT(*) FROM queue_entries WHERE campaign_id=$1 GROUP BY status`
    rows, err := r.DB.Query(query, campaignID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    stats := map[string]int{
        model.StatusPending:    0,
        model.StatusProcessing: 0,
        model.StatusSent:       0,
        model.StatusFailed:     0,
    }
    for rows.Next() {
        var status string
        var count int
        if err := rows.Scan(&status, &count); err != nil {
            return nil, err
        }
        stats[status] = count
    }
    return stats, rows.Err()
}

// RequeueFailed is a manual operation: it resets quarantined entries of a
// campaign back to pending with a fresh attempt budget.
func (r *QueueEntryRepository) RequeueFailed(campaignID int) (int, error) {
    query := `
        UPDATE queue_entries
        SET status=$1, attempts=0, last_error='', processed_at=NULL
        WHERE campaign_id=$2 AND status=$3
    `
    res, err := r.DB.Exec(query, model.StatusPending, campaignID, model.StatusFailed)
    if err != nil {
        return 0, err
    }
    n, err := res.RowsAffected()
    return int(n), err
}

var _ QueueEntryRepositoryInterface = (*QueueEntryRepository)(nil)

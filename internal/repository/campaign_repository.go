package repository

import (
    "database/sql"
    "fmt"
    "time"

    appErrors "github.com/okwach/wablast-backend/internal/errors"
    "github.com/okwach/wablast-backend/internal/model"
)

type CampaignRepositoryInterface interface {
    // Campaign CRUD
    Create(c *model.Campaign) error
    Update(c *model.Campaign) error
    GetByID(id int) (*model.Campaign, error)
    ListCampaigns(offset, limit int, frequency string, active *bool) ([]*model.Campaign, int, error)
    SetActive(id int, active bool) error
    SetNextRun(id int, nextRun *time.Time) error

    // Scheduling
    ListDue(now time.Time) ([]*model.Campaign, error)
    FanOut(campaignID int, firedAt time.Time, nextRun *time.Time, entries []*model.QueueEntry) error
}

type CampaignRepository struct {
    DB *sql.DB
}

const campaignColumns = `id, name, frequency, times_of_day, weekdays, recipient_list_ids,
        message_template, product_name, product_price, image_url, active,
        last_run_at, next_run_at, total_sent, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
    var c model.Campaign
    err := row.Scan(
        &c.ID, &c.Name, &c.Frequency, &c.TimesOfDay, &c.Weekdays, &c.RecipientListIDs,
        &c.MessageTemplate, &c.ProductName, &c.ProductPrice, &c.ImageURL, &c.Active,
        &c.LastRunAt, &c.NextRunAt, &c.TotalSent, &c.CreatedAt, &c.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
    c.CreatedAt = time.Now()
    query := `
        INSERT INTO campaigns
            (name, frequency, times_of_day, weekdays, recipient_list_ids,
             message_template, product_name, product_price, image_url, active,
             next_run_at, total_sent, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12)
        RETURNING id
    `
    return r.DB.QueryRow(query,
        c.Name, c.Frequency, c.TimesOfDay, c.Weekdays, c.RecipientListIDs,
        c.MessageTemplate, c.ProductName, c.ProductPrice, c.ImageURL, c.Active,
        c.NextRunAt, c.CreatedAt,
    ).Scan(&c.ID)
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
    query := `
        UPDATE campaigns
        SET name=$1, times_of_day=$2, weekdays=$3, recipient_list_ids=$4,
            message_template=$5, product_name=$6, product_price=$7, image_url=$8,
            updated_at=NOW()
        WHERE id=$9
    `
    _, err := r.DB.Exec(query,
        c.Name, c.TimesOfDay, c.Weekdays, c.RecipientListIDs,
        c.MessageTemplate, c.ProductName, c.ProductPrice, c.ImageURL, c.ID,
    )
    return err
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
    c, err := scanCampaign(r.DB.QueryRow(query, id))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, err
    }
    return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, frequency string, active *bool) ([]*model.Campaign, int, error) {
    campaigns := []*model.Campaign{}
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
    args := []interface{}{}
    argPos := 1

    if frequency != "" {
        query += fmt.Sprintf(" AND frequency=$%d", argPos)
        args = append(args, frequency)
        argPos++
    }
    if active != nil {
        query += fmt.Sprintf(" AND active=$%d", argPos)
        args = append(args, *active)
        argPos++
    }

    query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
    args = append(args, limit, offset)

    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, 0, err
        }
        campaigns = append(campaigns, c)
    }

    // Count total
    countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
    argsCount := []interface{}{}
    argPosCount := 1
    if frequency != "" {
        countQuery += fmt.Sprintf(" AND frequency=$%d", argPosCount)
        argsCount = append(argsCount, frequency)
        argPosCount++
    }
    if active != nil {
        countQuery += fmt.Sprintf(" AND active=$%d", argPosCount)
        argsCount = append(argsCount, *active)
    }

    var total int
    if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
        return nil, 0, err
    }

    return campaigns, total, nil
}

func (r *CampaignRepository) SetActive(id int, active bool) error {
    query := `UPDATE campaigns SET active=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, active, id)
    return err
}

func (r *CampaignRepository) SetNextRun(id int, nextRun *time.Time) error {
    query := `UPDATE campaigns SET next_run_at=$1, updated_at=NOW() WHERE id=$2`
    _, err := r.DB.Exec(query, nextRun, id)
    return err
}

// ====================== Scheduling ======================

// ListDue returns active campaigns whose next_run_at has arrived.
func (r *CampaignRepository) ListDue(now time.Time) ([]*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE active=true AND next_run_at IS NOT NULL AND next_run_at <= $1
        ORDER BY next_run_at ASC`

    rows, err := r.DB.Query(query, now)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []*model.Campaign{}
    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

// FanOut inserts one queue entry per recipient and reschedules the campaign
// in a single transaction. A nil nextRun deactivates the campaign. Either
// everything commits or nothing does, so a crash mid-firing leaves the
// campaign still due for the next tick.
func (r *CampaignRepository) FanOut(campaignID int, firedAt time.Time, nextRun *time.Time, entries []*model.QueueEntry) error {
    tx, err := r.DB.Begin()
    if err != nil {
        return err
    }
    defer tx.Rollback()

    insert := `
        INSERT INTO queue_entries
            (campaign_id, phone, message, image_url, priority, status,
             attempts, max_attempts, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
    for _, e := range entries {
        e.CampaignID = campaignID
        e.CreatedAt = firedAt
        if err := tx.QueryRow(insert,
            e.CampaignID, e.Phone, e.Message, e.ImageURL, e.Priority, e.Status,
            e.Attempts, e.MaxAttempts, e.CreatedAt,
        ).Scan(&e.ID); err != nil {
            return err
        }
    }

    update := `
        UPDATE campaigns
        SET last_run_at=$1, next_run_at=$2, active=(active AND $3),
            total_sent=total_sent+$4, updated_at=NOW()
        WHERE id=$5
    `
    if _, err := tx.Exec(update, firedAt, nextRun, nextRun != nil, len(entries), campaignID); err != nil {
        return err
    }

    return tx.Commit()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)

// internal/service/campaign_service.go
package service

import (
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/okwach/wablast-backend/internal/model"
    "github.com/okwach/wablast-backend/internal/repository"
    "github.com/okwach/wablast-backend/internal/schedule"
)

type CampaignService struct {
    CampaignRepo repository.CampaignRepositoryInterface
    ContactRepo  repository.ContactRepositoryInterface
    EntryRepo    repository.QueueEntryRepositoryInterface
    Scheduler    *SchedulerService
}

type CampaignInput struct {
    Name             string   `json:"name"`
    Frequency        string   `json:"frequency"`
    TimesOfDay       []string `json:"times_of_day"`
    Weekdays         []int64  `json:"weekdays"`
    RecipientListIDs []int64  `json:"recipient_list_ids"`
    MessageTemplate  string   `json:"message_template"`
    ProductName      string   `json:"product_name"`
    ProductPrice     string   `json:"product_price"`
    ImageURL         string   `json:"image_url"`
}

type CampaignDetails struct {
    *model.Campaign
    Stats map[string]int `json:"stats"`
}

func (s *CampaignService) CreateCampaign(in CampaignInput) (*model.Campaign, error) {
    if strings.TrimSpace(in.Name) == "" {
        return nil, fmt.Errorf("campaign name is required")
    }
    switch in.Frequency {
    case model.FrequencyOnce, model.FrequencyDaily, model.FrequencyWeekly:
    default:
        return nil, fmt.Errorf("invalid frequency: %q", in.Frequency)
    }
    if strings.TrimSpace(in.MessageTemplate) == "" {
        return nil, fmt.Errorf("message template is required")
    }
    for _, t := range in.TimesOfDay {
        if _, err := time.Parse("15:04", t); err != nil {
            return nil, fmt.Errorf("invalid time of day %q, expected HH:MM", t)
        }
    }
    for _, wd := range in.Weekdays {
        if wd < 0 || wd > 6 {
            return nil, fmt.Errorf("invalid weekday %d, expected 0-6", wd)
        }
    }

    c := &model.Campaign{
        Name:             in.Name,
        Frequency:        in.Frequency,
        TimesOfDay:       in.TimesOfDay,
        Weekdays:         in.Weekdays,
        RecipientListIDs: in.RecipientListIDs,
        MessageTemplate:  in.MessageTemplate,
        ProductName:      in.ProductName,
        ProductPrice:     in.ProductPrice,
        ImageURL:         in.ImageURL,
        Active:           true,
    }
    c.NextRunAt = schedule.FirstRun(c, time.Now())
    if c.NextRunAt == nil {
        // Malformed schedule: logged, stored inactive, never raised.
        log.Println("⚠️ campaign", c.Name, "has no runnable schedule, creating it inactive")
        c.Active = false
    }

    if err := s.CampaignRepo.Create(c); err != nil {
        return nil, err
    }
    return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, frequency string, active *bool) ([]model.Campaign, map[string]int, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    offset := (page - 1) * pageSize

    ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, frequency, active)
    if err != nil {
        return nil, nil, err
    }

    campaigns := make([]model.Campaign, len(ptrs))
    for i, c := range ptrs {
        campaigns[i] = *c
    }

    totalPages := (total + pageSize - 1) / pageSize
    pagination := map[string]int{
        "page":        page,
        "page_size":   pageSize,
        "total_count": total,
        "total_pages": totalPages,
    }

    return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(campaignID int) (*CampaignDetails, error) {
    campaign, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return nil, err
    }

    stats, err := s.EntryRepo.StatsByCampaign(campaignID)
    if err != nil {
        return nil, err
    }
    total := 0
    for _, n := range stats {
        total += n
    }
    stats["total"] = total

    return &CampaignDetails{Campaign: campaign, Stats: stats}, nil
}

// RenderPreview renders the campaign template for one contact, optionally
// with an override template that is not persisted.
func (s *CampaignService) RenderPreview(campaignID, contactID int, overrideTemplate *string) (string, error) {
    campaign, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return "", err
    }

    contact, err := s.ContactRepo.GetByID(contactID)
    if err != nil {
        return "", err
    }
    if contact == nil {
        return "", fmt.Errorf("contact not found")
    }

    if overrideTemplate != nil && strings.TrimSpace(*overrideTemplate) != "" {
        preview := *campaign
        preview.MessageTemplate = *overrideTemplate
        return RenderMessage(&preview, *contact), nil
    }
    if strings.TrimSpace(campaign.MessageTemplate) == "" {
        return "", fmt.Errorf("template cannot be empty")
    }
    return RenderMessage(campaign, *contact), nil
}

func (s *CampaignService) PauseCampaign(id int) error {
    if _, err := s.CampaignRepo.GetByID(id); err != nil {
        return err
    }
    return s.CampaignRepo.SetActive(id, false)
}

// ResumeCampaign reactivates a paused campaign and recomputes its next run
// from scratch; a stale next_run_at in the past must not cause a burst of
// catch-up firings.
func (s *CampaignService) ResumeCampaign(id int) (*model.Campaign, error) {
    c, err := s.CampaignRepo.GetByID(id)
    if err != nil {
        return nil, err
    }

    nextRun := schedule.FirstRun(c, time.Now())
    if nextRun == nil {
        return nil, fmt.Errorf("campaign %d has no runnable schedule", id)
    }
    if err := s.CampaignRepo.SetNextRun(id, nextRun); err != nil {
        return nil, err
    }
    if err := s.CampaignRepo.SetActive(id, true); err != nil {
        return nil, err
    }
    c.NextRunAt = nextRun
    c.Active = true
    return c, nil
}

// SendNow fires a campaign immediately, ignoring its schedule.
func (s *CampaignService) SendNow(campaignID int) (int, error) {
    c, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return 0, err
    }
    return s.Scheduler.Fire(c, time.Now())
}

// RetryFailed requeues a campaign's quarantined entries with a fresh
// attempt budget. This is the manual escape hatch for the failed state.
func (s *CampaignService) RetryFailed(campaignID int) (int, error) {
    if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
        return 0, err
    }
    return s.EntryRepo.RequeueFailed(campaignID)
}

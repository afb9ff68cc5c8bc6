// internal/controller/campaign_controller.go
package controller

import (
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/okwach/wablast-backend/internal/service"

    "github.com/go-chi/chi/v5"
)

type CampaignController struct {
    CampaignService *service.CampaignService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
    var body service.CampaignInput
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    campaign, err := c.CampaignService.CreateCampaign(body)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
    frequency := r.URL.Query().Get("frequency")

    var active *bool
    if raw := r.URL.Query().Get("active"); raw != "" {
        v, err := strconv.ParseBool(raw)
        if err != nil {
            http.Error(w, "invalid active filter", http.StatusBadRequest)
            return
        }
        active = &v
    }

    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }

    campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, frequency, active)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "data":       campaigns,
        "pagination": pagination,
    })
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
    campaignID := urlID(r)

    var body struct {
        ContactID        int     `json:"contact_id"`
        OverrideTemplate *string `json:"override_template"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    rendered, err := c.CampaignService.RenderPreview(campaignID, body.ContactID, body.OverrideTemplate)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "rendered_message": rendered,
        "used_template":    body.OverrideTemplate,
        "contact_id":       body.ContactID,
    })
}

func (c *CampaignController) SendNow(w http.ResponseWriter, r *http.Request) {
    campaignID := urlID(r)

    queued, err := c.CampaignService.SendNow(campaignID)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "campaign_id":     campaignID,
        "messages_queued": queued,
    })
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
    campaignID := urlID(r)

    if err := c.CampaignService.PauseCampaign(campaignID); err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "campaign_id": campaignID,
        "active":      false,
    })
}

func (c *CampaignController) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
    campaignID := urlID(r)

    campaign, err := c.CampaignService.ResumeCampaign(campaignID)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) RetryFailed(w http.ResponseWriter, r *http.Request) {
    campaignID := urlID(r)

    requeued, err := c.CampaignService.RetryFailed(campaignID)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "campaign_id": campaignID,
        "requeued":    requeued,
    })
}

func urlID(r *http.Request) int {
    id, _ := strconv.Atoi(chi.URLParam(r, "id"))
    return id
}

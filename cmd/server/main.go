// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/okwach/wablast-backend/internal/controller"
	"github.com/okwach/wablast-backend/internal/db"
	"github.com/okwach/wablast-backend/internal/handler"
	"github.com/okwach/wablast-backend/internal/queue"
	"github.com/okwach/wablast-backend/internal/repository"
	"github.com/okwach/wablast-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	// Init DB
	db.Init()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	contactRepo := &repository.ContactRepository{DB: db.DB}
	entryRepo := &repository.QueueEntryRepository{DB: db.DB}

	// The nudger tells the delivery worker to drain right after a fan-out.
	// Without it the worker still sweeps on its own cadence.
	var nudger service.DrainNudger
	if url := os.Getenv("AMQP_URL"); url != "" {
		publisher, err := queue.NewPublisher(url)
		if err != nil {
			log.Println("⚠️ Failed to connect to RabbitMQ, drain nudges disabled:", err)
		} else {
			defer publisher.Close()
			nudger = publisher
		}
	}

	schedulerService := &service.SchedulerService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		Nudger:       nudger,
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		EntryRepo:    entryRepo,
		Scheduler:    schedulerService,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}

	campaignHandler := &handler.CampaignHandler{
		Service: campaignService,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignHandlerWithStats)
	r.Post("/campaigns/{id}/personalized-preview", campaignController.PersonalizedPreview)
	r.Post("/campaigns/{id}/send-now", campaignController.SendNow)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/retry-failed", campaignController.RetryFailed)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Println("🚀 Server running on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

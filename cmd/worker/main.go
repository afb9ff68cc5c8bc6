// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/okwach/wablast-backend/internal/db"
	"github.com/okwach/wablast-backend/internal/queue"
	"github.com/okwach/wablast-backend/internal/repository"
	"github.com/okwach/wablast-backend/internal/service"
	"github.com/okwach/wablast-backend/internal/whatsapp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	db.Init()

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	contactRepo := &repository.ContactRepository{DB: db.DB}
	entryRepo := &repository.QueueEntryRepository{DB: db.DB}

	amqpURL := os.Getenv("AMQP_URL")

	var nudger service.DrainNudger
	if amqpURL != "" {
		publisher, err := queue.NewPublisher(amqpURL)
		if err != nil {
			log.Println("⚠️ Failed to connect publisher to RabbitMQ:", err)
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

	drainer := service.NewDrainer(entryRepo, newSender(), nil, nil)
	batchSize := envInt("DRAIN_BATCH_SIZE", service.DefaultBatchSize)

	drain := func(trigger string) {
		result, err := drainer.Drain(context.Background(), batchSize)
		if err != nil {
			log.Println("⚠️ drain failed ("+trigger+"):", err)
			return
		}
		if result.Total > 0 {
			log.Printf("📤 drain (%s): sent=%d failed=%d total=%d\n", trigger, result.Sent, result.Failed, result.Total)
		}
	}

	// The scheduler ticks every minute; the drainer sweeps on its own
	// cadence so backlog clears even with no new firings. Overlapping
	// drains are fine: the claim step keeps them from double-sending.
	c := cron.New()
	if _, err := c.AddFunc("* * * * *", func() {
		if err := schedulerService.Tick(time.Now()); err != nil {
			log.Println("⚠️ scheduler tick failed:", err)
		}
	}); err != nil {
		log.Fatal("failed to register scheduler tick:", err)
	}
	if _, err := c.AddFunc("@every 45s", func() { drain("sweep") }); err != nil {
		log.Fatal("failed to register drain sweep:", err)
	}
	c.Start()
	defer c.Stop()

	// Drain immediately when the API or scheduler fans a campaign out.
	if amqpURL != "" {
		consumer, err := queue.NewConsumer(amqpURL)
		if err != nil {
			log.Println("⚠️ Failed to connect consumer to RabbitMQ, relying on sweep only:", err)
		} else {
			defer consumer.Close()
			go func() {
				if err := consumer.Consume(func() { drain("nudge") }); err != nil {
					log.Println("⚠️ drain consumer stopped:", err)
				}
			}()
		}
	}

	log.Println("🚀 Worker running: scheduler tick every minute, drain sweep every 45s")
	select {}
}

func newSender() whatsapp.Sender {
	baseURL := os.Getenv("WHATSAPP_BASE_URL")
	if baseURL == "" {
		log.Println("⚠️ WHATSAPP_BASE_URL not set, using mock sender")
		return &whatsapp.MockSender{}
	}
	return whatsapp.NewGatewayClient(whatsapp.Config{
		BaseURL: baseURL,
		Token:   os.Getenv("WHATSAPP_TOKEN"),
		Timeout: time.Duration(envInt("WHATSAPP_TIMEOUT_SECONDS", 30)) * time.Second,
	})
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

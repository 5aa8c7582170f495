// @title           LeadHub CRM API
// @version         1.0
// @description     Multi-tenant lead CRM backend: lead intake, call management with automatic funnel transitions, follow-up tasks, call scripts, and ad campaign integration.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/aldoetobex/leadhub-backend/pkg/database"
	"github.com/aldoetobex/leadhub-backend/pkg/logger"
	"github.com/aldoetobex/leadhub-backend/pkg/models"

	"github.com/aldoetobex/leadhub-backend/internal/ads"
	"github.com/aldoetobex/leadhub-backend/internal/auth"
	"github.com/aldoetobex/leadhub-backend/internal/calls"
	"github.com/aldoetobex/leadhub-backend/internal/campaigns"
	"github.com/aldoetobex/leadhub-backend/internal/leads"
	"github.com/aldoetobex/leadhub-backend/internal/storage"
	"github.com/aldoetobex/leadhub-backend/internal/tasks"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	db := database.Init()
	if err := db.AutoMigrate(
		&models.Agent{}, &models.Lead{}, &models.LeadDetail{}, &models.Task{},
		&models.CallLog{}, &models.CallScript{}, &models.LeadHistory{},
	); err != nil {
		log.Fatal("migration failed:", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
	})

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")

	// Auth
	authH := auth.NewHandler(db)
	api.Post("/signup", authH.Signup)
	api.Post("/login", authH.Login)
	api.Get("/me", auth.RequireAuth(), authH.Me)

	// Storage helper (call recordings)
	sb := storage.NewSupabase() // uses SUPABASE_URL / SUPABASE_SERVICE_KEY / SUPABASE_BUCKET

	// Leads
	leadH := leads.NewHandler(db, log)
	api.Post("/leads", auth.RequireAuth(), leadH.Create)
	api.Get("/leads/export", auth.RequireAuth(), leadH.Export)
	api.Get("/leads", auth.RequireAuth(), leadH.List)
	api.Get("/leads/:id", auth.RequireAuth(), leadH.Get)
	api.Patch("/leads/:id", auth.RequireAuth(), leadH.Update)
	api.Post("/leads/:id/status", auth.RequireAuth(), leadH.UpdateStatus)

	// Tasks
	taskH := tasks.NewHandler(db)
	api.Get("/tasks/mine", auth.RequireAuth(), taskH.ListMine)
	api.Post("/tasks/:id/status", auth.RequireAuth(), taskH.UpdateStatus)

	// Calls
	callH := calls.NewHandler(db, calls.NewSessionManager(), sb, log)
	api.Post("/calls/start", auth.RequireAuth(), callH.Start)
	api.Post("/calls/end", auth.RequireAuth(), callH.End)
	api.Get("/calls/active", auth.RequireAuth(), callH.Active)
	api.Get("/leads/:id/calls", auth.RequireAuth(), callH.ListByLead)
	api.Get("/leads/:id/script", auth.RequireAuth(), callH.Script)
	api.Post("/calls/:id/recording", auth.RequireAuth(), callH.UploadRecording)
	api.Delete("/calls/:id/recording", auth.RequireAuth(), callH.DeleteRecording)
	api.Get("/calls/:id/recording-url", auth.RequireAuth(), callH.RecordingURL)

	// Campaigns (ad platforms are injected; dev runs on the mock clients).
	// Campaign spend is a manager concern, agents don't get these routes.
	adClients := map[string]ads.Client{
		"meta":   ads.NewMockClient("meta"),
		"google": ads.NewMockClient("google"),
	}
	manager := auth.RequireRole(string(models.RoleManager))
	campaignH := campaigns.NewHandler(adClients)
	api.Post("/campaigns", auth.RequireAuth(), manager, campaignH.Create)
	api.Get("/campaigns/:id/status", auth.RequireAuth(), manager, campaignH.Status)
	api.Get("/campaigns/:id/performance", auth.RequireAuth(), manager, campaignH.Performance)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Info("server running on :" + port)
	log.Fatal(app.Listen(":" + port))
}

package campaigns

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/leadhub-backend/internal/ads"
	"github.com/aldoetobex/leadhub-backend/pkg/validation"
)

// Handler proxies campaign operations to the injected ad-platform clients.
// No campaign state is persisted here; the platforms own it.
type Handler struct {
	clients map[string]ads.Client // keyed by platform
}

func NewHandler(clients map[string]ads.Client) *Handler {
	return &Handler{clients: clients}
}

func (h *Handler) client(c *fiber.Ctx) (ads.Client, error) {
	platform := strings.TrimSpace(c.Query("platform", "meta"))
	cl, ok := h.clients[platform]
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "unknown platform")
	}
	return cl, nil
}

type CreateCampaignRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Objective   string  `json:"objective" validate:"required,oneof=lead_generation traffic awareness"`
	DailyBudget float64 `json:"daily_budget" validate:"required,gt=0"`
	StartDate   string  `json:"start_date" validate:"required"`
	EndDate     string  `json:"end_date" validate:"required"`
}

// Create godoc
// @Summary      Launch an ad campaign
// @Tags         campaigns
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        platform query string                false "meta|google (default meta)"
// @Param        payload  body  CreateCampaignRequest true  "campaign"
// @Success      201  {object}  ads.Campaign
// @Failure      400  {object}  models.ValidationErrorResponse
// @Router       /campaigns [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	cl, err := h.client(c)
	if err != nil {
		return err
	}

	var in CreateCampaignRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	campaign, err := cl.CreateCampaign(c.Context(), ads.CampaignRequest{
		Name:        in.Name,
		Objective:   in.Objective,
		DailyBudget: in.DailyBudget,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

// Status godoc
// @Summary      Campaign approval status
// @Tags         campaigns
// @Security     BearerAuth
// @Produce      json
// @Param        platform query string false "meta|google (default meta)"
// @Param        id       path  string true  "campaign id"
// @Success      200  {object}  map[string]string
// @Router       /campaigns/{id}/status [get]
func (h *Handler) Status(c *fiber.Ctx) error {
	cl, err := h.client(c)
	if err != nil {
		return err
	}

	status, err := cl.ApprovalStatus(c.Context(), c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"campaign_id": c.Params("id"), "status": status})
}

// Performance godoc
// @Summary      Campaign performance metrics
// @Tags         campaigns
// @Security     BearerAuth
// @Produce      json
// @Param        platform query string false "meta|google (default meta)"
// @Param        id       path  string true  "campaign id"
// @Param        from     query string false "YYYY-MM-DD (default 7 days ago)"
// @Param        to       query string false "YYYY-MM-DD (default today)"
// @Success      200  {object}  ads.Performance
// @Router       /campaigns/{id}/performance [get]
func (h *Handler) Performance(c *fiber.Ctx) error {
	cl, err := h.client(c)
	if err != nil {
		return err
	}

	to := time.Now()
	from := to.AddDate(0, 0, -7)
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t
		}
	}

	perf, err := cl.Performance(c.Context(), c.Params("id"), from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(perf)
}

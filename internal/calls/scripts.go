package calls

import (
	"errors"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/leadhub-backend/internal/auth"
	"github.com/aldoetobex/leadhub-backend/pkg/models"
)

// RenderedScript is a call script with placeholders filled for one lead.
type RenderedScript struct {
	ID         uuid.UUID `json:"id"`
	ScriptType string    `json:"script_type"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
}

// Script godoc
// @Summary      Call script for a lead
// @Description  Renders the active script for the lead's industry, filling {{lead_name}}, {{agent_name}} and {{company_name}}
// @Tags         calls
// @Security     BearerAuth
// @Produce      json
// @Param        id    path  string true  "lead id (uuid)"
// @Param        type  query string false "script type (default cold_call)"
// @Success      200  {object}  RenderedScript
// @Failure      404  {object}  models.ErrorResponse
// @Router       /leads/{id}/script [get]
func (h *Handler) Script(c *fiber.Ctx) error {
	agentID := auth.MustUserID(c)
	leadID := c.Params("id")
	if _, err := uuid.Parse(leadID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lead id")
	}
	scriptType := strings.TrimSpace(c.Query("type", "cold_call"))

	var lead models.Lead
	if err := h.db.First(&lead, "id = ?", leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	var script models.CallScript
	err := h.db.
		Where("industry = ? AND script_type = ? AND is_active = ?", lead.Industry, scriptType, true).
		Order("created_at DESC").
		First(&script).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no active script for this industry")
		}
		return fiber.ErrInternalServerError
	}

	var agent models.Agent
	_ = h.db.First(&agent, "id = ?", agentID).Error

	company := os.Getenv("COMPANY_NAME")
	if company == "" {
		company = "our company"
	}

	content := strings.NewReplacer(
		"{{lead_name}}", lead.Name,
		"{{agent_name}}", agent.Name,
		"{{company_name}}", company,
	).Replace(script.Content)

	return c.JSON(RenderedScript{
		ID:         script.ID,
		ScriptType: script.ScriptType,
		Title:      script.Title,
		Content:    content,
	})
}

package leads

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/leadhub-backend/internal/auth"
	"github.com/aldoetobex/leadhub-backend/pkg/logger"
	"github.com/aldoetobex/leadhub-backend/pkg/models"
	"github.com/aldoetobex/leadhub-backend/pkg/phone"
	"github.com/aldoetobex/leadhub-backend/pkg/sanitize"
	"github.com/aldoetobex/leadhub-backend/pkg/utils"
	"github.com/aldoetobex/leadhub-backend/pkg/validation"
)

// Due offset for the auto-created first-contact task.
const firstContactDue = 2 * time.Hour

// ===== DTOs =====

type CreateLeadRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Email    string `json:"email" validate:"omitempty,email,max=120"`
	Industry string `json:"industry" validate:"omitempty,oneof=real_estate stock_broking broking_franchise insurance loans edutech"`
	Source   string `json:"source" validate:"omitempty,oneof=website google_ads facebook whatsapp referral portal_99acres portal_magicbricks other"`
	Intent   string `json:"buyer_intent" validate:"omitempty,oneof=hot warm cold"`
	Priority string `json:"priority" validate:"omitempty,oneof=high medium low"`
	Notes    string `json:"notes" validate:"max=2000"`
	// Status is accepted for wire compatibility and deliberately ignored:
	// every lead starts at "new".
	Status  string            `json:"status"`
	Tags    []string          `json:"tags"`
	Details map[string]string `json:"details"`
}

type UpdateLeadRequest struct {
	// Intake stores whatever phone the source sent; a manual correction
	// through PATCH must be a dialable number.
	Phone      string   `json:"phone" validate:"omitempty,max=32,phone"`
	Intent     string   `json:"buyer_intent" validate:"omitempty,oneof=hot warm cold"`
	Priority   string   `json:"priority" validate:"omitempty,oneof=high medium low"`
	Tags       []string `json:"tags"`
	AssignedTo string   `json:"assigned_to" validate:"omitempty,uuid"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified demo_scheduled proposal_sent converted not_interested invalid nurturing"`
	Reason string `json:"reason" validate:"max=500"`
}

type Handler struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHandler(db *gorm.DB, log *logger.Logger) *Handler {
	return &Handler{db: db, log: log}
}

func parsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}
	return
}

// defaultIndustry is used when intake doesn't carry a vertical; most
// deployments serve one vertical and pin it via env.
func defaultIndustry() models.IndustrySegment {
	if v := os.Getenv("DEFAULT_INDUSTRY"); v != "" {
		return models.IndustrySegment(v)
	}
	return models.IndustryRealEstate
}

// Create Lead godoc
// @Summary      Lead intake
// @Description  Creates a lead (status forced to "new"), its industry-specific detail fields, and the first-contact task, all in one transaction
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateLeadRequest  true  "Lead payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /leads [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateLeadRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	agentID, _ := uuid.Parse(auth.MustUserID(c))

	industry := models.IndustrySegment(in.Industry)
	if industry == "" {
		industry = defaultIndustry()
	}
	source := models.LeadSource(in.Source)
	if source == "" {
		source = models.SourceOther
	}
	intent := models.BuyerIntent(in.Intent)
	if intent == "" {
		intent = models.IntentWarm
	}
	priority := models.LeadPriority(in.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	lead := models.Lead{
		Name:       strings.TrimSpace(in.Name),
		Phone:      phone.Normalize(in.Phone),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Industry:   industry,
		Source:     source,
		Status:     models.LeadNew, // never trust caller-supplied status
		Intent:     intent,
		Priority:   priority,
		Tags:       in.Tags,
		Notes:      strings.TrimSpace(in.Notes),
		AssignedTo: agentID,
	}

	due := time.Now().Add(firstContactDue)

	// Lead, detail fields and the first-contact task commit or roll back
	// together.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lead).Error; err != nil {
			return err
		}
		for name, value := range in.Details {
			name, value = strings.TrimSpace(name), strings.TrimSpace(value)
			if name == "" || value == "" {
				continue
			}
			if err := tx.Create(&models.LeadDetail{
				LeadID:     lead.ID,
				FieldName:  name,
				FieldValue: value,
			}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.Task{
			LeadID:     lead.ID,
			AssignedTo: agentID,
			Title:      "First Contact Call",
			Status:     models.TaskPending,
			DueDate:    &due,
		}).Error
	})
	if err != nil {
		return fiber.ErrInternalServerError
	}

	utils.LogLeadHistory(c.Context(), h.db, lead.ID, agentID, "created", "", models.LeadNew, "")
	h.log.WithLead(lead.ID.String()).WithField("source", lead.Source).Info("lead created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": lead.ID})
}

// ===== Listing =====

type LeadListItem struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Industry     string    `json:"industry"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Intent       string    `json:"buyer_intent" gorm:"column:intent"`
	Priority     string    `json:"priority"`
	NotesPreview string    `json:"notes_preview" gorm:"column:notes"`
	Calls        int64     `json:"calls"`
	CreatedAt    time.Time `json:"created_at"`
}

type PageLeads struct {
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    int64          `json:"total"`
	Pages    int            `json:"pages"`
	Items    []LeadListItem `json:"items"`
}

// applyFilters narrows the lead query from query-string filters.
func applyFilters(c *fiber.Ctx, dbq *gorm.DB) (*gorm.DB, error) {
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		switch models.LeadStatus(s) {
		case models.LeadNew, models.LeadContacted, models.LeadQualified,
			models.LeadDemoScheduled, models.LeadProposalSent, models.LeadConverted,
			models.LeadNotInterested, models.LeadInvalid, models.LeadNurturing:
			dbq = dbq.Where("leads.status = ?", s)
		default:
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
		}
	}
	if v := strings.TrimSpace(c.Query("industry")); v != "" {
		dbq = dbq.Where("leads.industry = ?", v)
	}
	if v := strings.TrimSpace(c.Query("buyer_intent")); v != "" {
		dbq = dbq.Where("leads.intent = ?", v)
	}
	if v := strings.TrimSpace(c.Query("priority")); v != "" {
		dbq = dbq.Where("leads.priority = ?", v)
	}
	if v := strings.TrimSpace(c.Query("source")); v != "" {
		dbq = dbq.Where("leads.source = ?", v)
	}
	if v := c.Query("created_since"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			dbq = dbq.Where("leads.created_at >= ?", t)
		}
	}
	return dbq, nil
}

// List godoc
// @Summary      List leads
// @Description  Team-wide lead list (paginated, filterable); notes previews are PII-redacted
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        page          query int    false "page"
// @Param        pageSize      query int    false "pageSize"
// @Param        status        query string false "lead status"
// @Param        industry      query string false "industry segment"
// @Param        buyer_intent  query string false "hot|warm|cold"
// @Param        priority      query string false "high|medium|low"
// @Param        source        query string false "lead source"
// @Param        created_since query string false "YYYY-MM-DD"
// @Success      200  {object}  PageLeads
// @Failure      401  {object}  models.ErrorResponse
// @Router       /leads [get]
func (h *Handler) List(c *fiber.Ctx) error {
	page, size := parsePage(c)

	base, err := applyFilters(c, h.db.Model(&models.Lead{}))
	if err != nil {
		return err
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	listq, _ := applyFilters(c, h.db.Table("leads"))
	rows := make([]LeadListItem, 0, size)
	if err := listq.
		Select(`leads.id, leads.name, leads.phone, leads.industry, leads.source,
        leads.status, leads.intent, leads.priority, leads.notes, leads.created_at,
        COUNT(call_logs.id) AS calls`).
		Joins("LEFT JOIN call_logs ON call_logs.lead_id = leads.id").
		Group("leads.id").
		Order("leads.created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Scan(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	for i := range rows {
		rows[i].NotesPreview = sanitize.Summary(sanitize.RedactPII(rows[i].NotesPreview), 160)
	}

	return c.JSON(PageLeads{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    rows,
	})
}

// Get godoc
// @Summary      Lead detail
// @Description  Lead with detail fields, tasks and call logs
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "lead id (uuid)"
// @Success      200  {object}  models.Lead
// @Failure      404  {object}  models.ErrorResponse
// @Router       /leads/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lead id")
	}

	var lead models.Lead
	err := h.db.
		Where("id = ?", id).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("CallLogs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&lead).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	// Never send null collections
	if lead.Details == nil {
		lead.Details = []models.LeadDetail{}
	}
	if lead.Tasks == nil {
		lead.Tasks = []models.Task{}
	}
	if lead.CallLogs == nil {
		lead.CallLogs = []models.CallLog{}
	}

	return c.JSON(lead)
}

// Update godoc
// @Summary      Update lead classification
// @Description  Mutates phone, buyer intent, priority, tags and assignment. Industry and status are not touched here.
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path string             true "lead id (uuid)"
// @Param        payload  body UpdateLeadRequest  true "fields to update"
// @Success      200  {object}  models.Lead
// @Failure      404  {object}  models.ErrorResponse
// @Router       /leads/{id} [patch]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lead id")
	}

	var in UpdateLeadRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var lead models.Lead
	if err := h.db.First(&lead, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	updates := map[string]any{}
	if in.Phone != "" {
		updates["phone"] = phone.Normalize(in.Phone)
	}
	if in.Intent != "" {
		updates["intent"] = in.Intent
	}
	if in.Priority != "" {
		updates["priority"] = in.Priority
	}
	if in.Tags != nil {
		lead.Tags = in.Tags
		if err := h.db.Model(&lead).Update("tags", lead.Tags).Error; err != nil {
			return fiber.ErrInternalServerError
		}
	}
	if in.AssignedTo != "" {
		aid, _ := uuid.Parse(in.AssignedTo)
		updates["assigned_to"] = aid
	}
	if len(updates) > 0 {
		if err := h.db.Model(&lead).Updates(updates).Error; err != nil {
			return fiber.ErrInternalServerError
		}
	}

	if err := h.db.First(&lead, "id = ?", id).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(lead)
}

// UpdateStatus godoc
// @Summary      Manual status transition
// @Description  Moves a lead through the funnel; rejected when the transition policy forbids it
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path string               true "lead id (uuid)"
// @Param        payload  body UpdateStatusRequest  true "target status"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "transition not allowed"
// @Router       /leads/{id}/status [post]
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lead id")
	}

	var in UpdateStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	agentID, _ := uuid.Parse(auth.MustUserID(c))
	target := models.LeadStatus(in.Status)

	var old models.LeadStatus
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.First(&lead, "id = ?", id).Error; err != nil {
			return err
		}
		old = lead.Status
		if !CanTransition(lead.Status, target) {
			return fiber.NewError(fiber.StatusConflict, "status transition not allowed")
		}
		return tx.Model(&lead).Update("status", target).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.ErrNotFound
		}
		if fe, ok := err.(*fiber.Error); ok {
			return fe
		}
		return fiber.ErrInternalServerError
	}

	leadID, _ := uuid.Parse(id)
	utils.LogLeadHistory(c.Context(), h.db, leadID, agentID, "status_changed", old, target, in.Reason)
	h.log.WithLead(id).WithField("from", old).WithField("to", target).Info("lead status changed")

	return c.JSON(fiber.Map{"id": id, "status": string(target)})
}

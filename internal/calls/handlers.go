package calls

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/leadhub-backend/internal/auth"
	"github.com/aldoetobex/leadhub-backend/internal/leads"
	"github.com/aldoetobex/leadhub-backend/pkg/logger"
	"github.com/aldoetobex/leadhub-backend/pkg/models"
	"github.com/aldoetobex/leadhub-backend/pkg/utils"
	"github.com/aldoetobex/leadhub-backend/pkg/validation"
)

type Handler struct {
	db       *gorm.DB
	sessions *SessionManager
	store    BlobStore
	log      *logger.Logger
}

func NewHandler(db *gorm.DB, sessions *SessionManager, store BlobStore, log *logger.Logger) *Handler {
	return &Handler{db: db, sessions: sessions, store: store, log: log}
}

// ===== DTOs =====

type StartCallRequest struct {
	LeadID string `json:"lead_id" validate:"required,uuid"`
}

type EndCallRequest struct {
	// Outcome may be omitted when the call was abandoned before a selection;
	// the log is still written and contact timestamps still move.
	Outcome           string     `json:"outcome" validate:"omitempty,oneof=interested not_interested follow_up_required demo_scheduled invalid_lead"`
	Notes             string     `json:"notes" validate:"max=2000"`
	ScheduledFollowUp *time.Time `json:"scheduled_follow_up"`
}

// Start godoc
// @Summary      Start a call
// @Description  Opens an ephemeral call session against a lead. One active call per agent.
// @Tags         calls
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  StartCallRequest  true  "lead to call"
// @Success      201  {object}  Session
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "call already in progress"
// @Router       /calls/start [post]
func (h *Handler) Start(c *fiber.Ctx) error {
	agentID, _ := uuid.Parse(auth.MustUserID(c))

	var in StartCallRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	leadID, _ := uuid.Parse(in.LeadID)

	var cnt int64
	if err := h.db.Model(&models.Lead{}).Where("id = ?", leadID).Count(&cnt).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if cnt == 0 {
		return fiber.ErrNotFound
	}

	sess, err := h.sessions.Start(agentID, leadID)
	if err != nil {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	h.log.WithLead(leadID.String()).Info("call started")
	return c.Status(fiber.StatusCreated).JSON(sess)
}

// Active godoc
// @Summary      Current call session
// @Tags         calls
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Session
// @Failure      404  {object}  models.ErrorResponse  "no active call"
// @Router       /calls/active [get]
func (h *Handler) Active(c *fiber.Ctx) error {
	agentID, _ := uuid.Parse(auth.MustUserID(c))
	sess, ok := h.sessions.Active(agentID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, ErrNoActiveCall.Error())
	}
	return c.JSON(sess)
}

// End godoc
// @Summary      End the active call
// @Description  Writes the call log and applies the lead side effects (contact timestamps, auto status transition from "new") in one transaction. The session survives a failed write so the submit can be retried.
// @Tags         calls
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  EndCallRequest  true  "call result"
// @Success      201  {object}  map[string]any  "call log id, duration, lead status"
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "no active call"
// @Router       /calls/end [post]
func (h *Handler) End(c *fiber.Ctx) error {
	agentID, _ := uuid.Parse(auth.MustUserID(c))

	sess, ok := h.sessions.Active(agentID)
	if !ok {
		return fiber.NewError(fiber.StatusConflict, ErrNoActiveCall.Error())
	}

	var in EndCallRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var outcome *models.CallOutcome
	if in.Outcome != "" {
		o := models.CallOutcome(in.Outcome)
		outcome = &o
	}

	now := time.Now()
	entry := models.CallLog{
		LeadID:            sess.LeadID,
		AgentID:           agentID,
		CallDuration:      sess.Duration(now),
		Outcome:           outcome,
		Notes:             in.Notes,
		ScheduledFollowUp: in.ScheduledFollowUp,
	}

	var oldStatus, newStatus models.LeadStatus
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.First(&lead, "id = ?", sess.LeadID).Error; err != nil {
			return err
		}

		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		// Contact timestamps move on every logged call, outcome or not.
		updates := map[string]any{"last_contact_at": now}
		if lead.FirstContactAt == nil {
			updates["first_contact_at"] = now
		}

		oldStatus = lead.Status
		newStatus, _ = leads.AutoTransition(lead.Status, outcome)
		if newStatus != oldStatus {
			updates["status"] = newStatus
		}

		return tx.Model(&lead).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		// Session kept: the agent retries with the form state intact.
		return fiber.ErrInternalServerError
	}

	h.sessions.Finish(agentID)

	if newStatus != oldStatus {
		utils.LogLeadHistory(c.Context(), h.db, sess.LeadID, agentID, "call_logged", oldStatus, newStatus, "")
	}
	h.log.WithLead(sess.LeadID.String()).
		WithField("duration_s", entry.CallDuration).
		Info("call logged")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":            entry.ID,
		"call_duration": entry.CallDuration,
		"lead_status":   newStatus,
	})
}

// ===== Call log listing =====

type PageCallLogs struct {
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Total    int64            `json:"total"`
	Pages    int              `json:"pages"`
	Items    []models.CallLog `json:"items"`
}

// ListByLead godoc
// @Summary      Call history for a lead
// @Tags         calls
// @Security     BearerAuth
// @Produce      json
// @Param        id       path  string true  "lead id (uuid)"
// @Param        page     query int    false "page"
// @Param        pageSize query int    false "pageSize"
// @Success      200  {object}  PageCallLogs
// @Failure      404  {object}  models.ErrorResponse
// @Router       /leads/{id}/calls [get]
func (h *Handler) ListByLead(c *fiber.Ctx) error {
	leadID := c.Params("id")
	if _, err := uuid.Parse(leadID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid lead id")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("pageSize", "10"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 50 {
		size = 10
	}

	q := h.db.Model(&models.CallLog{}).Where("lead_id = ?", leadID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var rows []models.CallLog
	if err := q.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if rows == nil {
		rows = []models.CallLog{}
	}

	return c.JSON(PageCallLogs{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    rows,
	})
}

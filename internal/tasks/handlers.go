package tasks

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/leadhub-backend/internal/auth"
	"github.com/aldoetobex/leadhub-backend/pkg/models"
	"github.com/aldoetobex/leadhub-backend/pkg/validation"
)

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

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

// ===== DTOs =====

type TaskItem struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"lead_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"` // derived: may read "overdue"
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type PageTasks struct {
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	Total    int64      `json:"total"`
	Pages    int        `json:"pages"`
	Items    []TaskItem `json:"items"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// ListMine godoc
// @Summary      My tasks
// @Description  Tasks assigned to the authenticated agent. "overdue" is computed from due_date at read time, never stored.
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        page     query int    false "page"
// @Param        pageSize query int    false "pageSize"
// @Param        status   query string false "pending|in_progress|completed|overdue"
// @Success      200  {object}  PageTasks
// @Failure      401  {object}  models.ErrorResponse
// @Router       /tasks/mine [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	agentID := auth.MustUserID(c)
	page, size := parsePage(c)
	now := time.Now()

	filter := strings.TrimSpace(c.Query("status"))
	switch filter {
	case "", string(models.TaskPending), string(models.TaskInProgress),
		string(models.TaskCompleted), string(models.TaskOverdue):
	default:
		return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
	}

	q := h.db.Model(&models.Task{}).Where("assigned_to = ?", agentID)
	switch filter {
	case string(models.TaskOverdue):
		// Derived state: past due and not completed, whatever is stored.
		q = q.Where("due_date < ? AND status <> ?", now, models.TaskCompleted)
	case "":
	default:
		q = q.Where("status = ?", filter)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	var rows []models.Task
	if err := q.Order("due_date ASC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	items := make([]TaskItem, 0, len(rows))
	for _, t := range rows {
		items = append(items, TaskItem{
			ID:          t.ID,
			LeadID:      t.LeadID,
			Title:       t.Title,
			Description: t.Description,
			Status:      string(t.EffectiveStatus(now)),
			DueDate:     t.DueDate,
			CompletedAt: t.CompletedAt,
			CreatedAt:   t.CreatedAt,
		})
	}

	return c.JSON(PageTasks{
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    int(math.Ceil(float64(total) / float64(size))),
		Items:    items,
	})
}

// UpdateStatus godoc
// @Summary      Move a task through its lifecycle
// @Description  pending → in_progress → completed. Completed is terminal; any further change is rejected with 409.
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path string                   true "task id (uuid)"
// @Param        payload  body UpdateTaskStatusRequest  true "target status"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "task already completed"
// @Router       /tasks/{id}/status [post]
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	agentID := auth.MustUserID(c)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid task id")
	}

	var in UpdateTaskStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	target := models.TaskStatus(in.Status)

	var task models.Task
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			return err
		}
		if task.AssignedTo.String() != agentID {
			return fiber.ErrForbidden
		}
		if task.Status == models.TaskCompleted {
			return fiber.NewError(fiber.StatusConflict, "task already completed")
		}

		updates := map[string]any{"status": target}
		if target == models.TaskCompleted {
			now := time.Now()
			updates["completed_at"] = &now
		}
		return tx.Model(&task).Updates(updates).Error
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

	if err := h.db.First(&task, "id = ?", id).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(task)
}

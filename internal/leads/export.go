package leads

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"

	"github.com/aldoetobex/leadhub-backend/pkg/models"
)

const exportMax = 10000

// Export godoc
// @Summary      Export leads
// @Description  Writes the filtered lead list as an .xlsx workbook (same filters as the list endpoint)
// @Tags         leads
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200 {file} binary
// @Failure      401 {object} models.ErrorResponse
// @Router       /leads/export [get]
func (h *Handler) Export(c *fiber.Ctx) error {
	dbq, err := applyFilters(c, h.db.Model(&models.Lead{}))
	if err != nil {
		return err
	}

	var rows []models.Lead
	if err := dbq.Order("created_at DESC").Limit(exportMax).Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Leads"
	f.SetSheetName("Sheet1", sheet)

	header := []any{
		"ID", "Name", "Email", "Phone", "Industry", "Source", "Status",
		"Buyer Intent", "Priority", "Tags", "First Contact", "Last Contact", "Created",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fiber.ErrInternalServerError
	}

	fmtTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	for i, l := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{
			l.ID.String(), l.Name, l.Email, l.Phone, string(l.Industry),
			string(l.Source), string(l.Status), string(l.Intent), string(l.Priority),
			strings.Join(l.Tags, ", "),
			fmtTime(l.FirstContactAt), fmtTime(l.LastContactAt),
			l.CreatedAt.Format(time.RFC3339),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fiber.ErrInternalServerError
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fiber.ErrInternalServerError
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="leads-`+time.Now().Format("20060102-150405")+`.xlsx"`)
	return c.Send(buf.Bytes())
}

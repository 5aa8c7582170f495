package calls

import (
	"errors"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/aldoetobex/leadhub-backend/internal/auth"
	"github.com/aldoetobex/leadhub-backend/pkg/models"
)

// BlobStore is the object storage surface call recordings need. The
// production implementation is internal/storage's Supabase wrapper.
type BlobStore interface {
	MakeObjectKey(leadID, filename string) string
	Upload(key string, r io.Reader, contentType string, size int64) error
	SignedURL(key string, expiresInSeconds int) (string, error)
	Delete(key string) error
}

// UploadRecording godoc
// @Summary      Attach a recording to a call log
// @Description  The agent who made the call uploads the audio to object storage. A call log holds at most one recording; delete it first to replace it.
// @Tags         calls
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string true "call log id (uuid)"
// @Param        file  formData  file   true "audio file (mp3/wav/m4a, max 25MB)"
// @Success      201   {object}  map[string]any "key"
// @Failure      400   {object}  models.ErrorResponse
// @Failure      403   {object}  models.ErrorResponse
// @Router       /calls/{id}/recording [post]
func (h *Handler) UploadRecording(c *fiber.Ctx) error {
	agentID := auth.MustUserID(c)
	callID := c.Params("id")

	var entry models.CallLog
	if err := h.db.First(&entry, "id = ?", callID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	// Only the agent who made the call may attach audio.
	if entry.AgentID.String() != agentID {
		return fiber.ErrForbidden
	}
	if entry.RecordingURL != nil {
		return fiber.NewError(fiber.StatusConflict, "recording already attached")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required; use key: file")
	}
	if fh.Size <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty file")
	}
	if fh.Size > 25*1024*1024 {
		return fiber.NewError(fiber.StatusBadRequest, "max 25MB per recording")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
	}
	switch ct {
	case "audio/mpeg", "audio/wav", "audio/x-wav", "audio/mp4", "audio/m4a":
		// ok
	default:
		return fiber.NewError(fiber.StatusBadRequest, "only mp3/wav/m4a audio is allowed")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	defer f.Close()

	key := h.store.MakeObjectKey(entry.LeadID.String(), entry.ID.String()+filepath.Ext(fh.Filename))
	if err := h.store.Upload(key, f, ct, fh.Size); err != nil {
		return fiber.ErrInternalServerError
	}

	if err := h.db.Model(&entry).Update("recording_url", key).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
}

// DeleteRecording godoc
// @Summary      Remove a call recording
// @Description  Deletes the audio object and clears recording_url so a corrected file can be uploaded. Owner-only.
// @Tags         calls
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string true "call log id (uuid)"
// @Success      200  {object}  map[string]any
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /calls/{id}/recording [delete]
func (h *Handler) DeleteRecording(c *fiber.Ctx) error {
	agentID := auth.MustUserID(c)
	callID := c.Params("id")

	var entry models.CallLog
	if err := h.db.First(&entry, "id = ?", callID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if entry.AgentID.String() != agentID {
		return fiber.ErrForbidden
	}
	if entry.RecordingURL == nil {
		return fiber.NewError(fiber.StatusNotFound, "no recording attached")
	}

	// Storage delete is idempotent; clear the pointer even if the object was
	// already gone.
	if err := h.store.Delete(*entry.RecordingURL); err != nil {
		return fiber.ErrInternalServerError
	}
	if err := h.db.Model(&entry).Update("recording_url", nil).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"id": entry.ID, "deleted": true})
}

// RecordingURL godoc
// @Summary      Get signed recording URL
// @Description  Returns a short-lived signed URL for the call's audio
// @Tags         calls
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string true "call log id (uuid)"
// @Success      200  {object}  map[string]any "url, expires_in, now"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /calls/{id}/recording-url [get]
func (h *Handler) RecordingURL(c *fiber.Ctx) error {
	callID := c.Params("id")

	var entry models.CallLog
	if err := h.db.First(&entry, "id = ?", callID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if entry.RecordingURL == nil {
		return fiber.NewError(fiber.StatusNotFound, "no recording attached")
	}

	url, err := h.store.SignedURL(*entry.RecordingURL, 60) // seconds
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"url": url, "expires_in": 60, "now": time.Now().UTC()})
}

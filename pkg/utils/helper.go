package utils

import (
	"context"
	"time"

	"github.com/aldoetobex/leadhub-backend/pkg/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogLeadHistory inserts an audit record into lead_histories.
// Used to track status changes and important actions on a lead.
// Errors are ignored on purpose (best-effort logging).
func LogLeadHistory(
	ctx context.Context,
	db *gorm.DB,
	leadID, actorID uuid.UUID,
	action string,
	oldS, newS models.LeadStatus,
	reason string,
) {
	_ = db.WithContext(ctx).Create(&models.LeadHistory{
		LeadID:    leadID,
		ActorID:   actorID,
		Action:    action,
		OldStatus: oldS,
		NewStatus: newS,
		Reason:    reason,
		CreatedAt: time.Now(),
	}).Error
}

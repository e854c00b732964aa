package services

import (
	"encoding/json"
	"strings"

	"quicksell/internal/logger"
	"quicksell/internal/models"

	"gorm.io/gorm"
)

// Audit actions.
const (
	AuditCreateListing  = "CREATE_LISTING"
	AuditUpdateListing  = "UPDATE_LISTING"
	AuditDeleteListing  = "DELETE_LISTING"
	AuditAddPhoto       = "ADD_PHOTO"
	AuditCreateCategory = "CREATE_CATEGORY"
	AuditDeleteCategory = "DELETE_CATEGORY"
	AuditImportTree     = "IMPORT_CATEGORIES"
	AuditRebuildTree    = "REBUILD_CATEGORIES"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// redactedKeys are change fields whose values never reach the audit table.
var redactedKeys = []string{"password", "token", "secret"}

// redact copies changes, masking credential-like fields.
func redact(changes map[string]any) map[string]any {
	out := make(map[string]any, len(changes))
	for k, v := range changes {
		lower := strings.ToLower(k)
		masked := false
		for _, key := range redactedKeys {
			if strings.Contains(lower, key) {
				masked = true
				break
			}
		}
		if masked {
			out[k] = "[redacted]"
		} else {
			out[k] = v
		}
	}
	return out
}

// Log records an audit event. Errors are logged and swallowed; a failed
// audit write never fails the listing or catalog operation it describes.
func (s *auditService) Log(userID uint, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(redact(changes))
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// AlertTierConfig is one expiry-proximity threshold.
type AlertTierConfig struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TierName         string             `gorm:"column:tier_name;not null"`
	DaysBeforeExpiry int                `gorm:"column:days_before_expiry;not null"`
	Severity         enums.TierSeverity `gorm:"column:severity;type:text;not null"`
	NotifyRoles      pq.StringArray     `gorm:"column:notify_roles;type:text[];not null"`
	ColorCode        string             `gorm:"column:color_code;not null"`
	SortOrder        int                `gorm:"column:sort_order;not null"`
	Active           bool               `gorm:"column:active;not null"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (AlertTierConfig) TableName() string { return "alert_tier_configs" }

// Roles returns the notify roles as typed values.
func (c AlertTierConfig) Roles() []enums.Role {
	roles := make([]enums.Role, 0, len(c.NotifyRoles))
	for _, raw := range c.NotifyRoles {
		roles = append(roles, enums.Role(raw))
	}
	return roles
}

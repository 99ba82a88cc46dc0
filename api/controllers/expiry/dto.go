package expiry

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

type tierResponse struct {
	ID               uuid.UUID          `json:"id"`
	TierName         string             `json:"tier_name"`
	DaysBeforeExpiry int                `json:"days_before_expiry"`
	Severity         enums.TierSeverity `json:"severity"`
	NotifyRoles      []string           `json:"notify_roles"`
	ColorCode        string             `json:"color_code"`
	SortOrder        int                `json:"sort_order"`
	Active           bool               `json:"active"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func tierResponseFromModel(m *models.AlertTierConfig) tierResponse {
	roles := []string(m.NotifyRoles)
	if roles == nil {
		roles = []string{}
	}
	return tierResponse{
		ID:               m.ID,
		TierName:         m.TierName,
		DaysBeforeExpiry: m.DaysBeforeExpiry,
		Severity:         m.Severity,
		NotifyRoles:      roles,
		ColorCode:        m.ColorCode,
		SortOrder:        m.SortOrder,
		Active:           m.Active,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

type alertResponse struct {
	ID               uuid.UUID            `json:"id"`
	ItemType         enums.ExpiryItemType `json:"item_type"`
	ItemID           uuid.UUID            `json:"item_id"`
	ProductID        uuid.UUID            `json:"product_id"`
	BatchID          *uuid.UUID           `json:"batch_id,omitempty"`
	BatchNumber      *string              `json:"batch_number,omitempty"`
	ConfigID         uuid.UUID            `json:"config_id"`
	CheckRunID       *uuid.UUID           `json:"check_run_id,omitempty"`
	Severity         enums.TierSeverity   `json:"severity"`
	AlertDate        string               `json:"alert_date"`
	ExpiryDate       string               `json:"expiry_date"`
	DaysUntilExpiry  int                  `json:"days_until_expiry"`
	QuantityAffected int                  `json:"quantity_affected"`
	Status           enums.AlertStatus    `json:"status"`
	AcknowledgedBy   *string              `json:"acknowledged_by,omitempty"`
	AcknowledgedAt   *time.Time           `json:"acknowledged_at,omitempty"`
	ResolvedBy       *string              `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time           `json:"resolved_at,omitempty"`
	Notes            *string              `json:"notes,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

func alertResponseFromModel(m *models.ExpiryAlert) alertResponse {
	return alertResponse{
		ID:               m.ID,
		ItemType:         m.ItemType,
		ItemID:           m.ItemID,
		ProductID:        m.ProductID,
		BatchID:          m.BatchID,
		BatchNumber:      m.BatchNumber,
		ConfigID:         m.ConfigID,
		CheckRunID:       m.CheckRunID,
		Severity:         m.Severity,
		AlertDate:        m.AlertDate.UTC().Format(dateLayout),
		ExpiryDate:       m.ExpiryDate.UTC().Format(dateLayout),
		DaysUntilExpiry:  m.DaysUntilExpiry,
		QuantityAffected: m.QuantityAffected,
		Status:           m.Status,
		AcknowledgedBy:   m.AcknowledgedBy,
		AcknowledgedAt:   m.AcknowledgedAt,
		ResolvedBy:       m.ResolvedBy,
		ResolvedAt:       m.ResolvedAt,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
	}
}

type runResponse struct {
	ID                uuid.UUID            `json:"id"`
	CheckDate         string               `json:"check_date"`
	StartTime         time.Time            `json:"start_time"`
	EndTime           *time.Time           `json:"end_time,omitempty"`
	Status            enums.CheckRunStatus `json:"status"`
	Trigger           enums.CheckTrigger   `json:"trigger"`
	TriggeredBy       string               `json:"triggered_by"`
	ItemsChecked      int                  `json:"items_checked"`
	AlertsGenerated   int                  `json:"alerts_generated"`
	DuplicatesSkipped int                  `json:"duplicates_skipped"`
	ItemErrors        int                  `json:"item_errors"`
	ExecutionTimeMs   *int64               `json:"execution_time_ms,omitempty"`
	ErrorMessage      *string              `json:"error_message,omitempty"`
}

func runResponseFromModel(m *models.CheckRun) runResponse {
	return runResponse{
		ID:                m.ID,
		CheckDate:         m.CheckDate.UTC().Format(dateLayout),
		StartTime:         m.StartTime,
		EndTime:           m.EndTime,
		Status:            m.Status,
		Trigger:           m.Trigger,
		TriggeredBy:       m.TriggeredBy,
		ItemsChecked:      m.ItemsChecked,
		AlertsGenerated:   m.AlertsGenerated,
		DuplicatesSkipped: m.DuplicatesSkipped,
		ItemErrors:        m.ItemErrors,
		ExecutionTimeMs:   m.ExecutionTimeMs,
		ErrorMessage:      m.ErrorMessage,
	}
}

type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

package quarantine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

type createCaseRequest struct {
	BatchID string `json:"batch_id" validate:"required,uuid"`
	Reason  string `json:"reason" validate:"required,notblank,max=500"`
}

type actionRequest struct {
	Action              string `json:"action" validate:"required"`
	Comments            string `json:"comments" validate:"max=2000"`
	DisposalMethod      string `json:"disposal_method" validate:"max=200"`
	DisposalCertificate string `json:"disposal_certificate" validate:"max=200"`
	ReturnReference     string `json:"return_reference" validate:"max=200"`
}

type caseResponse struct {
	ID                  uuid.UUID                `json:"id"`
	CaseNumber          string                   `json:"case_number"`
	BatchID             uuid.UUID                `json:"batch_id"`
	ProductID           uuid.UUID                `json:"product_id"`
	QuantityQuarantined int                      `json:"quantity_quarantined"`
	Reason              string                   `json:"reason"`
	QuarantineDate      time.Time                `json:"quarantine_date"`
	QuarantinedBy       string                   `json:"quarantined_by"`
	Status              enums.QuarantineStatus   `json:"status"`
	AllowedActions      []enums.QuarantineAction `json:"allowed_actions"`
	ReviewedBy          *string                  `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time               `json:"reviewed_at,omitempty"`
	ApprovedBy          *string                  `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time               `json:"approved_at,omitempty"`
	DisposalMethod      *string                  `json:"disposal_method,omitempty"`
	DisposalCertificate *string                  `json:"disposal_certificate,omitempty"`
	ReturnReference     *string                  `json:"return_reference,omitempty"`
	ClosedAt            *time.Time               `json:"closed_at,omitempty"`
	EstimatedLoss       decimal.Decimal          `json:"estimated_loss"`
	Version             int                      `json:"version"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

func caseResponseFromModel(m *models.QuarantineCase) caseResponse {
	return caseResponse{
		ID:                  m.ID,
		CaseNumber:          m.CaseNumber,
		BatchID:             m.BatchID,
		ProductID:           m.ProductID,
		QuantityQuarantined: m.QuantityQuarantined,
		Reason:              m.Reason,
		QuarantineDate:      m.QuarantineDate,
		QuarantinedBy:       m.QuarantinedBy,
		Status:              m.Status,
		AllowedActions:      enums.AllowedQuarantineActions(m.Status),
		ReviewedBy:          m.ReviewedBy,
		ReviewedAt:          m.ReviewedAt,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		DisposalMethod:      m.DisposalMethod,
		DisposalCertificate: m.DisposalCertificate,
		ReturnReference:     m.ReturnReference,
		ClosedAt:            m.ClosedAt,
		EstimatedLoss:       m.EstimatedLoss,
		Version:             m.Version,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

type historyEntry struct {
	ID             uuid.UUID               `json:"id"`
	Action         enums.QuarantineAction  `json:"action"`
	PerformedBy    string                  `json:"performed_by"`
	PerformedAt    time.Time               `json:"performed_at"`
	PreviousStatus *enums.QuarantineStatus `json:"previous_status,omitempty"`
	NewStatus      enums.QuarantineStatus  `json:"new_status"`
	Comments       *string                 `json:"comments,omitempty"`
}

func historyEntryFromModel(m *models.QuarantineActionLog) historyEntry {
	return historyEntry{
		ID:             m.ID,
		Action:         m.Action,
		PerformedBy:    m.PerformedBy,
		PerformedAt:    m.PerformedAt,
		PreviousStatus: m.PreviousStatus,
		NewStatus:      m.NewStatus,
		Comments:       m.Comments,
	}
}

type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

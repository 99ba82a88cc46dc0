package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// QuarantineCase tracks isolated stock from discovery to disposal or return.
type QuarantineCase struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CaseNumber          string                 `gorm:"column:case_number;not null"`
	BatchID             uuid.UUID              `gorm:"column:batch_id;type:uuid;not null"`
	ProductID           uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	QuantityQuarantined int                    `gorm:"column:quantity_quarantined;not null"`
	Reason              string                 `gorm:"column:reason;not null"`
	QuarantineDate      time.Time              `gorm:"column:quarantine_date;not null"`
	QuarantinedBy       string                 `gorm:"column:quarantined_by;not null"`
	Status              enums.QuarantineStatus `gorm:"column:status;type:text;not null"`
	ReviewedBy          *string                `gorm:"column:reviewed_by"`
	ReviewedAt          *time.Time             `gorm:"column:reviewed_at"`
	ApprovedBy          *string                `gorm:"column:approved_by"`
	ApprovedAt          *time.Time             `gorm:"column:approved_at"`
	DisposalMethod      *string                `gorm:"column:disposal_method"`
	DisposalCertificate *string                `gorm:"column:disposal_certificate"`
	ReturnReference     *string                `gorm:"column:return_reference"`
	ClosedAt            *time.Time             `gorm:"column:closed_at"`
	EstimatedLoss       decimal.Decimal        `gorm:"column:estimated_loss;type:numeric(14,2);not null"`
	Version             int                    `gorm:"column:version;not null"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (QuarantineCase) TableName() string { return "quarantine_cases" }

// QuarantineActionLog is an append-only audit row for one case transition.
type QuarantineActionLog struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID         uuid.UUID               `gorm:"column:case_id;type:uuid;not null"`
	Action         enums.QuarantineAction  `gorm:"column:action;type:text;not null"`
	PerformedBy    string                  `gorm:"column:performed_by;not null"`
	PerformedAt    time.Time               `gorm:"column:performed_at;not null"`
	PreviousStatus *enums.QuarantineStatus `gorm:"column:previous_status;type:text"`
	NewStatus      enums.QuarantineStatus  `gorm:"column:new_status;type:text;not null"`
	Comments       *string                 `gorm:"column:comments"`
}

func (QuarantineActionLog) TableName() string { return "quarantine_action_logs" }

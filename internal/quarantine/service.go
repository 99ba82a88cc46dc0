package quarantine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/internal/notifications"
	dbpkg "github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/metrics"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

const (
	// SystemActor performs scheduled quarantines.
	SystemActor = "system"
	// AutoQuarantineReason is recorded on cases opened by the expiry sweep.
	AutoQuarantineReason = "Auto-quarantine: Expired"

	maxReasonLength = 500
	openCaseIndex   = "ux_quarantine_cases_open_batch"
	// sqlite reports the indexed column instead of the index name
	openCaseColumn = "quarantine_cases.batch_id"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type batchStore interface {
	LockBatch(tx *gorm.DB, id uuid.UUID) (*models.Batch, error)
	FindProduct(tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	SetStatus(tx *gorm.DB, id uuid.UUID, status enums.BatchStatus) error
	Retire(tx *gorm.DB, id uuid.UUID) error
	ListExpiredActive(ctx context.Context, day time.Time) ([]models.Batch, error)
}

type alertResolver interface {
	ResolveOpenForItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, by, note string) (int64, error)
}

// Service manages quarantine cases and their audit trail.
type Service interface {
	CreateCase(ctx context.Context, input CreateCaseInput) (*models.QuarantineCase, error)
	ProcessAction(ctx context.Context, input ActionInput) (*models.QuarantineCase, error)
	AutoQuarantineExpired(ctx context.Context, checkDate time.Time) (AutoQuarantineResult, error)
	ListCases(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.QuarantineCase], error)
	GetCase(ctx context.Context, id uuid.UUID) (*models.QuarantineCase, error)
	GetCaseHistory(ctx context.Context, id uuid.UUID) ([]models.QuarantineActionLog, error)
}

// CreateCaseInput opens a case for one batch.
type CreateCaseInput struct {
	BatchID     uuid.UUID
	Reason      string
	PerformedBy string
	ActorRole   enums.Role
}

// ActionInput applies one workflow action to a case.
type ActionInput struct {
	CaseID              uuid.UUID
	Action              enums.QuarantineAction
	PerformedBy         string
	ActorRole           enums.Role
	Comments            string
	DisposalMethod      string
	DisposalCertificate string
	ReturnReference     string
}

// AutoQuarantineResult counts the outcome of one auto-quarantine pass.
type AutoQuarantineResult struct {
	Candidates  int         `json:"candidates"`
	Quarantined int         `json:"quarantined"`
	Failed      int         `json:"failed"`
	CaseIDs     []uuid.UUID `json:"case_ids"`
}

// ServiceParams wire the case manager.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Batches batchStore
	Alerts  alertResolver
	Gateway notifications.Gateway
	Metrics *metrics.ExpiryMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	batches batchStore
	alerts  alertResolver
	gateway notifications.Gateway
	metrics *metrics.ExpiryMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the quarantine case manager.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("quarantine repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Batches == nil:
		return nil, fmt.Errorf("batch store required")
	case params.Alerts == nil:
		return nil, fmt.Errorf("alert resolver required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("notification gateway required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		batches: params.Batches,
		alerts:  params.Alerts,
		gateway: params.Gateway,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) CreateCase(ctx context.Context, input CreateCaseInput) (*models.QuarantineCase, error) {
	reason := strings.TrimSpace(input.Reason)
	by := strings.TrimSpace(input.PerformedBy)
	details := map[string]string{}
	if input.BatchID == uuid.Nil {
		details["batch_id"] = "is required"
	}
	if reason == "" {
		details["reason"] = "is required"
	} else if len(reason) > maxReasonLength {
		details["reason"] = fmt.Sprintf("must be at most %d characters", maxReasonLength)
	}
	if by == "" {
		details["performed_by"] = "is required"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid quarantine request").WithDetails(details)
	}

	var created *models.QuarantineCase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := s.batches.LockBatch(tx, input.BatchID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
		}
		if batch == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
		}
		if err := quarantinable(batch); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		open, err := repo.FindOpenByBatch(ctx, batch.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open case")
		}
		if open != nil {
			return openCaseExists(batch.ID, open)
		}

		product, err := s.batches.FindProduct(tx, batch.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		now := s.now()
		c := &models.QuarantineCase{
			ID:                  uuid.New(),
			CaseNumber:          caseNumber(now),
			BatchID:             batch.ID,
			ProductID:           batch.ProductID,
			QuantityQuarantined: batch.Quantity,
			Reason:              reason,
			QuarantineDate:      now,
			QuarantinedBy:       by,
			Status:              enums.QuarantineStatusPendingReview,
			EstimatedLoss:       EstimateLoss(batch, product),
			Version:             1,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := repo.CreateCase(ctx, c); err != nil {
			if dbpkg.IsUniqueViolation(err, openCaseIndex) || dbpkg.IsUniqueViolation(err, openCaseColumn) {
				return openCaseExists(batch.ID, nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quarantine case")
		}
		if err := s.batches.SetStatus(tx, batch.ID, enums.BatchStatusQuarantined); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quarantine batch")
		}
		if err := repo.AppendLog(ctx, &models.QuarantineActionLog{
			CaseID:      c.ID,
			Action:      enums.QuarantineActionQuarantine,
			PerformedBy: by,
			PerformedAt: now,
			NewStatus:   c.Status,
			Comments:    &reason,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write quarantine audit")
		}
		if _, err := s.alerts.ResolveOpenForItem(ctx, tx, batch.ID, by, "Batch quarantined under "+c.CaseNumber); err != nil {
			return err
		}
		if err := s.gateway.Notify(ctx, tx, s.caseNotification(c, enums.NotificationQuarantineOpened, input.ActorRole, by, batch)); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(enums.QuarantineActionQuarantine))
	s.logg.Info(s.logg.WithFields(s.logg.WithCaseID(ctx, created.ID.String()), map[string]any{
		"case_number":    created.CaseNumber,
		"batch_id":       created.BatchID.String(),
		"quantity":       created.QuantityQuarantined,
		"estimated_loss": created.EstimatedLoss.StringFixed(2),
		"actor":          by,
	}), "quarantine case opened")
	return created, nil
}

func quarantinable(batch *models.Batch) error {
	reject := func(msg string) error {
		return pkgerrors.New(pkgerrors.CodeInvalidState, msg).WithDetails(map[string]any{
			"batch_id":     batch.ID.String(),
			"batch_status": batch.Status,
			"quantity":     batch.Quantity,
		})
	}
	switch {
	case batch.Status == enums.BatchStatusQuarantined:
		return reject("batch is already quarantined")
	case batch.Status == enums.BatchStatusDepleted || batch.Quantity <= 0:
		return reject("batch has no stock to quarantine")
	}
	return nil
}

func openCaseExists(batchID uuid.UUID, open *models.QuarantineCase) error {
	details := map[string]any{"batch_id": batchID.String()}
	if open != nil {
		details["case_id"] = open.ID.String()
		details["case_number"] = open.CaseNumber
		details["case_status"] = open.Status
	}
	return pkgerrors.New(pkgerrors.CodeInvalidState, "batch already has an open quarantine case").WithDetails(details)
}

// EstimateLoss values the quarantined stock at the batch unit cost, falling
// back to the product unit cost, or zero when neither is known.
func EstimateLoss(batch *models.Batch, product *models.Product) decimal.Decimal {
	cost := decimal.Zero
	switch {
	case batch.UnitCost.Valid:
		cost = batch.UnitCost.Decimal
	case product != nil && product.UnitCost.Valid:
		cost = product.UnitCost.Decimal
	}
	return cost.Mul(decimal.NewFromInt(int64(batch.Quantity))).Round(2)
}

func caseNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("QC-%s-%s", now.Format("20060102"), suffix)
}

func (s *service) ProcessAction(ctx context.Context, input ActionInput) (*models.QuarantineCase, error) {
	by := strings.TrimSpace(input.PerformedBy)
	if input.CaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "case id required")
	}
	if by == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "performed_by required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid quarantine action").
			WithDetails(map[string]any{"action": input.Action})
	}

	var (
		updated  *models.QuarantineCase
		previous enums.QuarantineStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := repo.LockCase(ctx, input.CaseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quarantine case")
		}
		if c == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "quarantine case not found")
		}
		next, ok := enums.NextQuarantineStatus(c.Status, input.Action)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeIllegalTransition, fmt.Sprintf("%s is not allowed from %s", input.Action, c.Status)).
				WithDetails(map[string]any{
					"case_id":         c.ID.String(),
					"current_status":  c.Status,
					"action":          input.Action,
					"allowed_actions": enums.AllowedQuarantineActions(c.Status),
				})
		}
		if err := requirePayload(input); err != nil {
			return err
		}

		now := s.now()
		expected := c.Version
		previous = c.Status
		applyAction(c, input, by, now)
		c.Status = next
		c.Version = expected + 1
		c.UpdatedAt = now

		ok, err = repo.UpdateVersioned(ctx, c, expected)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quarantine case")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "quarantine case was modified concurrently").
				WithDetails(map[string]any{"case_id": c.ID.String(), "version": expected})
		}
		if next.IsTerminal() {
			if err := s.batches.Retire(tx, c.BatchID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retire batch")
			}
		}

		entry := &models.QuarantineActionLog{
			CaseID:         c.ID,
			Action:         input.Action,
			PerformedBy:    by,
			PerformedAt:    now,
			PreviousStatus: &previous,
			NewStatus:      next,
		}
		if comments := strings.TrimSpace(input.Comments); comments != "" {
			entry.Comments = &comments
		}
		if err := repo.AppendLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write quarantine audit")
		}
		if err := s.gateway.Notify(ctx, tx, s.caseNotification(c, enums.NotificationQuarantineTransitioned, input.ActorRole, by, nil)); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(input.Action))
	s.logg.Info(s.logg.WithFields(s.logg.WithCaseID(ctx, updated.ID.String()), map[string]any{
		"action":          input.Action,
		"previous_status": previous,
		"status":          updated.Status,
		"actor":           by,
	}), "quarantine case transitioned")
	return updated, nil
}

func requirePayload(input ActionInput) error {
	switch input.Action {
	case enums.QuarantineActionDispose:
		if strings.TrimSpace(input.DisposalMethod) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "disposal_method is required to dispose").
				WithDetails(map[string]string{"disposal_method": "is required"})
		}
	case enums.QuarantineActionReturn:
		if strings.TrimSpace(input.ReturnReference) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "return_reference is required to return").
				WithDetails(map[string]string{"return_reference": "is required"})
		}
	}
	return nil
}

func applyAction(c *models.QuarantineCase, input ActionInput, by string, now time.Time) {
	switch input.Action {
	case enums.QuarantineActionReview:
		c.ReviewedBy = &by
		c.ReviewedAt = &now
	case enums.QuarantineActionApproveDisposal, enums.QuarantineActionApproveReturn:
		c.ApprovedBy = &by
		c.ApprovedAt = &now
	case enums.QuarantineActionDispose:
		method := strings.TrimSpace(input.DisposalMethod)
		c.DisposalMethod = &method
		if cert := strings.TrimSpace(input.DisposalCertificate); cert != "" {
			c.DisposalCertificate = &cert
		}
		c.ClosedAt = &now
	case enums.QuarantineActionReturn:
		ref := strings.TrimSpace(input.ReturnReference)
		c.ReturnReference = &ref
		c.ClosedAt = &now
	}
}

// AutoQuarantineExpired opens a case for every ACTIVE batch that expired
// before checkDate. Failures are logged per batch and do not stop the pass.
func (s *service) AutoQuarantineExpired(ctx context.Context, checkDate time.Time) (AutoQuarantineResult, error) {
	day := checkDate.UTC().Truncate(24 * time.Hour)
	expired, err := s.batches.ListExpiredActive(ctx, day)
	if err != nil {
		return AutoQuarantineResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired batches")
	}

	result := AutoQuarantineResult{Candidates: len(expired), CaseIDs: []uuid.UUID{}}
	for _, batch := range expired {
		c, err := s.CreateCase(ctx, CreateCaseInput{
			BatchID:     batch.ID,
			Reason:      AutoQuarantineReason,
			PerformedBy: SystemActor,
			ActorRole:   enums.RoleSystem,
		})
		if err != nil {
			result.Failed++
			s.logg.Error(s.logg.WithField(ctx, "batch_id", batch.ID.String()), "auto-quarantine failed", err)
			continue
		}
		result.Quarantined++
		result.CaseIDs = append(result.CaseIDs, c.ID)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"check_date":  day.Format(time.DateOnly),
		"candidates":  result.Candidates,
		"quarantined": result.Quarantined,
		"failed":      result.Failed,
	}), "auto-quarantine pass completed")
	return result, nil
}

func (s *service) ListCases(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.QuarantineCase], error) {
	params = params.Normalize()
	if filter.Status != "" && !filter.Status.IsValid() {
		return pagination.Page[models.QuarantineCase]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid case status filter")
	}
	rows, total, err := s.repo.ListCases(ctx, filter, params)
	if err != nil {
		return pagination.Page[models.QuarantineCase]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quarantine cases")
	}
	return pagination.NewPage(rows, params, total), nil
}

func (s *service) GetCase(ctx context.Context, id uuid.UUID) (*models.QuarantineCase, error) {
	c, err := s.repo.FindCase(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quarantine case")
	}
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quarantine case not found")
	}
	return c, nil
}

func (s *service) GetCaseHistory(ctx context.Context, id uuid.UUID) ([]models.QuarantineActionLog, error) {
	if _, err := s.GetCase(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListLogs(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quarantine history")
	}
	return rows, nil
}

var notifyRolesByStatus = map[enums.QuarantineStatus][]enums.Role{
	enums.QuarantineStatusPendingReview:       {enums.RolePharmacist, enums.RoleInventoryManager},
	enums.QuarantineStatusUnderReview:         {enums.RolePharmacist},
	enums.QuarantineStatusApprovedForDisposal: {enums.RoleInventoryManager},
	enums.QuarantineStatusApprovedForReturn:   {enums.RoleInventoryManager, enums.RoleProcurement},
	enums.QuarantineStatusDisposed:            {enums.RoleAdmin, enums.RoleInventoryManager},
	enums.QuarantineStatusReturned:            {enums.RoleAdmin, enums.RoleInventoryManager, enums.RoleProcurement},
}

func (s *service) caseNotification(c *models.QuarantineCase, kind enums.NotificationEventType, role enums.Role, by string, batch *models.Batch) notifications.Notification {
	data := map[string]any{
		"case_number":    c.CaseNumber,
		"batch_id":       c.BatchID.String(),
		"product_id":     c.ProductID.String(),
		"status":         c.Status,
		"quantity":       c.QuantityQuarantined,
		"estimated_loss": c.EstimatedLoss.StringFixed(2),
	}
	if batch != nil {
		data["batch_number"] = batch.BatchNumber
		data["expiry_date"] = batch.ExpiryDate.Format(time.DateOnly)
	}
	title := fmt.Sprintf("Quarantine %s: %s", c.CaseNumber, strings.ReplaceAll(strings.ToLower(string(c.Status)), "_", " "))
	return notifications.Notification{
		Type:          kind,
		Roles:         notifyRolesByStatus[c.Status],
		AggregateType: enums.AggregateQuarantineCase,
		AggregateID:   c.ID,
		Title:         title,
		Message:       c.Reason,
		Data:          data,
		Actor:         &outbox.ActorRef{Subject: by, Role: string(role)},
	}
}

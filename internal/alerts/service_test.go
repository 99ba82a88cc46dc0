package alerts

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/internal/expiry"
	"github.com/angelmondragon/pharmacore-backend/internal/testutil"
	"github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

var checkDate = time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC)

type fixture struct {
	client *db.Client
	svc    Service
	tier   models.AlertTierConfig
	batch  models.Batch
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := testutil.NewSQLiteDB(t)
	svc, err := NewService(NewRepository(client.DB()), client, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)

	product := testutil.SeedProduct(t, client)
	return fixture{
		client: client,
		svc:    svc,
		tier:   testutil.SeedTier(t, client, "Critical", 7, 1, enums.TierSeverityCritical, enums.RolePharmacist),
		batch:  testutil.SeedBatch(t, client, product.ID, 12, testutil.Date(2026, 3, 9)),
	}
}

func (f fixture) candidate() expiry.Candidate {
	return expiry.Candidate{
		Item:            expiry.BatchItem(f.batch, "Amoxicillin 500mg"),
		Tier:            f.tier,
		DaysUntilExpiry: 5,
	}
}

func TestRecordCandidateDeduplicatesOpenAlerts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, created, err := f.svc.RecordCandidate(ctx, nil, checkDate, f.candidate())
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, enums.AlertStatusPending, first.Status)
	assert.Equal(t, enums.ExpiryItemBatch, first.ItemType)
	assert.Equal(t, 12, first.QuantityAffected)
	assert.Equal(t, enums.TierSeverityCritical, first.Severity)
	assert.True(t, first.AlertDate.Equal(testutil.Date(2026, 3, 4)))
	require.NotNil(t, first.BatchNumber)
	assert.Equal(t, f.batch.BatchNumber, *first.BatchNumber)

	again, created, err := f.svc.RecordCandidate(ctx, nil, checkDate.AddDate(0, 0, 1), f.candidate())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	_, err = f.svc.Acknowledge(ctx, first.ID, "pharm-1", "")
	require.NoError(t, err)
	_, created, err = f.svc.RecordCandidate(ctx, nil, checkDate, f.candidate())
	require.NoError(t, err)
	assert.False(t, created, "acknowledged alerts are still open")

	_, err = f.svc.Resolve(ctx, first.ID, "pharm-1", "moved to front shelf")
	require.NoError(t, err)
	fresh, created, err := f.svc.RecordCandidate(ctx, nil, checkDate, f.candidate())
	require.NoError(t, err)
	assert.True(t, created, "a resolved pair may raise a new alert")
	assert.NotEqual(t, first.ID, fresh.ID)

	page, err := f.svc.List(ctx, ListFilter{ItemID: &f.batch.ID}, pagination.Params{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}

// racingRepo hides the open alert on the first lookup to simulate a
// concurrent writer inserting between the check and the insert.
type racingRepo struct {
	Repository
	hidden *bool
}

func (r racingRepo) WithTx(tx *gorm.DB) Repository {
	return racingRepo{Repository: r.Repository.WithTx(tx), hidden: r.hidden}
}

func (r racingRepo) FindOpen(ctx context.Context, itemID, configID uuid.UUID) (*models.ExpiryAlert, error) {
	if !*r.hidden {
		*r.hidden = true
		return nil, nil
	}
	return r.Repository.FindOpen(ctx, itemID, configID)
}

func TestRecordCandidateTreatsInsertRaceAsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	winner, created, err := f.svc.RecordCandidate(ctx, nil, checkDate, f.candidate())
	require.NoError(t, err)
	require.True(t, created)

	hidden := false
	racing, err := NewService(racingRepo{Repository: NewRepository(f.client.DB()), hidden: &hidden}, f.client, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)

	got, created, err := racing.RecordCandidate(ctx, nil, checkDate, f.candidate())
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, got)
	assert.Equal(t, winner.ID, got.ID)
}

func TestAcknowledgeAndResolveFollowStatusTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alert, _, err := f.svc.RecordCandidate(ctx, nil, checkDate, f.candidate())
	require.NoError(t, err)

	n, err := f.svc.MarkSent(ctx, []uuid.UUID{alert.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	acked, err := f.svc.Acknowledge(ctx, alert.ID, "pharm-1", "checked shelf")
	require.NoError(t, err)
	assert.Equal(t, enums.AlertStatusAcknowledged, acked.Status)
	require.NotNil(t, acked.AcknowledgedBy)
	assert.Equal(t, "pharm-1", *acked.AcknowledgedBy)
	require.NotNil(t, acked.Notes)

	_, err = f.svc.Acknowledge(ctx, alert.ID, "pharm-2", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, enums.AlertStatusAcknowledged, details["current_status"])

	resolved, err := f.svc.Resolve(ctx, alert.ID, "pharm-2", "")
	require.NoError(t, err)
	assert.Equal(t, enums.AlertStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = f.svc.Resolve(ctx, alert.ID, "pharm-2", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
	_, err = f.svc.Acknowledge(ctx, alert.ID, "pharm-2", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	n, err = f.svc.MarkSent(ctx, []uuid.UUID{alert.ID})
	require.NoError(t, err)
	assert.Zero(t, n, "only PENDING alerts move to SENT")
}

func TestTransitionsRejectUnknownAlertAndMissingActor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Acknowledge(ctx, uuid.New(), "pharm-1", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Resolve(ctx, uuid.New(), "pharm-1", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Resolve(ctx, uuid.New(), "  ", "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestResolveOpenForItemRunsInCallerTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alert, _, err := f.svc.RecordCandidate(ctx, nil, checkDate, f.candidate())
	require.NoError(t, err)

	var resolved int64
	err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := f.svc.ResolveOpenForItem(ctx, tx, f.batch.ID, "system", "batch quarantined")
		resolved = n
		return err
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resolved)

	got, err := f.svc.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AlertStatusResolved, got.Status)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "batch quarantined", *got.Notes)
}

func TestListFiltersAndValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	warning := testutil.SeedTier(t, f.client, "Warning", 30, 2, enums.TierSeverityWarning)
	_, _, err := f.svc.RecordCandidate(ctx, nil, checkDate, f.candidate())
	require.NoError(t, err)
	other := f.candidate()
	other.Tier = warning
	other.DaysUntilExpiry = 20
	_, _, err = f.svc.RecordCandidate(ctx, nil, checkDate, other)
	require.NoError(t, err)

	page, err := f.svc.List(ctx, ListFilter{Severity: enums.TierSeverityCritical}, pagination.Params{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 5, page.Items[0].DaysUntilExpiry)

	page, err = f.svc.List(ctx, ListFilter{Status: enums.AlertStatusPending}, pagination.Params{Page: 1, Size: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)

	_, err = f.svc.List(ctx, ListFilter{Status: "OPEN"}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

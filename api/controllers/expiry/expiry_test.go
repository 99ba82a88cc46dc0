package expiry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/api/middleware"
	"github.com/angelmondragon/pharmacore-backend/internal/alertconfig"
	"github.com/angelmondragon/pharmacore-backend/internal/alerts"
	"github.com/angelmondragon/pharmacore-backend/internal/checkruns"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withStaff(req *http.Request, userID string, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID)
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func withParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error: %v body=%s", err, resp.Body.String())
	}
	return env
}

type stubRunService struct {
	runFn  func(ctx context.Context, trigger enums.CheckTrigger, by string) (*checkruns.Result, error)
	listFn func(ctx context.Context, params pagination.Params) (pagination.Page[models.CheckRun], error)
	getFn  func(ctx context.Context, id uuid.UUID) (*models.CheckRun, error)
}

func (s *stubRunService) RunExpiryCheck(ctx context.Context, trigger enums.CheckTrigger, by string) (*checkruns.Result, error) {
	return s.runFn(ctx, trigger, by)
}

func (s *stubRunService) ListRuns(ctx context.Context, params pagination.Params) (pagination.Page[models.CheckRun], error) {
	return s.listFn(ctx, params)
}

func (s *stubRunService) GetRun(ctx context.Context, id uuid.UUID) (*models.CheckRun, error) {
	return s.getFn(ctx, id)
}

func TestRunCheckUsesManualTriggerAndCaller(t *testing.T) {
	userID := uuid.NewString()
	runID := uuid.New()
	svc := &stubRunService{
		runFn: func(ctx context.Context, trigger enums.CheckTrigger, by string) (*checkruns.Result, error) {
			if trigger != enums.CheckTriggerManual {
				t.Fatalf("unexpected trigger %s", trigger)
			}
			if by != userID {
				t.Fatalf("unexpected triggered_by %s", by)
			}
			return &checkruns.Result{RunID: runID, Status: enums.CheckRunStatusCompleted, AlertsGenerated: 3, Errors: []checkruns.ItemError{}}, nil
		},
	}

	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/expiry/checks", nil), userID, enums.RolePharmacist)
	resp := httptest.NewRecorder()
	RunCheck(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d body=%s", resp.Code, resp.Body.String())
	}
	var env struct {
		Data checkruns.Result `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.RunID != runID || env.Data.AlertsGenerated != 3 {
		t.Fatalf("unexpected result %+v", env.Data)
	}
}

func TestRunCheckMapsAlreadyRunToConflict(t *testing.T) {
	svc := &stubRunService{
		runFn: func(ctx context.Context, trigger enums.CheckTrigger, by string) (*checkruns.Result, error) {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyRun, "expiry check already completed today").
				WithDetails(map[string]any{"status": "COMPLETED"})
		},
	}
	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/expiry/checks", nil), uuid.NewString(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	RunCheck(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	env := decodeError(t, resp)
	if env.Error.Code != string(pkgerrors.CodeAlreadyRun) {
		t.Fatalf("unexpected code %s", env.Error.Code)
	}
	if env.Error.Details["status"] != "COMPLETED" {
		t.Fatalf("expected run status detail, got %v", env.Error.Details)
	}
}

func TestRunCheckRequiresStaffContext(t *testing.T) {
	svc := &stubRunService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/expiry/checks", nil)
	resp := httptest.NewRecorder()
	RunCheck(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListChecksPaginates(t *testing.T) {
	svc := &stubRunService{
		listFn: func(ctx context.Context, params pagination.Params) (pagination.Page[models.CheckRun], error) {
			if params.Page != 2 || params.Size != 5 {
				t.Fatalf("unexpected params %+v", params)
			}
			run := models.CheckRun{ID: uuid.New(), CheckDate: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), Status: enums.CheckRunStatusCompleted}
			return pagination.NewPage([]models.CheckRun{run}, params, 6), nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/expiry/checks?page=2&size=5", nil)
	resp := httptest.NewRecorder()
	ListChecks(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var env struct {
		Data pageResponse[runResponse] `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Items) != 1 || env.Data.Items[0].CheckDate != "2026-03-04" {
		t.Fatalf("unexpected items %+v", env.Data.Items)
	}
	if env.Data.TotalPages != 2 {
		t.Fatalf("expected 2 pages, got %d", env.Data.TotalPages)
	}
}

func TestListChecksRejectsOversizedPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/expiry/checks?size=1000", nil)
	resp := httptest.NewRecorder()
	ListChecks(&stubRunService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubAlertService struct {
	alerts.Service
	listFn        func(ctx context.Context, filter alerts.ListFilter, params pagination.Params) (pagination.Page[models.ExpiryAlert], error)
	acknowledgeFn func(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error)
	resolveFn     func(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error)
}

func (s *stubAlertService) List(ctx context.Context, filter alerts.ListFilter, params pagination.Params) (pagination.Page[models.ExpiryAlert], error) {
	return s.listFn(ctx, filter, params)
}

func (s *stubAlertService) Acknowledge(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error) {
	return s.acknowledgeFn(ctx, id, by, notes)
}

func (s *stubAlertService) Resolve(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error) {
	return s.resolveFn(ctx, id, by, notes)
}

func TestListAlertsParsesFilters(t *testing.T) {
	itemID := uuid.New()
	svc := &stubAlertService{
		listFn: func(ctx context.Context, filter alerts.ListFilter, params pagination.Params) (pagination.Page[models.ExpiryAlert], error) {
			if filter.Status != enums.AlertStatusPending {
				t.Fatalf("unexpected status %s", filter.Status)
			}
			if filter.Severity != enums.TierSeverityCritical {
				t.Fatalf("unexpected severity %s", filter.Severity)
			}
			if filter.ItemID == nil || *filter.ItemID != itemID {
				t.Fatalf("unexpected item filter %v", filter.ItemID)
			}
			alert := models.ExpiryAlert{
				ID:              uuid.New(),
				ItemID:          itemID,
				Status:          enums.AlertStatusPending,
				Severity:        enums.TierSeverityCritical,
				ExpiryDate:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
				DaysUntilExpiry: 5,
			}
			return pagination.NewPage([]models.ExpiryAlert{alert}, params, 1), nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/expiry/alerts?status=pending&severity=critical&item_id="+itemID.String(), nil)
	resp := httptest.NewRecorder()
	ListAlerts(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d body=%s", resp.Code, resp.Body.String())
	}
	var env struct {
		Data pageResponse[alertResponse] `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Items) != 1 || env.Data.Items[0].ExpiryDate != "2026-03-09" {
		t.Fatalf("unexpected items %+v", env.Data.Items)
	}
}

func TestListAlertsRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/expiry/alerts?status=SNOOZED", nil)
	resp := httptest.NewRecorder()
	ListAlerts(&stubAlertService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcknowledgeAlertPassesActorAndNotes(t *testing.T) {
	alertID := uuid.New()
	userID := uuid.NewString()
	svc := &stubAlertService{
		acknowledgeFn: func(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error) {
			if id != alertID || by != userID || notes != "moved to front shelf" {
				t.Fatalf("unexpected args %s %s %q", id, by, notes)
			}
			return &models.ExpiryAlert{ID: id, Status: enums.AlertStatusAcknowledged, AcknowledgedBy: &by}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/expiry/alerts/"+alertID.String()+"/acknowledge", strings.NewReader(`{"notes":"  moved to front shelf "}`))
	req = withParam(req, "alertId", alertID.String())
	req = withStaff(req, userID, enums.RoleInventoryManager)
	resp := httptest.NewRecorder()
	AcknowledgeAlert(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestResolveAlertWithoutBodyMapsInvalidState(t *testing.T) {
	alertID := uuid.New()
	svc := &stubAlertService{
		resolveFn: func(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error) {
			if notes != "" {
				t.Fatalf("expected empty notes, got %q", notes)
			}
			return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "alert already resolved").
				WithDetails(map[string]any{"current_status": "RESOLVED"})
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/expiry/alerts/"+alertID.String()+"/resolve", nil)
	req = withParam(req, "alertId", alertID.String())
	req = withStaff(req, uuid.NewString(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	ResolveAlert(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if env := decodeError(t, resp); env.Error.Details["current_status"] != "RESOLVED" {
		t.Fatalf("expected current status detail, got %v", env.Error.Details)
	}
}

func TestAcknowledgeAlertRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/expiry/alerts/nope/acknowledge", nil)
	req = withParam(req, "alertId", "nope")
	req = withStaff(req, uuid.NewString(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AcknowledgeAlert(&stubAlertService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubTierService struct {
	alertconfig.Service
	listActiveFn func(ctx context.Context) ([]models.AlertTierConfig, error)
	listFn       func(ctx context.Context, includeInactive bool) ([]models.AlertTierConfig, error)
	createFn     func(ctx context.Context, input alertconfig.TierInput) (*models.AlertTierConfig, error)
	toggleFn     func(ctx context.Context, id uuid.UUID, active bool) (*models.AlertTierConfig, error)
	deleteFn     func(ctx context.Context, id uuid.UUID) error
}

func (s *stubTierService) ListActive(ctx context.Context) ([]models.AlertTierConfig, error) {
	return s.listActiveFn(ctx)
}

func (s *stubTierService) List(ctx context.Context, includeInactive bool) ([]models.AlertTierConfig, error) {
	return s.listFn(ctx, includeInactive)
}

func (s *stubTierService) Create(ctx context.Context, input alertconfig.TierInput) (*models.AlertTierConfig, error) {
	return s.createFn(ctx, input)
}

func (s *stubTierService) ToggleActive(ctx context.Context, id uuid.UUID, active bool) (*models.AlertTierConfig, error) {
	return s.toggleFn(ctx, id, active)
}

func (s *stubTierService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func TestListTiersDefaultsToActive(t *testing.T) {
	activeCalled := false
	svc := &stubTierService{
		listActiveFn: func(ctx context.Context) ([]models.AlertTierConfig, error) {
			activeCalled = true
			return []models.AlertTierConfig{{ID: uuid.New(), TierName: "Critical", DaysBeforeExpiry: 7, Active: true}}, nil
		},
		listFn: func(ctx context.Context, includeInactive bool) ([]models.AlertTierConfig, error) {
			if !includeInactive {
				t.Fatalf("expected include inactive")
			}
			return nil, nil
		},
	}

	resp := httptest.NewRecorder()
	ListTiers(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/expiry/tiers", nil))
	if resp.Code != http.StatusOK || !activeCalled {
		t.Fatalf("expected active listing, status=%d", resp.Code)
	}
	var env struct {
		Data []tierResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Data[0].NotifyRoles == nil {
		t.Fatalf("unexpected tiers %+v", env.Data)
	}

	resp = httptest.NewRecorder()
	ListTiers(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/expiry/tiers?include_inactive=true", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestCreateTierMapsDuplicate(t *testing.T) {
	svc := &stubTierService{
		createFn: func(ctx context.Context, input alertconfig.TierInput) (*models.AlertTierConfig, error) {
			if input.DaysBeforeExpiry != 30 || input.Severity != "warning" {
				t.Fatalf("unexpected input %+v", input)
			}
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateTier, "an active tier already uses 30 days").
				WithDetails(map[string]any{"days_before_expiry": 30})
		},
	}
	body := `{"tier_name":"Warning","days_before_expiry":30,"severity":"warning","notify_roles":["PHARMACIST"],"color_code":"#FFA500"}`
	resp := httptest.NewRecorder()
	CreateTier(svc, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/expiry/tiers", strings.NewReader(body)))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if env := decodeError(t, resp); env.Error.Code != string(pkgerrors.CodeDuplicateTier) {
		t.Fatalf("unexpected code %s", env.Error.Code)
	}
}

func TestCreateTierRejectsUnknownFields(t *testing.T) {
	resp := httptest.NewRecorder()
	body := `{"tier_name":"Warning","days":30}`
	CreateTier(&stubTierService{}, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/expiry/tiers", strings.NewReader(body)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestToggleTierRequiresActiveFlag(t *testing.T) {
	tierID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/expiry/tiers/"+tierID.String()+"/toggle", strings.NewReader(`{}`))
	req = withParam(req, "tierId", tierID.String())
	resp := httptest.NewRecorder()
	ToggleTier(&stubTierService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	var got *bool
	svc := &stubTierService{
		toggleFn: func(ctx context.Context, id uuid.UUID, active bool) (*models.AlertTierConfig, error) {
			got = &active
			return &models.AlertTierConfig{ID: id, Active: active}, nil
		},
	}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/expiry/tiers/"+tierID.String()+"/toggle", strings.NewReader(`{"active":false}`))
	req = withParam(req, "tierId", tierID.String())
	resp = httptest.NewRecorder()
	ToggleTier(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d body=%s", resp.Code, resp.Body.String())
	}
	if got == nil || *got {
		t.Fatalf("expected deactivate call")
	}
}

func TestDeleteTierMapsConflict(t *testing.T) {
	tierID := uuid.New()
	svc := &stubTierService{
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeConflict, "tier is referenced by alerts")
		},
	}
	req := withParam(httptest.NewRequest(http.MethodDelete, "/api/v1/expiry/tiers/"+tierID.String(), nil), "tierId", tierID.String())
	resp := httptest.NewRecorder()
	DeleteTier(svc, testLogger())(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

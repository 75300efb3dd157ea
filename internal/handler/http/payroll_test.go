package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/rbac"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	benefitService "github.com/cmlabs-hris/payroll-backend-go/internal/service/benefit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

// stubPayrollService records the last call and returns canned results.
type stubPayrollService struct {
	payroll.PayrollService

	lastActor      user.Actor
	lastTransition payroll.TransitionRequest
	lastList       payroll.ListRunsRequest
	lastResolve    payroll.ResolveIrregularityRequest

	run       payroll.RunResponse
	err       error
	exportRaw []byte
}

func (s *stubPayrollService) CreateRun(_ context.Context, actor user.Actor, req payroll.CreateRunRequest) (payroll.RunResponse, error) {
	s.lastActor = actor
	if s.err != nil {
		return payroll.RunResponse{}, s.err
	}
	s.run.Period = req.Period
	return s.run, nil
}

func (s *stubPayrollService) ListRuns(_ context.Context, actor user.Actor, req payroll.ListRunsRequest) (payroll.ListRunsResponse, error) {
	s.lastActor = actor
	s.lastList = req
	return payroll.ListRunsResponse{Runs: []payroll.RunResponse{s.run}, TotalCount: 1, Page: req.Page, Limit: req.Limit, TotalPages: 1}, nil
}

func (s *stubPayrollService) GetRun(_ context.Context, actor user.Actor, runID string) (payroll.RunResponse, error) {
	s.lastActor = actor
	if s.err != nil {
		return payroll.RunResponse{}, s.err
	}
	return s.run, nil
}

func (s *stubPayrollService) ExportRun(_ context.Context, _ user.Actor, _ string) ([]byte, error) {
	return s.exportRaw, s.err
}

func (s *stubPayrollService) SubmitForReview(_ context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	s.lastActor = actor
	s.lastTransition = req
	return s.run, s.err
}

func (s *stubPayrollService) Reject(_ context.Context, actor user.Actor, req payroll.TransitionRequest) (payroll.RunResponse, error) {
	s.lastActor = actor
	s.lastTransition = req
	if s.err != nil {
		return payroll.RunResponse{}, s.err
	}
	return s.run, nil
}

func (s *stubPayrollService) ResolveIrregularity(_ context.Context, actor user.Actor, req payroll.ResolveIrregularityRequest) (payroll.DetailResponse, error) {
	s.lastActor = actor
	s.lastResolve = req
	return payroll.DetailResponse{}, s.err
}

type nopNotifier struct{}

func (nopNotifier) Queue(context.Context, notification.Event) error { return nil }

func (nopNotifier) Stop() {}

type handlerEnv struct {
	server  *httptest.Server
	jwt     jwt.Service
	payroll *stubPayrollService
	store   *memory.Store
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	jwtService := jwt.NewJWTService(handlerTestSecret, "1h")
	stub := &stubPayrollService{run: payroll.RunResponse{ID: uuid.Must(uuid.NewV7()).String(), Status: "draft", Version: 1}}

	store := memory.NewStore()
	enforcer, err := rbac.NewEnforcer(user.RolePermissions)
	require.NoError(t, err)
	benefits := benefitService.NewBenefitService(memory.NewBenefitRepository(store), memory.NewEmployeeRepository(store), enforcer, nopNotifier{})

	router := NewRouter(RouterOptions{Env: "test"}, jwtService, NewPayrollHandler(stub), NewBenefitHandler(benefits))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &handlerEnv{server: server, jwt: jwtService, payroll: stub, store: store}
}

func (e *handlerEnv) token(t *testing.T, employeeID string, roles ...user.Role) string {
	t.Helper()
	token, _, err := e.jwt.GenerateAccessToken(employeeID, roles)
	require.NoError(t, err)
	return token
}

func (e *handlerEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, response.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded response.Response
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestRouter_RequiresToken(t *testing.T) {
	env := newHandlerEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/payroll-runs/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
}

func TestPayrollHandler_CreateRun(t *testing.T) {
	env := newHandlerEnv(t)
	token := env.token(t, "specialist-1", user.RolePayrollSpecialist)

	resp, body := env.do(t, http.MethodPost, "/api/v1/payroll-runs/", token, map[string]string{"period": "2024-04"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, body.Success)
	assert.Equal(t, "specialist-1", env.payroll.lastActor.EmployeeID)
	assert.Equal(t, []user.Role{user.RolePayrollSpecialist}, env.payroll.lastActor.Roles)
}

func TestPayrollHandler_CreateRun_InvalidBody(t *testing.T) {
	env := newHandlerEnv(t)
	token := env.token(t, "specialist-1", user.RolePayrollSpecialist)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/payroll-runs/", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPayrollHandler_ListRunsParsesQuery(t *testing.T) {
	env := newHandlerEnv(t)
	token := env.token(t, "manager-1", user.RolePayrollManager)

	resp, body := env.do(t, http.MethodGet, "/api/v1/payroll-runs/?period=2024-04&status=draft&page=2&limit=5", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 2, body.Meta.Page)
	assert.Equal(t, 5, body.Meta.Limit)

	require.NotNil(t, env.payroll.lastList.Period)
	assert.Equal(t, "2024-04", *env.payroll.lastList.Period)
	require.NotNil(t, env.payroll.lastList.Status)
	assert.Equal(t, "draft", *env.payroll.lastList.Status)
	assert.Nil(t, env.payroll.lastList.EntityID)
}

func TestPayrollHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", payroll.ErrRunNotFound, http.StatusNotFound},
		{"duplicate period", payroll.ErrDuplicatePeriod, http.StatusConflict},
		{"stale version", payroll.ErrStaleVersion, http.StatusConflict},
		{"invalid transition", fmt.Errorf("%w: cannot move from draft to locked", payroll.ErrInvalidTransition), http.StatusConflict},
		{"missing role", payroll.ErrMissingRole, http.StatusForbidden},
		{"self approval", payroll.ErrSelfApproval, http.StatusForbidden},
		{"reason required", payroll.ErrReasonRequired, http.StatusBadRequest},
		{"unexpected", fmt.Errorf("failed to load run: %w", context.DeadlineExceeded), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newHandlerEnv(t)
			env.payroll.err = tt.err
			token := env.token(t, "specialist-1", user.RolePayrollSpecialist)

			resp, body := env.do(t, http.MethodPost, "/api/v1/payroll-runs/"+env.payroll.run.ID+"/reject", token,
				map[string]interface{}{"expected_version": 1, "reason": "wrong totals"})
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
		})
	}
}

func TestPayrollHandler_TransitionTakesRunIDFromPath(t *testing.T) {
	env := newHandlerEnv(t)
	token := env.token(t, "specialist-1", user.RolePayrollSpecialist)
	runID := env.payroll.run.ID

	resp, body := env.do(t, http.MethodPost, "/api/v1/payroll-runs/"+runID+"/reject", token,
		map[string]interface{}{"expected_version": 3, "reason": "wrong totals"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Payroll run rejected", body.Message)
	assert.Equal(t, runID, env.payroll.lastTransition.RunID)
	assert.Equal(t, int64(3), env.payroll.lastTransition.ExpectedVersion)
	assert.Equal(t, "wrong totals", env.payroll.lastTransition.Reason)
}

func TestPayrollHandler_SubmitProcessingFailedReturnsRun(t *testing.T) {
	env := newHandlerEnv(t)
	env.payroll.err = fmt.Errorf("%w: 2 employees failed", payroll.ErrRunProcessingFailed)
	env.payroll.run.Version = 2
	token := env.token(t, "specialist-1", user.RolePayrollSpecialist)

	resp, body := env.do(t, http.MethodPost, "/api/v1/payroll-runs/"+env.payroll.run.ID+"/submit", token,
		map[string]interface{}{"expected_version": 1})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "PROCESSING_FAILED", body.Error.Code)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, env.payroll.run.ID, data["id"])
	assert.EqualValues(t, 2, data["version"])
}

func TestPayrollHandler_ResolveIrregularityPathParams(t *testing.T) {
	env := newHandlerEnv(t)
	token := env.token(t, "manager-1", user.RolePayrollManager)
	detailID := uuid.Must(uuid.NewV7()).String()
	irregularityID := uuid.Must(uuid.NewV7()).String()

	path := fmt.Sprintf("/api/v1/payroll-runs/%s/details/%s/irregularities/%s/resolve", env.payroll.run.ID, detailID, irregularityID)
	resp, _ := env.do(t, http.MethodPost, path, token, map[string]string{"action": "approved", "note": "confirmed with HR"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, detailID, env.payroll.lastResolve.DetailID)
	assert.Equal(t, irregularityID, env.payroll.lastResolve.IrregularityID)
	assert.Equal(t, "approved", env.payroll.lastResolve.Action)
}

func TestPayrollHandler_ExportRun(t *testing.T) {
	env := newHandlerEnv(t)
	env.payroll.exportRaw = []byte("xlsx-bytes")
	token := env.token(t, "finance-1", user.RoleFinance)

	resp, _ := env.do(t, http.MethodGet, "/api/v1/payroll-runs/"+env.payroll.run.ID+"/export", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), env.payroll.run.ID)
}

func TestBenefitHandler_CreateAndApprove(t *testing.T) {
	env := newHandlerEnv(t)
	empID := uuid.Must(uuid.NewV7()).String()
	env.store.AddEmployee(employee.Employee{ID: empID, EmployeeCode: "E001", EmploymentStatus: employee.EmploymentStatusActive})

	specialistToken := env.token(t, "specialist-1", user.RolePayrollSpecialist)
	resp, body := env.do(t, http.MethodPost, "/api/v1/benefits/", specialistToken, map[string]interface{}{
		"kind":        "signing_bonus",
		"employee_id": empID,
		"amount":      "1500",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	benefitID, _ := data["id"].(string)
	require.NotEmpty(t, benefitID)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/benefits/"+benefitID+"/approve", specialistToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	managerToken := env.token(t, "manager-1", user.RolePayrollManager)
	resp, body = env.do(t, http.MethodPost, "/api/v1/benefits/"+benefitID+"/approve", managerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, ok = body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "approved", data["status"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/benefits/"+benefitID+"/reject", managerToken, map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

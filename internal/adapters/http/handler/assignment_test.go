package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
)

const (
	employeeA = "7b0f3c2e-7a55-4c1b-9f0e-1d2c3b4a5e60"
	clientX   = "0c9d8e7f-6a5b-4c3d-8e2f-1a0b9c8d7e6f"
)

type stubAssignmentUseCase struct {
	assignInput assignment.AssignInput
	assignOut   *assignment.MutationResult
	assignErr   error

	removeInput assignment.RemoveInput
	removeOut   *assignment.MutationResult
	removeErr   error

	activeOut *assignment.AssignmentDetail
	activeErr error

	membersOut    []*assignment.ClientMember
	engagementOut []*assignment.EmployeeEngagement
	historyOut    []*assignment.HistoryEntry
	listErr       error

	recountOut int
	recountErr error

	summaryOut *assignment.RecountSummary
	summaryErr error

	statsOut *assignment.Stats
	statsErr error
}

func (s *stubAssignmentUseCase) Assign(_ context.Context, in assignment.AssignInput) (*assignment.MutationResult, error) {
	s.assignInput = in
	return s.assignOut, s.assignErr
}

func (s *stubAssignmentUseCase) Remove(_ context.Context, in assignment.RemoveInput) (*assignment.MutationResult, error) {
	s.removeInput = in
	return s.removeOut, s.removeErr
}

func (s *stubAssignmentUseCase) GetActive(context.Context, string, string) (*assignment.AssignmentDetail, error) {
	return s.activeOut, s.activeErr
}

func (s *stubAssignmentUseCase) ListActiveByClient(context.Context, string) ([]*assignment.ClientMember, error) {
	return s.membersOut, s.listErr
}

func (s *stubAssignmentUseCase) ListActiveByEmployee(context.Context, string) ([]*assignment.EmployeeEngagement, error) {
	return s.engagementOut, s.listErr
}

func (s *stubAssignmentUseCase) History(context.Context, string) ([]*assignment.HistoryEntry, error) {
	return s.historyOut, s.listErr
}

func (s *stubAssignmentUseCase) RecomputeClientCount(context.Context, string) (int, error) {
	return s.recountOut, s.recountErr
}

func (s *stubAssignmentUseCase) RecomputeAllClientCounts(context.Context) (*assignment.RecountSummary, error) {
	return s.summaryOut, s.summaryErr
}

func (s *stubAssignmentUseCase) Stats(context.Context) (*assignment.Stats, error) {
	return s.statsOut, s.statsErr
}

// AssignmentHandlerTestSuite はアサイン API のハンドラを検証します。
type AssignmentHandlerTestSuite struct {
	suite.Suite
	svc    *stubAssignmentUseCase
	router *gin.Engine
}

func (s *AssignmentHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.svc = &stubAssignmentUseCase{}
	h := NewAssignmentHandler(s.svc)

	s.router = gin.New()
	s.router.POST("/assignments", h.Assign)
	s.router.POST("/assignments/remove", h.Remove)
	s.router.GET("/assignments/active", h.GetActive)
	s.router.GET("/assignments/stats", h.Stats)
	s.router.GET("/clients/:id/employees", h.ListActiveByClient)
	s.router.GET("/employees/:id/history", h.History)
	s.router.POST("/clients/:id/recount", h.RecomputeClientCount)
	s.router.POST("/maintenance/recount", h.RecomputeAllClientCounts)
}

func (s *AssignmentHandlerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AssignmentHandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func activeAssignment() *assignment.Assignment {
	return &assignment.Assignment{
		ID:         "a-1",
		EmployeeID: employeeA,
		ClientID:   clientX,
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (s *AssignmentHandlerTestSuite) TestAssign_Created() {
	s.svc.assignOut = &assignment.MutationResult{Assignment: activeAssignment(), EmployeesAssigned: 4}

	w := s.do(http.MethodPost, "/assignments", map[string]any{
		"employee_id":  employeeA,
		"client_id":    clientX,
		"project_name": "EUV",
		"start_date":   "2024-03-01",
	})

	s.Equal(http.StatusCreated, w.Code)
	s.Equal(employeeA, s.svc.assignInput.EmployeeID)
	s.Require().NotNil(s.svc.assignInput.StartDate)
	s.True(s.svc.assignInput.StartDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	s.Require().NotNil(s.svc.assignInput.ProjectName)
	s.Equal("EUV", *s.svc.assignInput.ProjectName)

	body := s.decode(w)
	s.EqualValues(4, body["employees_assigned"])
	s.NotContains(body, "warning")

	a := body["assignment"].(map[string]any)
	s.Equal("2024-03-01", a["start_date"])
	s.Equal(true, a["is_active"])
	s.Nil(a["end_date"])
}

func (s *AssignmentHandlerTestSuite) TestAssign_CounterSyncWarning() {
	s.svc.assignOut = &assignment.MutationResult{
		Assignment:     activeAssignment(),
		CounterSyncErr: errors.New("clients table locked"),
	}

	w := s.do(http.MethodPost, "/assignments", map[string]any{"employee_id": employeeA, "client_id": clientX})

	s.Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal(counterSyncWarning, body["warning"])
	s.NotContains(body, "employees_assigned")
}

func (s *AssignmentHandlerTestSuite) TestAssign_ErrorStatuses() {
	cases := []struct {
		err  error
		want int
		code string
	}{
		{assignment.ErrInvalidEmployeeID, http.StatusBadRequest, "validation"},
		{assignment.ErrFutureStartDate, http.StatusBadRequest, "validation"},
		{assignment.ErrDuplicateActiveAssignment, http.StatusConflict, "duplicate_active_assignment"},
		{assignment.ErrClientNotFound, http.StatusNotFound, "not_found"},
		{&assignment.DatastoreError{Op: "assign", Err: errors.New("conn refused")}, http.StatusInternalServerError, "datastore"},
	}

	for _, tc := range cases {
		s.svc.assignErr = tc.err
		w := s.do(http.MethodPost, "/assignments", map[string]any{"employee_id": employeeA, "client_id": clientX})
		s.Equal(tc.want, w.Code, "error %v", tc.err)

		body := s.decode(w)
		errBody := body["error"].(map[string]any)
		s.Equal(tc.code, errBody["code"])
	}
}

func (s *AssignmentHandlerTestSuite) TestAssign_DatastoreMessageHidden() {
	s.svc.assignErr = &assignment.DatastoreError{Op: "assign", Err: errors.New("password authentication failed for user ledger")}

	w := s.do(http.MethodPost, "/assignments", map[string]any{"employee_id": employeeA, "client_id": clientX})

	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "password")
}

func (s *AssignmentHandlerTestSuite) TestAssign_BadStartDate() {
	w := s.do(http.MethodPost, "/assignments", map[string]any{
		"employee_id": employeeA,
		"client_id":   clientX,
		"start_date":  "01/03/2024",
	})

	s.Equal(http.StatusBadRequest, w.Code)
	s.Empty(s.svc.assignInput.EmployeeID, "service must not be called")
}

func (s *AssignmentHandlerTestSuite) TestAssign_MalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/assignments", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AssignmentHandlerTestSuite) TestRemove() {
	ended := activeAssignment()
	end := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	ended.EndDate = &end
	s.svc.removeOut = &assignment.MutationResult{Assignment: ended, EmployeesAssigned: 0}

	w := s.do(http.MethodPost, "/assignments/remove", map[string]any{"employee_id": employeeA, "client_id": clientX})

	s.Equal(http.StatusOK, w.Code)
	s.Equal(clientX, s.svc.removeInput.ClientID)

	body := s.decode(w)
	a := body["assignment"].(map[string]any)
	s.Equal("2024-06-15", a["end_date"])
	s.Equal(false, a["is_active"])
	s.EqualValues(0, body["employees_assigned"])
}

func (s *AssignmentHandlerTestSuite) TestRemove_NoActive() {
	s.svc.removeErr = assignment.ErrNoActiveAssignment

	w := s.do(http.MethodPost, "/assignments/remove", map[string]any{"employee_id": employeeA, "client_id": clientX})

	s.Equal(http.StatusNotFound, w.Code)
	errBody := s.decode(w)["error"].(map[string]any)
	s.Equal("no_active_assignment", errBody["code"])
}

func (s *AssignmentHandlerTestSuite) TestGetActive() {
	s.svc.activeOut = &assignment.AssignmentDetail{
		Assignment: activeAssignment(),
		Employee:   &assignment.EmployeeSnapshot{ID: employeeA, Name: "Sanne"},
		Client:     &assignment.ClientSnapshot{ID: clientX, Missing: true},
	}

	w := s.do(http.MethodGet, "/assignments/active?employee_id="+employeeA+"&client_id="+clientX, nil)

	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("a-1", body["id"])
	s.Equal("Sanne", body["employee"].(map[string]any)["name"])
	s.Equal(true, body["client"].(map[string]any)["missing"])
}

func (s *AssignmentHandlerTestSuite) TestListActiveByClient_Empty() {
	s.svc.membersOut = nil

	w := s.do(http.MethodGet, "/clients/"+clientX+"/employees", nil)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"employees":[]}`, w.Body.String())
}

func (s *AssignmentHandlerTestSuite) TestHistory() {
	ended := activeAssignment()
	end := ended.StartDate.AddDate(0, 0, 400)
	ended.EndDate = &end
	s.svc.historyOut = []*assignment.HistoryEntry{{
		Assignment:   ended,
		Client:       &assignment.ClientSnapshot{ID: clientX, Name: "ASML"},
		Duration:     "1 year, 1 month",
		DurationDays: 400,
	}}

	w := s.do(http.MethodGet, "/employees/"+employeeA+"/history", nil)

	s.Equal(http.StatusOK, w.Code)
	entries := s.decode(w)["history"].([]any)
	s.Require().Len(entries, 1)
	entry := entries[0].(map[string]any)
	s.Equal("1 year, 1 month", entry["duration"])
	s.EqualValues(400, entry["duration_days"])
	s.Equal("ASML", entry["client"].(map[string]any)["name"])
}

func (s *AssignmentHandlerTestSuite) TestRecount() {
	s.svc.recountOut = 2

	w := s.do(http.MethodPost, "/clients/"+clientX+"/recount", nil)

	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(2, s.decode(w)["employees_assigned"])
}

func (s *AssignmentHandlerTestSuite) TestRecountAll_ReportsFailures() {
	s.svc.summaryOut = &assignment.RecountSummary{
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Details: []assignment.RecountResult{
			{ClientID: "c-1", Count: 3},
			{ClientID: "c-2", Err: errors.New("timeout")},
		},
	}

	w := s.do(http.MethodPost, "/maintenance/recount", nil)

	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.EqualValues(1, body["failed"])
	details := body["details"].([]any)
	s.Require().Len(details, 2)
	s.NotContains(details[0].(map[string]any), "error")
	s.Equal("timeout", details[1].(map[string]any)["error"])
}

func (s *AssignmentHandlerTestSuite) TestStats() {
	s.svc.statsOut = &assignment.Stats{ActiveAssignments: 2, TotalAssignments: 5, InactiveAssignments: 3, DistinctEmployeesActive: 2, DistinctClientsActive: 1}

	w := s.do(http.MethodGet, "/assignments/stats", nil)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"active_assignments":2,"total_assignments":5,"inactive_assignments":3,"distinct_employees_active":2,"distinct_clients_active":1}`, w.Body.String())
}

func TestAssignmentHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AssignmentHandlerTestSuite))
}

func TestToHTTPError_UnknownIsInternal(t *testing.T) {
	mapped := toHTTPError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, mapped.Status)
	assert.Equal(t, internalErrorMessage, mapped.Message)
}

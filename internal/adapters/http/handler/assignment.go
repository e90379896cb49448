package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
)

// counterSyncWarning はアサインの書き込み後に稼働人数の再計算が失敗した場合に返す警告です。
const counterSyncWarning = "assignment saved but the client employee count could not be updated; run a recount"

// AssignmentHandler はアサイン台帳の HTTP ハンドラです。
type AssignmentHandler struct {
	svc assignment.UseCase
}

// NewAssignmentHandler は AssignmentHandler を生成します。
func NewAssignmentHandler(svc assignment.UseCase) *AssignmentHandler {
	return &AssignmentHandler{svc: svc}
}

type assignRequest struct {
	EmployeeID  string  `json:"employee_id"`
	ClientID    string  `json:"client_id"`
	ProjectName *string `json:"project_name"`
	StartDate   *string `json:"start_date"`
}

type removeRequest struct {
	EmployeeID string `json:"employee_id"`
	ClientID   string `json:"client_id"`
}

type assignmentResponse struct {
	ID          string    `json:"id"`
	EmployeeID  string    `json:"employee_id"`
	ClientID    string    `json:"client_id"`
	ProjectName *string   `json:"project_name"`
	StartDate   string    `json:"start_date"`
	EndDate     *string   `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type mutationResponse struct {
	Assignment        assignmentResponse `json:"assignment"`
	EmployeesAssigned *int               `json:"employees_assigned,omitempty"`
	Warning           string             `json:"warning,omitempty"`
}

type employeeSnapshotResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       string   `json:"location"`
	Hierarchy      string   `json:"hierarchy"`
	Skills         []string `json:"skills"`
	ProfilePicture *string  `json:"profile_picture"`
	Missing        bool     `json:"missing,omitempty"`
}

type clientSnapshotResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Industry          string  `json:"industry"`
	Status            string  `json:"status"`
	PrimaryContact    *string `json:"primary_contact"`
	ContactEmail      *string `json:"contact_email"`
	EmployeesAssigned int     `json:"employees_assigned"`
	Missing           bool    `json:"missing,omitempty"`
}

type clientMemberResponse struct {
	assignmentResponse
	Employee employeeSnapshotResponse `json:"employee"`
}

type employeeEngagementResponse struct {
	assignmentResponse
	Client clientSnapshotResponse `json:"client"`
}

type historyEntryResponse struct {
	assignmentResponse
	Client       clientSnapshotResponse `json:"client"`
	Duration     string                 `json:"duration"`
	DurationDays int                    `json:"duration_days"`
}

type assignmentDetailResponse struct {
	assignmentResponse
	Employee employeeSnapshotResponse `json:"employee"`
	Client   clientSnapshotResponse   `json:"client"`
}

type recountDetailResponse struct {
	ClientID string `json:"client_id"`
	Count    int    `json:"count"`
	Error    string `json:"error,omitempty"`
}

type recountSummaryResponse struct {
	Total     int                     `json:"total"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Details   []recountDetailResponse `json:"details"`
}

type statsResponse struct {
	ActiveAssignments       int `json:"active_assignments"`
	TotalAssignments        int `json:"total_assignments"`
	InactiveAssignments     int `json:"inactive_assignments"`
	DistinctEmployeesActive int `json:"distinct_employees_active"`
	DistinctClientsActive   int `json:"distinct_clients_active"`
}

// Assign は社員をクライアントへアサインします。
// POST /api/v1/assignments
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidRequest("malformed body", err))
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.svc.Assign(c.Request.Context(), assignment.AssignInput{
		EmployeeID:  req.EmployeeID,
		ClientID:    req.ClientID,
		ProjectName: req.ProjectName,
		StartDate:   startDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toMutationResponse(result))
}

// Remove は稼働中のアサインを終了します。
// POST /api/v1/assignments/remove
func (h *AssignmentHandler) Remove(c *gin.Context) {
	var req removeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidRequest("malformed body", err))
		return
	}

	result, err := h.svc.Remove(c.Request.Context(), assignment.RemoveInput{
		EmployeeID: req.EmployeeID,
		ClientID:   req.ClientID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMutationResponse(result))
}

// GetActive は社員とクライアントの組に対する稼働中アサインを返します。
// GET /api/v1/assignments/active?employee_id=&client_id=
func (h *AssignmentHandler) GetActive(c *gin.Context) {
	detail, err := h.svc.GetActive(c.Request.Context(), c.Query("employee_id"), c.Query("client_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignmentDetailResponse{
		assignmentResponse: toAssignmentResponse(detail.Assignment),
		Employee:           toEmployeeSnapshotResponse(detail.Employee),
		Client:             toClientSnapshotResponse(detail.Client),
	})
}

// ListActiveByClient はクライアントに稼働中の社員一覧を返します。
// GET /api/v1/clients/:id/employees
func (h *AssignmentHandler) ListActiveByClient(c *gin.Context) {
	members, err := h.svc.ListActiveByClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]clientMemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, clientMemberResponse{
			assignmentResponse: toAssignmentResponse(m.Assignment),
			Employee:           toEmployeeSnapshotResponse(m.Employee),
		})
	}

	c.JSON(http.StatusOK, gin.H{"employees": out})
}

// ListActiveByEmployee は社員が稼働中のクライアント一覧を返します。
// GET /api/v1/employees/:id/clients
func (h *AssignmentHandler) ListActiveByEmployee(c *gin.Context) {
	engagements, err := h.svc.ListActiveByEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]employeeEngagementResponse, 0, len(engagements))
	for _, e := range engagements {
		out = append(out, employeeEngagementResponse{
			assignmentResponse: toAssignmentResponse(e.Assignment),
			Client:             toClientSnapshotResponse(e.Client),
		})
	}

	c.JSON(http.StatusOK, gin.H{"clients": out})
}

// History は社員のアサイン履歴を返します。
// GET /api/v1/employees/:id/history
func (h *AssignmentHandler) History(c *gin.Context) {
	entries, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			assignmentResponse: toAssignmentResponse(e.Assignment),
			Client:             toClientSnapshotResponse(e.Client),
			Duration:           e.Duration,
			DurationDays:       e.DurationDays,
		})
	}

	c.JSON(http.StatusOK, gin.H{"history": out})
}

// RecomputeClientCount はクライアントの稼働人数を再計算します。
// POST /api/v1/clients/:id/recount
func (h *AssignmentHandler) RecomputeClientCount(c *gin.Context) {
	clientID := c.Param("id")
	count, err := h.svc.RecomputeClientCount(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"client_id": clientID, "employees_assigned": count})
}

// RecomputeAllClientCounts は全クライアントの稼働人数を再計算します。
// POST /api/v1/maintenance/recount
func (h *AssignmentHandler) RecomputeAllClientCounts(c *gin.Context) {
	summary, err := h.svc.RecomputeAllClientCounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRecountSummaryResponse(summary))
}

// Stats はアサインの集計値を返します。
// GET /api/v1/assignments/stats
func (h *AssignmentHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, statsResponse{
		ActiveAssignments:       stats.ActiveAssignments,
		TotalAssignments:        stats.TotalAssignments,
		InactiveAssignments:     stats.InactiveAssignments,
		DistinctEmployeesActive: stats.DistinctEmployeesActive,
		DistinctClientsActive:   stats.DistinctClientsActive,
	})
}

func toMutationResponse(result *assignment.MutationResult) mutationResponse {
	resp := mutationResponse{Assignment: toAssignmentResponse(result.Assignment)}
	if result.CounterSyncErr != nil {
		resp.Warning = counterSyncWarning
		return resp
	}
	count := result.EmployeesAssigned
	resp.EmployeesAssigned = &count
	return resp
}

func toAssignmentResponse(a *assignment.Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:          a.ID,
		EmployeeID:  a.EmployeeID,
		ClientID:    a.ClientID,
		ProjectName: a.ProjectName,
		StartDate:   formatDate(a.StartDate),
		IsActive:    a.IsActive(),
		CreatedAt:   a.CreatedAt,
	}
	if a.EndDate != nil {
		end := formatDate(*a.EndDate)
		resp.EndDate = &end
	}
	return resp
}

func toEmployeeSnapshotResponse(s *assignment.EmployeeSnapshot) employeeSnapshotResponse {
	skills := s.Skills
	if skills == nil {
		skills = []string{}
	}
	return employeeSnapshotResponse{
		ID:             s.ID,
		Name:           s.Name,
		Location:       s.Location,
		Hierarchy:      s.Hierarchy,
		Skills:         skills,
		ProfilePicture: s.ProfilePicture,
		Missing:        s.Missing,
	}
}

func toClientSnapshotResponse(s *assignment.ClientSnapshot) clientSnapshotResponse {
	return clientSnapshotResponse{
		ID:                s.ID,
		Name:              s.Name,
		Industry:          s.Industry,
		Status:            s.Status,
		PrimaryContact:    s.PrimaryContact,
		ContactEmail:      s.ContactEmail,
		EmployeesAssigned: s.EmployeesAssigned,
		Missing:           s.Missing,
	}
}

func toRecountSummaryResponse(summary *assignment.RecountSummary) recountSummaryResponse {
	details := make([]recountDetailResponse, 0, len(summary.Details))
	for _, d := range summary.Details {
		detail := recountDetailResponse{ClientID: d.ClientID, Count: d.Count}
		if d.Err != nil {
			detail.Error = d.Err.Error()
		}
		details = append(details, detail)
	}
	return recountSummaryResponse{
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Details:   details,
	}
}

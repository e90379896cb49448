package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-ledger/internal/core/employee"
)

// EmployeeHandler は社員台帳の HTTP ハンドラです。
type EmployeeHandler struct {
	svc employee.UseCase
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

type createEmployeeRequest struct {
	Name           string   `json:"name"`
	Location       string   `json:"location"`
	Hierarchy      string   `json:"hierarchy"`
	Skills         []string `json:"skills"`
	CurrentClient  *string  `json:"current_client"`
	CV             *string  `json:"cv"`
	ProfilePicture *string  `json:"profile_picture"`
	// ProjectStartDate は YYYY-MM-DD 形式です。
	ProjectStartDate *string `json:"project_start_date"`
}

type updateEmployeeRequest struct {
	Name           *string   `json:"name"`
	Location       *string   `json:"location"`
	Hierarchy      *string   `json:"hierarchy"`
	Skills         *[]string `json:"skills"`
	CurrentClient  *string   `json:"current_client"`
	CV             *string   `json:"cv"`
	ProfilePicture *string   `json:"profile_picture"`
	// ProjectStartDate は空文字で値を消去します。
	ProjectStartDate *string `json:"project_start_date"`
}

type employeeResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Location         string    `json:"location"`
	Hierarchy        string    `json:"hierarchy"`
	Skills           []string  `json:"skills"`
	CurrentClient    *string   `json:"current_client"`
	CV               *string   `json:"cv"`
	ProfilePicture   *string   `json:"profile_picture"`
	ProjectStartDate *string   `json:"project_start_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Create は社員を作成します。
// POST /api/v1/employees
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidRequest("malformed body", err))
		return
	}

	projectStart, err := parseDate(req.ProjectStartDate)
	if err != nil {
		respondError(c, err)
		return
	}

	created, err := h.svc.CreateEmployee(c.Request.Context(), employee.CreateEmployeeInput{
		Name:             req.Name,
		Location:         employee.Location(req.Location),
		Hierarchy:        employee.Hierarchy(req.Hierarchy),
		Skills:           req.Skills,
		CurrentClient:    req.CurrentClient,
		CV:               req.CV,
		ProfilePicture:   req.ProfilePicture,
		ProjectStartDate: projectStart,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toEmployeeResponse(created))
}

// Get は社員を取得します。
// GET /api/v1/employees/:id
func (h *EmployeeHandler) Get(c *gin.Context) {
	found, err := h.svc.GetEmployee(c.Request.Context(), employee.GetEmployeeInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeResponse(found))
}

// List は社員の一覧を返します。
// GET /api/v1/employees?location=&hierarchy=&skill=&page_size=&page_token=
func (h *EmployeeHandler) List(c *gin.Context) {
	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		respondError(c, err)
		return
	}

	in := employee.ListEmployeesInput{
		PageSize:  pageSize,
		PageToken: c.Query("page_token"),
	}
	if location, ok := c.GetQuery("location"); ok {
		l := employee.Location(location)
		in.Location = &l
	}
	if hierarchy, ok := c.GetQuery("hierarchy"); ok {
		hr := employee.Hierarchy(hierarchy)
		in.Hierarchy = &hr
	}
	if skill, ok := c.GetQuery("skill"); ok {
		in.Skill = &skill
	}

	result, err := h.svc.ListEmployees(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]employeeResponse, 0, len(result.Employees))
	for _, e := range result.Employees {
		out = append(out, toEmployeeResponse(e))
	}

	c.JSON(http.StatusOK, gin.H{"employees": out, "next_page_token": result.NextPageToken})
}

// Update は社員を部分更新します。
// PATCH /api/v1/employees/:id
func (h *EmployeeHandler) Update(c *gin.Context) {
	var req updateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidRequest("malformed body", err))
		return
	}

	in := employee.UpdateEmployeeInput{
		ID:             c.Param("id"),
		Name:           req.Name,
		CurrentClient:  req.CurrentClient,
		CV:             req.CV,
		ProfilePicture: req.ProfilePicture,
	}
	if req.Location != nil {
		l := employee.Location(*req.Location)
		in.Location = &l
	}
	if req.Hierarchy != nil {
		hr := employee.Hierarchy(*req.Hierarchy)
		in.Hierarchy = &hr
	}
	if req.Skills != nil {
		in.Skills = *req.Skills
		in.SkillsSet = true
	}
	if req.ProjectStartDate != nil {
		projectStart, err := parseDate(req.ProjectStartDate)
		if err != nil {
			respondError(c, err)
			return
		}
		in.ProjectStartDate = projectStart
		in.ProjectStartDateSet = true
	}

	updated, err := h.svc.UpdateEmployee(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeResponse(updated))
}

// Delete は社員を削除します。
// DELETE /api/v1/employees/:id
func (h *EmployeeHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteEmployee(c.Request.Context(), employee.DeleteEmployeeInput{ID: c.Param("id")}); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	skills := e.Skills
	if skills == nil {
		skills = []string{}
	}
	var projectStart *string
	if e.ProjectStartDate != nil {
		formatted := formatDate(*e.ProjectStartDate)
		projectStart = &formatted
	}
	return employeeResponse{
		ID:               e.ID,
		Name:             e.Name,
		Location:         string(e.Location),
		Hierarchy:        string(e.Hierarchy),
		Skills:           skills,
		CurrentClient:    e.CurrentClient,
		CV:               e.CV,
		ProfilePicture:   e.ProfilePicture,
		ProjectStartDate: projectStart,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

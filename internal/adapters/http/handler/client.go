package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-ledger/internal/core/client"
)

// ClientHandler はクライアント台帳の HTTP ハンドラです。
type ClientHandler struct {
	svc client.UseCase
}

// NewClientHandler は ClientHandler を生成します。
func NewClientHandler(svc client.UseCase) *ClientHandler {
	return &ClientHandler{svc: svc}
}

type createClientRequest struct {
	Name               string   `json:"name"`
	Industry           *string  `json:"industry"`
	Status             *string  `json:"status"`
	Description        *string  `json:"description"`
	PrimaryContact     *string  `json:"primary_contact"`
	ContactEmail       *string  `json:"contact_email"`
	ContactPhone       *string  `json:"contact_phone"`
	RequestedPositions []string `json:"requested_positions"`
}

type updateClientRequest struct {
	Name               *string   `json:"name"`
	Industry           *string   `json:"industry"`
	Status             *string   `json:"status"`
	Description        *string   `json:"description"`
	PrimaryContact     *string   `json:"primary_contact"`
	ContactEmail       *string   `json:"contact_email"`
	ContactPhone       *string   `json:"contact_phone"`
	RequestedPositions *[]string `json:"requested_positions"`
}

type clientResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Industry           *string   `json:"industry"`
	Status             string    `json:"status"`
	Description        *string   `json:"description"`
	PrimaryContact     *string   `json:"primary_contact"`
	ContactEmail       *string   `json:"contact_email"`
	ContactPhone       *string   `json:"contact_phone"`
	RequestedPositions []string  `json:"requested_positions"`
	EmployeesAssigned  int       `json:"employees_assigned"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Create はクライアントを作成します。
// POST /api/v1/clients
func (h *ClientHandler) Create(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidRequest("malformed body", err))
		return
	}

	created, err := h.svc.CreateClient(c.Request.Context(), client.CreateClientInput{
		Name:               req.Name,
		Industry:           req.Industry,
		Status:             toClientStatus(req.Status),
		Description:        req.Description,
		PrimaryContact:     req.PrimaryContact,
		ContactEmail:       req.ContactEmail,
		ContactPhone:       req.ContactPhone,
		RequestedPositions: req.RequestedPositions,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toClientResponse(created))
}

// Get はクライアントを取得します。
// GET /api/v1/clients/:id
func (h *ClientHandler) Get(c *gin.Context) {
	found, err := h.svc.GetClient(c.Request.Context(), client.GetClientInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toClientResponse(found))
}

// List はクライアントの一覧を返します。
// GET /api/v1/clients?status=&industry=&page_size=&page_token=
func (h *ClientHandler) List(c *gin.Context) {
	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		respondError(c, err)
		return
	}

	in := client.ListClientsInput{
		PageSize:  pageSize,
		PageToken: c.Query("page_token"),
	}
	if status, ok := c.GetQuery("status"); ok {
		in.Status = toClientStatus(&status)
	}
	if industry, ok := c.GetQuery("industry"); ok {
		in.Industry = &industry
	}

	result, err := h.svc.ListClients(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]clientResponse, 0, len(result.Clients))
	for _, cl := range result.Clients {
		out = append(out, toClientResponse(cl))
	}

	c.JSON(http.StatusOK, gin.H{"clients": out, "next_page_token": result.NextPageToken})
}

// Update はクライアントを部分更新します。
// PATCH /api/v1/clients/:id
func (h *ClientHandler) Update(c *gin.Context) {
	var req updateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidRequest("malformed body", err))
		return
	}

	in := client.UpdateClientInput{
		ID:             c.Param("id"),
		Name:           req.Name,
		Industry:       req.Industry,
		Status:         toClientStatus(req.Status),
		Description:    req.Description,
		PrimaryContact: req.PrimaryContact,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
	}
	if req.RequestedPositions != nil {
		in.RequestedPositions = *req.RequestedPositions
		in.RequestedPositionsSet = true
	}

	updated, err := h.svc.UpdateClient(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toClientResponse(updated))
}

// Delete はクライアントを削除します。
// DELETE /api/v1/clients/:id
func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteClient(c.Request.Context(), client.DeleteClientInput{ID: c.Param("id")}); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toClientStatus(raw *string) *client.Status {
	if raw == nil {
		return nil
	}
	status := client.Status(*raw)
	return &status
}

func toClientResponse(c *client.Client) clientResponse {
	positions := c.RequestedPositions
	if positions == nil {
		positions = []string{}
	}
	return clientResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Industry:           c.Industry,
		Status:             string(c.Status),
		Description:        c.Description,
		PrimaryContact:     c.PrimaryContact,
		ContactEmail:       c.ContactEmail,
		ContactPhone:       c.ContactPhone,
		RequestedPositions: positions,
		EmployeesAssigned:  c.EmployeesAssigned,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func parsePageSize(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidRequest("page_size must be an integer", err)
	}
	return size, nil
}

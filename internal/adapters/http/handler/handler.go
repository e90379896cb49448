package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
	"github.com/ogurasousui/staffing-ledger/internal/core/client"
	"github.com/ogurasousui/staffing-ledger/internal/core/employee"
)

// Handler は HTTP ハンドラの集約です。
type Handler struct {
	Assignment *AssignmentHandler
	Client     *ClientHandler
	Employee   *EmployeeHandler
	Health     *HealthHandler
}

// Services はハンドラが依存するユースケースです。
type Services struct {
	Assignment assignment.UseCase
	Client     client.UseCase
	Employee   employee.UseCase
	// Readiness はデータストアの疎通確認です。nil の場合は常に ok を返します。
	Readiness func(ctx context.Context) error
}

// New は Handler を生成します。
func New(svc Services) *Handler {
	return &Handler{
		Assignment: NewAssignmentHandler(svc.Assignment),
		Client:     NewClientHandler(svc.Client),
		Employee:   NewEmployeeHandler(svc.Employee),
		Health:     &HealthHandler{readiness: svc.Readiness},
	}
}

// HealthHandler は /healthz を扱います。
type HealthHandler struct {
	readiness func(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// Check はデータストアへの疎通を確認します。
// GET /healthz
func (h *HealthHandler) Check(c *gin.Context) {
	if h.readiness != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.readiness(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

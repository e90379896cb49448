package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ogurasousui/staffing-ledger/internal/adapters/http/handler"
	"github.com/ogurasousui/staffing-ledger/internal/adapters/http/middleware"
)

// Options はルーター構築時の設定です。
type Options struct {
	// RequestTimeout は /api/v1 配下のリクエスト全体に設定する期限です。0 なら設定しません。
	RequestTimeout time.Duration
}

// Setup は gin エンジンを初期化します。
func Setup(h *handler.Handler, logger *zap.Logger, opts Options) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	r.GET("/healthz", h.Health.Check)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Timeout(opts.RequestTimeout))
	{
		assignments := v1.Group("/assignments")
		{
			assignments.POST("", h.Assignment.Assign)
			assignments.POST("/remove", h.Assignment.Remove)
			assignments.GET("/active", h.Assignment.GetActive)
			assignments.GET("/stats", h.Assignment.Stats)
		}

		clients := v1.Group("/clients")
		{
			clients.POST("", h.Client.Create)
			clients.GET("", h.Client.List)
			clients.GET("/:id", h.Client.Get)
			clients.PATCH("/:id", h.Client.Update)
			clients.DELETE("/:id", h.Client.Delete)
			clients.GET("/:id/employees", h.Assignment.ListActiveByClient)
			clients.POST("/:id/recount", h.Assignment.RecomputeClientCount)
		}

		employees := v1.Group("/employees")
		{
			employees.POST("", h.Employee.Create)
			employees.GET("", h.Employee.List)
			employees.GET("/:id", h.Employee.Get)
			employees.PATCH("/:id", h.Employee.Update)
			employees.DELETE("/:id", h.Employee.Delete)
			employees.GET("/:id/clients", h.Assignment.ListActiveByEmployee)
			employees.GET("/:id/history", h.Assignment.History)
		}

		v1.POST("/maintenance/recount", h.Assignment.RecomputeAllClientCounts)
	}

	return r
}

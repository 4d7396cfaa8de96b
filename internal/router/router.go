package router

import (
	"time"

	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/handler"
	"github.com/blues/ess/internal/logic"
	"github.com/blues/ess/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func Setup(projectLogic *logic.ProjectLogic, reconciler *logic.ReconcilerLogic, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "escrow-settlement-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 项目相关路由
		projectHandler := handler.NewProjectHandler(projectLogic)
		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.POST("/:id/commitments", projectHandler.Commit)
			projects.GET("/:id/checks", projectHandler.GetRepaymentStatus)
		}
		v1.GET("/stats", projectHandler.GetPlatformStats)

		// 结算相关路由，提款挂幂等中间件
		settlementHandler := handler.NewSettlementHandler(reconciler, cfg.API.CheckerKey)
		settlement := v1.Group("/settlement")
		{
			idempTTL := time.Duration(cfg.Redis.IdempotencyTTL) * time.Second
			settlement.POST("/withdraw",
				middleware.Idempotency(rdb, idempTTL),
				settlementHandler.Withdraw)
			settlement.POST("/repayments/check", settlementHandler.CheckRepayment)
			settlement.GET("/repayments/check-all", settlementHandler.CheckAllPending)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Idempotency-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

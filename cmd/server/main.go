package main

import (
	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/custody"
	"github.com/blues/ess/internal/database"
	"github.com/blues/ess/internal/ledger"
	"github.com/blues/ess/internal/logger"
	"github.com/blues/ess/internal/logic"
	"github.com/blues/ess/internal/router"
	"github.com/blues/ess/internal/task"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if cfg.Log.Output == "file" {
		fileLogger, err := logger.NewWithFileRotation(logger.ParseLogLevel(cfg.Log.Level), cfg.Log.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(fileLogger)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 初始化托管密钥模块，主种子以密文注入，不读任何全局状态
	cust, err := custody.New(cfg.Escrow)
	if err != nil {
		logger.Fatal("Failed to initialize custody module: %v", err)
	}

	// 初始化结算账本客户端
	ledgerClient, err := ledger.Init(cfg.Ledger)
	if err != nil {
		logger.Fatal("Failed to initialize ledger client: %v", err)
	}

	// 业务逻辑
	locks := logic.NewProjectLocks()
	projectLogic := logic.NewProjectLogic(db, cust, locks)
	reconciler := logic.NewReconcilerLogic(db, cust, ledgerClient, locks, cfg.Task)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(projectLogic, reconciler, rdb, cfg)

	// 启动定时任务
	manager := task.Start(reconciler, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

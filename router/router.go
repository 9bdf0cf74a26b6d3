package router

import (
	"time"

	"genealogy/api"
	"genealogy/config"
	_ "genealogy/docs"
	"genealogy/logger"
	"genealogy/middleware"
	"genealogy/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	tree := service.NewFamilyTreeService(db)
	finance := service.NewFinanceService(db)
	export := service.NewExportService()
	accounts := service.NewAccountService(db, service.NewEmailService(&cfg.Email))

	authHandler := api.NewAuthHandler(cfg, accounts, tree)
	memberHandler := api.NewMemberHandler(tree, export)
	financeHandler := api.NewFinanceHandler(finance, export)
	eventHandler := api.NewEventHandler(service.NewEventService(db))
	uploadHandler := api.NewUploadHandler(service.NewUploadService(db, cfg.Upload.Dir, cfg.Upload.MaxSizeMB))
	accountHandler := api.NewAccountHandler(accounts)

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		auth := v1.Group("/auth")
		{
			window := time.Duration(cfg.RateLimit.LoginWindowSec) * time.Second
			auth.POST("/login", middleware.LoginRateLimit(cfg.RateLimit.LoginMaxAttempts, window), authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/password/request-reset", authHandler.RequestPasswordReset)
			auth.POST("/password/reset", middleware.LoginRateLimit(cfg.RateLimit.LoginMaxAttempts, window), authHandler.ResetPassword)

			// 本人资料与改密，只需登录
			self := auth.Group("", middleware.JWTAuth())
			self.GET("/profile", authHandler.GetProfile)
			self.PUT("/password", authHandler.ChangePassword)
		}

		// 需要 JWT 认证与权限校验的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(), middleware.Permission(db))
		{
			members := authorized.Group("/members")
			{
				members.GET("", memberHandler.List)
				members.POST("", memberHandler.Create)
				members.GET("/statistics", memberHandler.Statistics)
				members.GET("/export", memberHandler.Export)
				members.GET("/:id", memberHandler.Get)
				members.PUT("/:id", memberHandler.Update)
				members.PATCH("/:id", memberHandler.Update)
				members.DELETE("/:id", memberHandler.Delete)
			}
			authorized.GET("/unpaid-members", memberHandler.Unpaid)

			accountsGroup := authorized.Group("/accounts")
			{
				accountsGroup.GET("", accountHandler.List)
				accountsGroup.POST("", accountHandler.Create)
				accountsGroup.GET("/:id", accountHandler.Get)
				accountsGroup.PUT("/:id", accountHandler.Update)
				accountsGroup.DELETE("/:id", accountHandler.Delete)
			}

			// 财务
			crud(authorized.Group("/contribution-levels"),
				financeHandler.ListLevels, financeHandler.GetLevel, financeHandler.SaveLevel, financeHandler.DeleteLevel)
			crud(authorized.Group("/sponsors"),
				financeHandler.ListSponsors, financeHandler.GetSponsor, financeHandler.SaveSponsor, financeHandler.DeleteSponsor)
			crud(authorized.Group("/incomes"),
				financeHandler.ListIncomes, financeHandler.GetIncome, financeHandler.SaveIncome, financeHandler.DeleteIncome)
			crud(authorized.Group("/expense-categories"),
				financeHandler.ListCategories, financeHandler.GetCategory, financeHandler.SaveCategory, financeHandler.DeleteCategory)
			crud(authorized.Group("/expenses"),
				financeHandler.ListExpenses, financeHandler.GetExpense, financeHandler.SaveExpense, financeHandler.DeleteExpense)
			authorized.GET("/report", financeHandler.Report)
			authorized.GET("/report/export", financeHandler.ExportReport)

			crud(authorized.Group("/events"),
				eventHandler.List, eventHandler.Get, eventHandler.Save, eventHandler.Delete)

			files := authorized.Group("/files")
			{
				files.POST("", uploadHandler.Upload)
				files.GET("/:id", uploadHandler.Get)
				files.GET("/:id/download", uploadHandler.Download)
			}
		}
	}

	return r
}

// crud 注册标准的增删改查路由，POST 与 PUT 共用保存处理器
func crud(g *gin.RouterGroup, list, get, save, del gin.HandlerFunc) {
	g.GET("", list)
	g.POST("", save)
	g.GET("/:id", get)
	g.PUT("/:id", save)
	g.DELETE("/:id", del)
}

package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leyuan/points-mall/config"
	"github.com/leyuan/points-mall/controllers"
	"github.com/leyuan/points-mall/middleware"
	"github.com/leyuan/points-mall/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	activityController := controllers.NewActivityController(db)
	mallController := controllers.NewMallController(db)
	userController := controllers.NewUserController(db)
	adminController := controllers.NewAdminController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/send-code", authController.SendSMSCode)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/wechat/login", authController.WeChatRedirect)
	authGroup.GET("/wechat/callback", authController.WeChatCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public catalog
	api.GET("/activities", activityController.ListActivities)
	api.GET("/activities/:id", activityController.GetActivity)
	api.GET("/products", mallController.ListProducts)
	api.GET("/products/:id", mallController.GetProduct)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.GET("/activities/:id/eligibility", activityController.GetEligibility)
	protected.POST("/activities/:id/submissions", activityController.Submit)
	protected.POST("/redeem", mallController.Redeem)
	protected.GET("/users/me/points-logs", userController.PointsLogs)
	protected.GET("/users/me/orders", userController.Orders)
	protected.GET("/users/me/submissions", userController.Submissions)
	protected.GET("/users/me/invite", userController.InviteStats)

	admin := api.Group("/admin")
	admin.POST("/login", middleware.RateLimitMiddleware(), adminController.Login)

	adminAuthed := admin.Group("")
	adminAuthed.Use(middleware.AdminRequired())
	adminAuthed.GET("/stats", adminController.Stats)
	adminAuthed.GET("/activities", adminController.ListActivities)
	adminAuthed.POST("/activities", adminController.CreateActivity)
	adminAuthed.PUT("/activities/:id", adminController.UpdateActivity)
	adminAuthed.GET("/submissions", adminController.ListSubmissions)
	adminAuthed.POST("/submissions/:id/audit", adminController.AuditSubmission)
	adminAuthed.GET("/orders", adminController.ListOrders)
	adminAuthed.POST("/orders/:id/deliver", adminController.DeliverOrder)
	adminAuthed.POST("/orders/:id/cancel", adminController.CancelOrder)
	adminAuthed.GET("/users", adminController.ListUsers)
	adminAuthed.POST("/users/:id/points", adminController.AdjustPoints)
	adminAuthed.POST("/users/:id/toggle", adminController.ToggleUser)
	adminAuthed.POST("/products", adminController.CreateProduct)
	adminAuthed.PUT("/products/:id", adminController.UpdateProduct)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

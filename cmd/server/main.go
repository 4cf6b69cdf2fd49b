package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/siswa-admin/internal/handler"
	"github.com/noah-isme/siswa-admin/internal/middleware"
	"github.com/noah-isme/siswa-admin/internal/repository"
	"github.com/noah-isme/siswa-admin/internal/service"
	"github.com/noah-isme/siswa-admin/internal/session"
	"github.com/noah-isme/siswa-admin/pkg/cache"
	"github.com/noah-isme/siswa-admin/pkg/config"
	"github.com/noah-isme/siswa-admin/pkg/database"
	"github.com/noah-isme/siswa-admin/pkg/logger"
	reqidmiddleware "github.com/noah-isme/siswa-admin/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	sessions := session.NewManager(session.NewRedisStore(redisClient), cfg.Session)
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, cfg.Students.EnrollmentCutoff, logr)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := authSvc.EnsureDefaultAdmin(seedCtx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		logr.Sugar().Fatalw("failed to seed admin account", "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := middleware.NewMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(metrics.Middleware())
	r.LoadHTMLGlob(cfg.TemplatesGlob)

	authHandler := handler.NewAuthHandler(authSvc, sessions, logr)
	studentHandler := handler.NewStudentHandler(studentSvc, sessions, logr)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metrics.Handler())

	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/about", studentHandler.About)

	gate := middleware.RequireSession(sessions, logr)
	r.GET("/", gate, studentHandler.Home)

	siswa := r.Group("/data-siswa", gate)
	siswa.GET("", studentHandler.List)
	siswa.GET("/add", studentHandler.AddForm)
	siswa.POST("", studentHandler.Create)
	siswa.DELETE("", studentHandler.Delete)
	siswa.GET("/edit/:nisn", studentHandler.EditForm)
	siswa.PUT("", studentHandler.Update)
	siswa.GET("/export", studentHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := http.ListenAndServe(addr, middleware.MethodOverride(r)); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

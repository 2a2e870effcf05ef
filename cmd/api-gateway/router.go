package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-api/api/swagger"
	"github.com/noah-isme/lms-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/internal/store"
	"github.com/noah-isme/lms-api/pkg/config"
	"github.com/noah-isme/lms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *service.MetricsService
	store   *store.Store
	cache   *service.CacheService
	tokens  *service.TokenService
	checks  map[string]handler.ReadinessCheck
}

func newRouter(d routerDeps) *gin.Engine {
	validate := validator.New()

	queries := service.NewQueryService(d.store, d.logger)
	courses := service.NewCourseService(d.store, validate, d.logger)
	assignments := service.NewAssignmentService(d.store, validate, d.logger)
	enrollments := service.NewEnrollmentService(d.store, d.metrics, validate, d.logger)
	reports := service.NewReportService(d.store, d.logger)
	dashboards := service.NewDashboardService(service.DashboardServiceParams{
		Store:  d.store,
		Cache:  d.cache,
		Logger: d.logger,
		Config: service.DashboardServiceConfig{
			CacheTTL: d.cfg.Dashboard.CacheTTL,
			Location: d.cfg.Store.Location(),
		},
	})

	courseHandler := handler.NewCourseHandler(queries, courses, enrollments, reports)
	assignmentHandler := handler.NewAssignmentHandler(queries, assignments)
	progressHandler := handler.NewProgressHandler(enrollments)
	dashboardHandler := handler.NewDashboardHandler(dashboards)
	storeHandler := handler.NewStoreHandler(d.store, d.cache, d.logger)
	metricsHandler := handler.NewMetricsHandler(d.metrics, d.checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(d.metrics, "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta(d.store))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(d.tokens))

	student := internalmiddleware.RequireRoles(models.RoleStudent)
	teacher := internalmiddleware.RequireRoles(models.RoleTeacher)

	api.GET("/courses", courseHandler.List)
	api.GET("/courses/enrolled", student, courseHandler.Enrolled)
	api.GET("/courses/:id", courseHandler.Get)
	api.POST("/courses", teacher, courseHandler.Create)
	api.PUT("/courses/:id", teacher, courseHandler.Update)
	api.DELETE("/courses/:id", teacher, courseHandler.Delete)
	api.GET("/courses/:id/report", teacher, courseHandler.Report)
	api.POST("/courses/:id/enroll", student, courseHandler.Enroll)
	api.DELETE("/courses/:id/enroll", student, courseHandler.Unenroll)

	api.GET("/assignments", assignmentHandler.List)
	api.GET("/assignments/:id", assignmentHandler.Get)
	api.POST("/assignments", teacher, assignmentHandler.Create)
	api.PUT("/assignments/:id", teacher, assignmentHandler.Update)
	api.DELETE("/assignments/:id", teacher, assignmentHandler.Delete)
	api.POST("/assignments/:id/submissions", student, assignmentHandler.Submit)
	api.PUT("/assignments/:id/submissions/:submissionId/grade", teacher, assignmentHandler.Grade)

	api.GET("/progress/overall", student, progressHandler.Overall)
	api.PUT("/progress/:courseId", student, progressHandler.Update)
	api.POST("/progress/:courseId/lessons", student, progressHandler.CompleteLesson)

	api.GET("/dashboard", dashboardHandler.Get)
	api.POST("/store/refresh", teacher, storeHandler.Refresh)

	return r
}

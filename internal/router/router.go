package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/handler"
	"github.com/certiva/examportal-backend/internal/middleware"
	"github.com/certiva/examportal-backend/internal/response"
	"github.com/certiva/examportal-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Suspension    *handler.SuspensionHandler
	Incident      *handler.IncidentHandler
	Monitor       *handler.MonitorHandler
	WS            *handler.WSHandler
	Exam          *handler.ExamHandler
	Question      *handler.QuestionHandler
	Batch         *handler.BatchHandler
	StudentMgmt   *handler.StudentManagementHandler
	Subscription  *handler.SubscriptionHandler
	Taxonomy      *handler.TaxonomyHandler
	Setting       *handler.SettingHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.StudentMe)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.AdminMe)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/lobby", handlers.StudentPortal.GetLobby)
		studentAPI.GET("/subscriptions", handlers.Subscription.MySubscriptions)

		studentAPI.GET("/exams/:exam_id/results", handlers.StudentPortal.ListResults)
		studentAPI.POST("/exams/:exam_id/attempts", handlers.StudentPortal.StartAttempt)
		studentAPI.POST("/exams/:exam_id/grants", handlers.Suspension.GrantAttempts)

		studentAPI.GET("/attempts/:attempt_id/paper", handlers.StudentPortal.GetPaper)
		studentAPI.GET("/attempts/:attempt_id/state", handlers.StudentPortal.GetState)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.StudentPortal.SubmitAttempt)
		studentAPI.POST("/attempts/:attempt_id/heartbeat", handlers.StudentPortal.Heartbeat)
		studentAPI.POST("/attempts/:attempt_id/incidents", handlers.Incident.Report)

		studentAPI.GET("/attempts/:attempt_id/suspension", handlers.Suspension.GetSuspensionStatus)
		studentAPI.POST("/attempts/:attempt_id/suspension/remove", handlers.Suspension.RemoveSuspension)
		studentAPI.POST("/attempts/:attempt_id/suspension/abandon", handlers.Suspension.AbandonAttempt)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Exam management
		adminAPI.GET("/exams", handlers.Exam.List)
		adminAPI.POST("/exams", handlers.Exam.Create)
		adminAPI.GET("/exams/:exam_id", handlers.Exam.Get)
		adminAPI.PUT("/exams/:exam_id", handlers.Exam.Update)
		adminAPI.DELETE("/exams/:exam_id", handlers.Exam.Delete)
		adminAPI.PUT("/exams/:exam_id/batches", handlers.Exam.AssignBatches)

		// Question management
		adminAPI.GET("/exams/:exam_id/questions", handlers.Question.List)
		adminAPI.POST("/exams/:exam_id/questions", handlers.Question.Add)
		adminAPI.PUT("/exams/:exam_id/questions", handlers.Question.Replace)
		adminAPI.DELETE("/exams/:exam_id/questions/:question_id", handlers.Question.Delete)

		// Live monitoring
		adminAPI.GET("/exams/:exam_id/monitor", handlers.Monitor.Snapshot)
		adminAPI.GET("/exams/:exam_id/monitor/stream", handlers.Monitor.StreamSSE)

		// Security incidents
		adminAPI.GET("/incidents", handlers.Incident.Recent)
		adminAPI.GET("/incidents/counts", handlers.Incident.CountsByType)
		adminAPI.GET("/incidents/top-students", handlers.Incident.TopStudents)
		adminAPI.GET("/attempts/:attempt_id/incidents", handlers.Incident.ListForAttempt)

		// Batch management
		adminAPI.GET("/batches", handlers.Batch.List)
		adminAPI.POST("/batches", handlers.Batch.Create)
		adminAPI.GET("/batches/:batch_id", handlers.Batch.Get)
		adminAPI.PUT("/batches/:batch_id", handlers.Batch.Update)
		adminAPI.DELETE("/batches/:batch_id", handlers.Batch.Delete)

		// Student management
		adminAPI.GET("/students", handlers.StudentMgmt.List)
		adminAPI.POST("/students", handlers.StudentMgmt.Create)
		adminAPI.GET("/students/:student_id", handlers.StudentMgmt.Get)
		adminAPI.PUT("/students/:student_id", handlers.StudentMgmt.Update)
		adminAPI.DELETE("/students/:student_id", handlers.StudentMgmt.Delete)
		adminAPI.POST("/students/:student_id/reset-session", handlers.StudentMgmt.ResetSession)
		adminAPI.GET("/students/:student_id/subscriptions", handlers.Subscription.ListByStudent)

		// Subscription plans
		adminAPI.GET("/plans", handlers.Subscription.ListPlans)
		adminAPI.POST("/plans", handlers.Subscription.CreatePlan)
		adminAPI.POST("/subscriptions", handlers.Subscription.Subscribe)
		adminAPI.DELETE("/subscriptions/:subscription_id", handlers.Subscription.Cancel)

		// Taxonomy
		adminAPI.GET("/colleges", handlers.Taxonomy.ListColleges)
		adminAPI.POST("/colleges", handlers.Taxonomy.CreateCollege)
		adminAPI.DELETE("/colleges/:id", handlers.Taxonomy.DeleteCollege)
		adminAPI.GET("/subjects", handlers.Taxonomy.ListSubjects)
		adminAPI.POST("/subjects", handlers.Taxonomy.CreateSubject)
		adminAPI.DELETE("/subjects/:id", handlers.Taxonomy.DeleteSubject)
		adminAPI.GET("/courses", handlers.Taxonomy.ListCourses)
		adminAPI.POST("/courses", handlers.Taxonomy.CreateCourse)
		adminAPI.DELETE("/courses/:id", handlers.Taxonomy.DeleteCourse)

		// App settings
		settingsGroup := adminAPI.Group("/settings")
		{
			settingsGroup.GET("", handlers.Setting.GetAll)
			settingsGroup.PUT("", handlers.Setting.Update)
		}

		// System monitoring
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}

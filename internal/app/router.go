package app

import (
	"course_builder_backend/docs"
	"course_builder_backend/internal/config"
	"course_builder_backend/internal/middleware"
	"course_builder_backend/internal/model"

	"course_builder_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	// Learner course view resolves the caller when a token is present
	// but also serves anonymous visitors, who only see preview pages.
	outline := router.Group("/api")
	outline.Use(middleware.TryAuthMiddleware(cfg))
	outline.GET("/courses/:id/view", c.course.GetOutline)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerLearnerRoutes(authGroup, c)
		a.registerInstructorRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

// Learner routes: any authenticated user.
func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	rg.POST("/courses/:id/enroll", c.course.Enroll)
	rg.GET("/enrollments", c.course.ListEnrollments)
	rg.GET("/courses/:id/progress", c.progress.GetCourseProgress)
	rg.POST("/progress/complete", c.progress.MarkComplete)

	rg.GET("/templates", c.template.ListTemplates)
	rg.GET("/templates/:id", c.template.GetTemplate)
}

// Instructor routes: course authoring. Ownership of the specific course
// is enforced again in the service layer.
func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	instructor := rg.Group("/")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.POST("/courses", c.course.CreateCourse)
		instructor.GET("/courses", c.course.ListCourses)

		instructor.POST("/courses/:id/capture-template", c.template.CaptureTemplate)
		instructor.POST("/templates/:id/apply/:courseId", c.template.ApplyTemplate)

		builder := instructor.Group("/builder/courses/:courseId")
		{
			builder.GET("", c.builder.GetCourseTree)

			builder.POST("/pages", c.builder.CreatePage)
			builder.PUT("/pages/reorder", c.builder.ReorderPages)
			builder.PUT("/pages/:pageId", c.builder.UpdatePage)
			builder.DELETE("/pages/:pageId", c.builder.DeletePage)
			builder.POST("/pages/:pageId/publish", c.builder.PublishPage)
			builder.POST("/pages/:pageId/unpublish", c.builder.UnpublishPage)
			builder.POST("/pages/:pageId/duplicate", c.builder.DuplicatePage)

			builder.POST("/pages/:pageId/widgets", c.builder.AddWidget)
			builder.PUT("/pages/:pageId/widgets/reorder", c.builder.ReorderWidgets)
			builder.PUT("/pages/:pageId/widgets/:widgetId", c.builder.UpdateWidget)
			builder.DELETE("/pages/:pageId/widgets/:widgetId", c.builder.DeleteWidget)
		}
	}
}

// Admin routes: template moderation.
func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.PATCH("/templates/:id/moderate", c.template.ModerateTemplate)
	}
}

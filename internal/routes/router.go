// Package routesはroutingを行います。
package routes

import (
	"database/sql"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"task-manager/internal/config"
	"task-manager/internal/handlers"
	"task-manager/internal/metrics"
	"task-manager/internal/repositories"
	"task-manager/internal/services"
)

// Option はルーターの依存を差し替えます。主にテスト用です。
type Option func(*routerDeps)

type routerDeps struct {
	mailer services.Mailer
}

// WithMailer はパスワードリセットメールの送信先を差し替えます。
func WithMailer(m services.Mailer) Option {
	return func(d *routerDeps) { d.mailer = m }
}

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(db *sql.DB, cfg *config.Config, opts ...Option) (*gin.Engine, error) {
	deps := routerDeps{mailer: services.NewMailer(cfg.SMTP)}
	for _, opt := range opts {
		opt(&deps)
	}
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	// タイトル検索のパスパラメータに含まれる %2F を区切りとして扱わない
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery(), RequestID(), RequestLogger(), metrics.GinMiddleware())

	// CORS対策
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderRequestID}
	corsConfig.ExposeHeaders = []string{
		handlers.HeaderTotalCount, "Link", "Location", HeaderRequestID,
		handlers.HeaderAlert, handlers.HeaderError, handlers.HeaderParams,
	}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// リポジトリ
	taskRepo := repositories.NewTaskRepository(db)
	tagRepo := repositories.NewTagRepository(db)
	userRepo := repositories.NewUserRepository(db)
	resetRepo := repositories.NewSQLResetTokenRepo(db)

	// サービス
	taskService := services.NewTaskService(taskRepo, tagRepo, userRepo, loc)
	tagService := services.NewTagService(tagRepo, userRepo)
	userService := services.NewUserService(userRepo, resetRepo, deps.mailer, cfg.App)
	jwtService := services.NewJWTService(cfg.JWT.Secret, cfg.JWT.TTL)

	// ハンドラー
	userHandler := handlers.NewUserHandler(userService, jwtService)
	taskHandler := handlers.NewTaskHandler(taskService, cfg.App.Name)
	tagHandler := handlers.NewTagHandler(tagService, cfg.App.Name)

	// ルーティング
	r.GET("/api/hello", HelloHandler)
	r.GET("/api/dbcheck", DBCheckHandler(db))
	r.POST("/api/register", userHandler.RegisterHandler)
	r.POST("/api/login", userHandler.LoginHandler)
	r.POST("/api/forgot-password", userHandler.ForgotPasswordHandler)
	r.POST("/api/reset-password/:token", userHandler.ResetPasswordHandler)

	authorized := r.Group("/api")
	authorized.Use(AuthMiddleware(jwtService))
	{
		authorized.GET("/account", userHandler.AccountHandler)
		authorized.GET("/users", userHandler.UsersHandler)

		authorized.GET("/tasks", taskHandler.GetTasksHandler)
		authorized.POST("/tasks", taskHandler.CreateTaskHandler)
		authorized.GET("/tasks/:id", taskHandler.GetTaskHandler)
		authorized.PUT("/tasks/:id", taskHandler.UpdateTaskHandler)
		authorized.PATCH("/tasks/:id", taskHandler.PatchTaskHandler)
		authorized.DELETE("/tasks/:id", taskHandler.DeleteTaskHandler)
		authorized.POST("/tasks/:id/update-tags", taskHandler.UpdateTagsHandler)
		authorized.GET("/tasks/user-tasks/:userId", taskHandler.UserTasksHandler)
		authorized.GET("/tasks/tasks-by-title/:title/:userId", taskHandler.TasksByTitleHandler)
		authorized.GET("/tasks/tasks-by-day/:day/:userId", taskHandler.TasksByDayHandler)
		authorized.GET("/tasks/tasks-by-week/:week/:userId", taskHandler.TasksByWeekHandler)
		authorized.GET("/tasks/tasks-by-month/:month/:userId", taskHandler.TasksByMonthHandler)
		authorized.GET("/tasks/rel/:userId", taskHandler.RelHandler)
		authorized.GET("/tasks/rel/:userId/solved", taskHandler.SolvedHandler)

		authorized.GET("/tags", tagHandler.GetTagsHandler)
		authorized.POST("/tags", tagHandler.CreateTagHandler)
		authorized.GET("/tags/:id", tagHandler.GetTagHandler)
		authorized.PUT("/tags/:id", tagHandler.UpdateTagHandler)
		authorized.PATCH("/tags/:id", tagHandler.PatchTagHandler)
		authorized.DELETE("/tags/:id", tagHandler.DeleteTagHandler)
	}

	return r, nil
}

func HelloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from Go Backend!"})
}

// DBCheckHandler はデータベースへの疎通を確認します。
func DBCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy"})
	}
}

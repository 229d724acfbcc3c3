package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/n1207n/blog-post-api/internal/auth"
	"github.com/n1207n/blog-post-api/internal/handler"
	"github.com/n1207n/blog-post-api/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/api"

type Options struct {
	AllowedOrigins []string
	Database       middleware.DatabaseChecker
	// Verifier is optional. When nil, callers identify themselves in the body.
	Verifier auth.TokenVerifier
	Logger   *slog.Logger
}

func SetupPostRoutes(apiGroup *gin.RouterGroup, postHandler *handler.PostHandler) {
	postRoutes := apiGroup.Group("/posts")
	{
		postRoutes.GET("", postHandler.ListPosts)
		postRoutes.POST("", postHandler.CreatePost)
		postRoutes.GET("/:id", postHandler.GetPost)
		postRoutes.PUT("/:id", postHandler.UpdatePost)
		postRoutes.DELETE("/:id", postHandler.DeletePost)
	}
}

// New builds the engine. The liveness and metrics routes sit outside /api
// so they keep answering when the database is misconfigured.
func New(opts Options, postHandler *handler.PostHandler) *gin.Engine {
	router := gin.New()
	if gin.Mode() != gin.ReleaseMode {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery(), middleware.Metrics(), middleware.CORS(apiPrefix, opts.AllowedOrigins))

	router.GET("/", handler.Root)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group(apiPrefix,
		middleware.RequireDatabase(opts.Database, opts.Logger),
		middleware.Identity(opts.Verifier, opts.Logger),
	)
	SetupPostRoutes(api, postHandler)

	return router
}

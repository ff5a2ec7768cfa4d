package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-dev/inkwell/config"
	"github.com/inkwell-dev/inkwell/controllers"
	"github.com/inkwell-dev/inkwell/middleware"
	"github.com/inkwell-dev/inkwell/utils"
)

// SetupRouter wires every endpoint with its middleware chain.
func SetupRouter(db *gorm.DB, verifier *utils.TokenVerifier) *gin.Engine {
	cfg := config.Get()
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(utils.AccessLog(utils.Logger))
	r.Use(utils.Recovery(utils.Logger))

	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))

	authRequired := middleware.VerifyToken(verifier)

	authController := controllers.NewAuthController(db, verifier)
	postController := controllers.NewPostController(db)
	commentController := controllers.NewCommentController(db)
	userController := controllers.NewUserController(db)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.Use(middleware.RateLimit())
	{
		auth.POST("/signup", authController.Signup)
		auth.POST("/login", authController.Login)
		auth.POST("/logout", authRequired, authController.Logout)
		auth.GET("/authorize-url", authController.AuthorizeURL)
		auth.GET("/callback", authController.Callback)
		auth.GET("/verify-token", authController.VerifyTokenEndpoint)
	}

	posts := r.Group("/posts")
	{
		posts.GET("", postController.ListPosts)
		posts.GET("/:slug", postController.GetPostBySlug)
		posts.POST("", authRequired, postController.CreatePost)
		posts.PUT("/:id", authRequired, postController.UpdatePost)
		posts.DELETE("/:id", authRequired, postController.DeletePost)
		posts.POST("/upload", authRequired, postController.UploadCoverImage)
		posts.POST("/reactions", postController.RecordReactions)
	}

	comments := r.Group("/comments")
	{
		comments.GET("/:postId", commentController.ListComments)
		comments.POST("/:slug", commentController.CreateComment)
		comments.POST("/:slug/reply", commentController.CreateReply)
		comments.POST("/:slug/user", authRequired, commentController.CreateUserComment)
		comments.PUT("/:id", commentController.UpdateComment)
		comments.DELETE("/:id", commentController.DeleteComment)
	}

	users := r.Group("/users")
	{
		users.POST("", authRequired, userController.ProvisionUser)
		users.GET("/:sub", userController.GetProfile)
		users.GET("/:sub/posts", userController.GetUserPosts)
		users.PUT("/:id", userController.UpdateUser)
		users.DELETE("/:id", userController.DeleteUser)
		users.POST("/:sub/bio", authRequired, userController.UpdateBio)
		users.POST("/:sub/pic", authRequired, userController.UpdateProfilePicture)
	}

	r.Static("/uploads", "./uploads")

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

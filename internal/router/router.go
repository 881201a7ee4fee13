package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/gunvortv/internal/handler"
	"github.com/user/gunvortv/internal/middleware"
)

// RegisterRoutes registers every route
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	secret := h.Config.AppSecret

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== catalog ====================
	aiLimiter := middleware.NewRateLimiter(h.Config.AuthRateLimit, h.Config.AuthRateBurst)
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(secret))
	{
		api.GET("/home", h.Home)
		api.GET("/movies", h.Movies)
		api.GET("/series", h.Series)
		api.GET("/movie/:id", h.MovieDetail)
		api.GET("/series/:id", h.SeriesDetail)
		api.GET("/content/:id", h.Content)
		api.GET("/content/:id/related", h.Related)
		api.GET("/content/:id/summary", h.ContentSummary)
		api.GET("/content/:id/reviews", h.ContentReviews)
		api.GET("/random", h.Random)
		api.GET("/search", h.Search)
		api.GET("/collections", h.Collections)
		api.GET("/collection/:slug", h.Collection)
		api.GET("/creator/:id", h.Creator)
		api.POST("/discover", aiLimiter.Middleware(), h.Discover)
	}

	// ==================== auth ====================
	limiter := middleware.NewRateLimiter(h.Config.AuthRateLimit, h.Config.AuthRateBurst)
	auth := r.Group("/auth")
	auth.Use(limiter.Middleware())
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
		auth.GET("/google/login", h.GoogleLogin)
		auth.GET("/google/callback", h.GoogleCallback)
	}

	// ==================== signed in ====================
	user := r.Group("/api")
	user.Use(middleware.RequireAuth(secret))
	{
		user.GET("/me", h.Me)
		user.PUT("/me", h.UpdateMe)
		user.DELETE("/me", h.DeleteMe)

		user.GET("/me/wishlist", h.Wishlist)
		user.POST("/me/wishlist/:contentId", h.AddToWishlist)
		user.DELETE("/me/wishlist/:id", h.RemoveFromWishlist)

		user.GET("/me/recommendations", aiLimiter.Middleware(), h.Recommendations)

		user.GET("/me/reviews", h.MyReviews)
		user.POST("/content/:id/reviews", h.CreateReview)
		user.PUT("/reviews/:id", h.UpdateReview)
		user.DELETE("/reviews/:id", h.DeleteReview)
	}
}

package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/jmarlow/fluxgen-golang/internal/handlers"
	"github.com/jmarlow/fluxgen-golang/internal/middleware"
)

// CORSMiddleware tells the browser the frontend origin may call us.
func CORSMiddleware() gin.HandlerFunc {
	// Default to the local Vite dev server.
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		// The browser sends an empty OPTIONS request first to check
		// permissions. Reply with "204 No Content".
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)

		// --- Public Checkout Routes ---
		v1.GET("/checkout/packages", h.GetCreditPackages)

		// --- Stripe Webhook (Public, signature-verified) ---
		v1.POST("/webhooks/stripe", h.StripeWebhook)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			auth.GET("/profile/me", h.GetMe)

			// --- Credits & Generation ---
			auth.GET("/credits", h.GetMyCredits)
			auth.POST("/generate", h.GenerateImage)
			auth.GET("/generations", h.ListMyGenerations)

			// --- Checkout ---
			auth.POST("/checkout", h.CreateCheckout)
		}
	}

	return router
}

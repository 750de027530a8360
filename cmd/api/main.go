package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jmarlow/fluxgen-golang/internal/auth"
	"github.com/jmarlow/fluxgen-golang/internal/database"
	"github.com/jmarlow/fluxgen-golang/internal/fal"
	"github.com/jmarlow/fluxgen-golang/internal/handlers"
	"github.com/jmarlow/fluxgen-golang/internal/payments"
	"github.com/jmarlow/fluxgen-golang/internal/routes"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- JWT Secret ---
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("CRITICAL ERROR: JWT_SECRET environment variable is not set.")
	}
	auth.SetSecret(jwtSecret)

	// 2. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	// 3. --- Image Provider (fal.ai) ---
	falKey := os.Getenv("FAL_API_KEY")
	if falKey == "" {
		log.Fatal("CRITICAL ERROR: FAL_API_KEY environment variable is not set.")
	}
	falService := fal.NewService(falKey)

	// 4. --- Payments (Stripe) ---
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		log.Fatal("CRITICAL ERROR: STRIPE_SECRET_KEY environment variable is not set.")
	}
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Fatal("CRITICAL ERROR: STRIPE_WEBHOOK_SECRET environment variable is not set.")
	}

	successURL := os.Getenv("CHECKOUT_SUCCESS_URL")
	if successURL == "" {
		successURL = "http://localhost:5173/success?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := os.Getenv("CHECKOUT_CANCEL_URL")
	if cancelURL == "" {
		cancelURL = "http://localhost:5173/"
	}

	stripeService := payments.NewService(stripeKey, webhookSecret, successURL, cancelURL)

	// --- Application Setup ---
	// We inject ALL dependencies (DB and service clients) into the
	// Handlers struct.
	app := &handlers.Handlers{
		DB:       db,
		Fal:      falService,
		Payments: stripeService,
	}

	// 5. --- Background Worker ---
	// Sweeps pending purchases whose checkout sessions can no longer
	// complete (Stripe sessions expire after 24 hours).
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Println("Background worker started: monitoring for stale checkout sessions...")

		for range ticker.C {
			app.ExpireStalePurchases()
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting fluxgen API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

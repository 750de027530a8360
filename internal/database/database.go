package database

import (
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// OpenDB initializes and returns the MySQL connection pool.
// The DSN is read from the DB_DSN environment variable.
func OpenDB() (*sql.DB, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		// Local development fallback.
		dsn = "root:@tcp(127.0.0.1:3306)/fluxgen?parseTime=true"
	}

	return OpenDBWithDSN(dsn)
}

// OpenDBWithDSN creates and configures a DB connection pool from any DSN.
func OpenDBWithDSN(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings: generation requests hold a connection only for the
	// short queries around the provider call, never during it.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Printf("Error connecting to database: %v", err)
		return nil, err
	}

	log.Println("Database connection pool established successfully")
	return db, nil
}

// EnsureSchema creates the tables the API needs if they don't exist yet.
// Called once at startup so a fresh database is usable immediately.
func EnsureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_credits (
			user_id BIGINT PRIMARY KEY,
			credits INT NOT NULL DEFAULT 0,
			total_credits_purchased INT NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS image_generations (
			id CHAR(36) PRIMARY KEY,
			user_id BIGINT NOT NULL,
			prompt TEXT NOT NULL,
			image_url TEXT NOT NULL,
			seed BIGINT NULL,
			image_size VARCHAR(32) NOT NULL,
			credits_used INT NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_generations_user_created (user_id, created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS credit_purchases (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			package_id VARCHAR(32) NOT NULL,
			credits INT NOT NULL,
			amount_cents INT NOT NULL,
			currency VARCHAR(8) NOT NULL,
			stripe_session_id VARCHAR(255) NOT NULL UNIQUE,
			status ENUM('pending', 'completed', 'expired') NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_purchases_status_created (status, created_at)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSecretKey signs every token we issue. It must be set through the
// JWT_SECRET environment variable before the server starts.
var jwtSecretKey = []byte(os.Getenv("JWT_SECRET"))

// SetSecret overrides the signing key. Used by main (after godotenv has
// loaded the .env file) and by tests.
func SetSecret(secret string) {
	jwtSecretKey = []byte(secret)
}

// GenerateToken creates a new JWT for a given user ID.
func GenerateToken(userID int64) (string, error) {
	// 1. Create the claims. "sub" carries the user ID, and the token
	// expires after 72 hours.
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour * 72).Unix(),
		"iat": time.Now().Unix(),
	}

	// 2. Create and sign the token with HS256.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(jwtSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken parses and validates a JWT token string.
// It returns the user ID (subject) if the token is valid.
func ValidateToken(tokenString string) (int64, error) {
	// 1. Parse the token string.
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 2. Check the signing method matches what we issue.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		return jwtSecretKey, nil
	})
	if err != nil {
		return 0, err // Token parsing failed (e.g., expired, malformed)
	}

	// 3. Check if the token is valid and extract the claims.
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		// "sub" arrives as float64 (JSON's number type).
		userIDFloat, ok := claims["sub"].(float64)
		if !ok {
			return 0, errors.New("invalid subject claim")
		}
		return int64(userIDFloat), nil
	}

	return 0, errors.New("invalid token")
}

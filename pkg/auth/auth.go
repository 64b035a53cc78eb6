package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/assignment-engine-go/pkg/database"
)

var (
	// ErrInvalidKey is returned for API keys that are malformed or wrongly signed.
	ErrInvalidKey = errors.New("invalid api key")

	// ErrInvalidUnit is returned when a unit id cannot be embedded in a key.
	ErrInvalidUnit = errors.New("unit id must be non-empty and must not contain '.'")
)

var jwtAlgorithm = jwt.SigningMethodHS256

// bcrypt work factor for admin passwords
var passwordCost = 14

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte { return []byte(os.Getenv("JWT_SECRET")) }

func masterSecret() []byte { return []byte(os.Getenv("API_MASTER_SECRET")) }

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func CreateToken(username string) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(jwtSecret())
}

// VerifyToken verifies a JWT token
func VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// VerifyAPIKey looks up a stored key and stamps its last use
func VerifyAPIKey(db *gorm.DB, key string) (*database.APIKey, error) {
	var apiKey database.APIKey
	if err := db.Where("key = ?", key).First(&apiKey).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	apiKey.LastUsed = &now
	db.Model(&apiKey).Update("last_used", now)

	return &apiKey, nil
}

// EnsureAdminExists creates the admin user from ADMIN_USERNAME and
// ADMIN_PASSWORD when no admin exists yet
func EnsureAdminExists(db *gorm.DB, logger *slog.Logger) error {
	var count int64
	if err := db.Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		logger.Warn("ADMIN_PASSWORD is not set, using the default password")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := database.MasterUser{
		Username:     username,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	logger.Info("default admin user created", "username", username)
	return nil
}

func sign(payload string) string {
	h := hmac.New(sha256.New, masterSecret())
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateHMACKey creates a signed API key bound to a congregation. Keys have
// the form unit.nonce.signature so one unit can hold several keys.
func GenerateHMACKey(unitID string) (string, error) {
	if unitID == "" || strings.Contains(unitID, ".") {
		return "", ErrInvalidUnit
	}
	payload := unitID + "." + strings.ReplaceAll(uuid.NewString(), "-", "")
	return payload + "." + sign(payload), nil
}

// VerifyHMACKey validates an HMAC-signed API key and returns its unit id
func VerifyHMACKey(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] == "" {
		return "", fmt.Errorf("%w: bad format", ErrInvalidKey)
	}

	expected := sign(parts[0] + "." + parts[1])
	if !hmac.Equal([]byte(parts[2]), []byte(expected)) {
		return "", fmt.Errorf("%w: bad signature", ErrInvalidKey)
	}
	return parts[0], nil
}

// Preview returns the displayable prefix of a key
func Preview(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:12] + "..."
}

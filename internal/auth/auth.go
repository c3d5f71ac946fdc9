// Package auth handles authentication for the dashboard API. Operators log
// in with a username and password and receive a JWT carrying their identity;
// approval and rejection decisions are attributed to that identity.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// User is a dashboard operator.
type User struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Claims are the JWT claims issued at login.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// LoginResponse is returned from a successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	User      User   `json:"user"`
}

// Manager issues and validates operator tokens.
type Manager struct {
	jwtSecret string
	users     map[string]User
	passwords map[string]string
	tokenTTL  time.Duration
}

// NewManager creates an auth manager. An empty secret gets a random one for
// the session, which invalidates tokens across restarts.
func NewManager(jwtSecret string) *Manager {
	if jwtSecret == "" {
		jwtSecret = generateRandomSecret(32)
		log.Printf("[Auth] Generated random JWT secret for session (not persistent)")
	}

	m := &Manager{
		jwtSecret: jwtSecret,
		users:     make(map[string]User),
		passwords: make(map[string]string),
		tokenTTL:  24 * time.Hour,
	}

	// Default operator account (password: admin). Replace via AddUser.
	if err := m.AddUser("admin", "admin", "operator"); err != nil {
		log.Printf("[Auth] Failed to create default user: %v", err)
	}

	return m
}

// AddUser registers an operator with a bcrypt-hashed password.
func (m *Manager) AddUser(username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	m.users[username] = User{
		Username:  username,
		Role:      role,
		CreatedAt: time.Now(),
	}
	m.passwords[username] = string(hash)
	return nil
}

// Login verifies credentials and returns a signed token.
func (m *Manager) Login(username, password string) (*LoginResponse, error) {
	user, exists := m.users[username]
	if !exists {
		return nil, fmt.Errorf("invalid username or password")
	}

	hash, exists := m.passwords[username]
	if !exists {
		return nil, fmt.Errorf("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid username or password")
	}

	token, err := m.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:     token,
		ExpiresIn: int64(m.tokenTTL.Seconds()),
		User:      user,
	}, nil
}

// GenerateToken signs a JWT for the given user.
func (m *Manager) GenerateToken(user User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "inframon",
			Subject:   user.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a token and returns its claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	return claims, nil
}

func generateRandomSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("fallback-secret-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

/*
auth.go - Accounts, JWT issuance and the auth middleware

PURPOSE:
  Registers and logs in users, issues HS256 tokens and guards the API.

TOKENS:
  Claims: id, username, email, role (+ exp, iat)
  Sent as:  Authorization: Bearer <token>
  Missing token  -> 401 "Access token required"
  Invalid token  -> 403 "Invalid or expired token"

PASSWORDS:
  bcrypt, default cost. The plain password never leaves the handler.

SEEDING:
  SeedAdmin creates the configured admin account when no user exists.
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/warp/student-ledger/generic"
	"github.com/warp/student-ledger/store/sqlite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// TOKENS
// =============================================================================

// Claims is the payload of an access token.
type Claims struct {
	ID       generic.UserID `json:"id"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Role     string         `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth signs and verifies access tokens.
type Auth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuth creates an Auth with the given HMAC secret and token lifetime.
func NewAuth(secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for u.
func (a *Auth) Issue(u sqlite.User) (string, error) {
	now := a.now()
	claims := Claims{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies a token and returns its claims.
func (a *Auth) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

type claimsKey struct{}

// ClaimsFrom returns the claims stored by RequireAuth.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// RequireAuth rejects requests without a valid bearer token.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}
		claims, err := h.Auth.Parse(token)
		if err != nil {
			writeError(w, http.StatusForbidden, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

// Register creates an account and logs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error registering user")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.writeDomainError(w, r, err, "Error registering user")
		return
	}
	user, err := h.Store.CreateUser(r.Context(), sqlite.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		Role:         sqlite.RoleUser,
	})
	if err != nil {
		h.writeDomainError(w, r, err, "Error registering user")
		return
	}

	token, err := h.Auth.Issue(user)
	if err != nil {
		h.writeDomainError(w, r, err, "Error registering user")
		return
	}
	h.Log.Info("user registered", zap.String("username", user.Username), zap.Int64("id", int64(user.ID)))
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   token,
		User:    userToDTO(user),
	})
}

// Login checks a username (or email) and password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error during login")
		return
	}

	user, err := h.Store.FindUserByLogin(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		h.writeDomainError(w, r, err, "Error during login")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.Metrics.LoginFailures.Inc()
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.Auth.Issue(*user)
	if err != nil {
		h.writeDomainError(w, r, err, "Error during login")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    userToDTO(*user),
	})
}

// Verify echoes the claims of a valid token.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Token is valid",
		User:    UserDTO{ID: claims.ID, Username: claims.Username, Email: claims.Email, Role: claims.Role},
	})
}

// =============================================================================
// SEEDING
// =============================================================================

// SeedAdmin creates the admin account when the users table is empty.
// Returns true when an account was created.
func (h *Handler) SeedAdmin(ctx context.Context) (bool, error) {
	n, err := h.Store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(h.Config.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	_, err = h.Store.CreateUser(ctx, sqlite.User{
		Username:     h.Config.AdminUsername,
		Email:        h.Config.AdminEmail,
		PasswordHash: string(hash),
		Role:         sqlite.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed admin: %w", err)
	}
	h.Log.Info("default admin created", zap.String("username", h.Config.AdminUsername))
	return true, nil
}

package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/readmodel"
	"go.uber.org/zap"
)

const refreshCookieName = "refresh_token"

// hashToken creates a SHA-256 hash of the token for secure storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	userService *user.Service
	jwtService  *auth.JWTService
	readStore   store.ReadStoreInterface
	sessions    store.SessionStore
	logger      *zap.Logger
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(userService *user.Service, jwtService *auth.JWTService, readStore store.ReadStoreInterface, sessions store.SessionStore, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		userService: userService,
		jwtService:  jwtService,
		readStore:   readStore,
		sessions:    sessions,
		logger:      logging.Component(logger, "auth"),
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	Role        string       `json:"role"`
	User        UserResponse `json:"user"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func newUserResponse(u *readmodel.UserReadModel) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Signup handles user registration and signs the new user in
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	newUser, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			respondJSONError(w, "Email already registered", http.StatusConflict)
		case errors.Is(err, auth.ErrPasswordTooShort):
			respondJSONError(w, "Password must be at least 8 characters", http.StatusBadRequest)
		case errors.Is(err, user.ErrInvalidEmail), errors.Is(err, user.ErrInvalidName):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("signup failed", zap.Error(err))
			respondJSONError(w, "Registration failed", http.StatusInternalServerError)
		}
		return
	}

	accessToken, sessionID, err := h.issueTokens(w, r, newUser)
	if err != nil {
		h.logger.Error("failed to issue tokens", zap.String("user_id", newUser.ID), zap.Error(err))
		respondJSONError(w, "Registration failed", http.StatusInternalServerError)
		return
	}
	h.recordLogin(r, newUser.ID, sessionID)

	respondJSON(w, http.StatusCreated, AuthResponse{
		AccessToken: accessToken,
		Role:        newUser.Role,
		User:        newUserResponse(newUser),
	})
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userModel, err := h.userService.Authenticate(req.Email, req.Password)
	if err != nil {
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	accessToken, sessionID, err := h.issueTokens(w, r, userModel)
	if err != nil {
		h.logger.Error("failed to issue tokens", zap.String("user_id", userModel.ID), zap.Error(err))
		respondJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}
	h.recordLogin(r, userModel.ID, sessionID)

	respondJSON(w, http.StatusOK, AuthResponse{
		AccessToken: accessToken,
		Role:        userModel.Role,
		User:        newUserResponse(userModel),
	})
}

// Logout ends the session named by the refresh cookie. It always succeeds.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID := ""

	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		sessionID = hashToken(cookie.Value)
		session, found, err := h.sessions.Take(r.Context(), sessionID)
		if err != nil {
			h.logger.Warn("failed to end session", zap.Error(err))
		}
		if found && userID == "" {
			userID = session.UserID
		}
	}

	if userID != "" {
		if err := h.userService.RecordLogout(r.Context(), userID, sessionID); err != nil {
			h.logger.Warn("failed to record logout", zap.String("user_id", userID), zap.Error(err))
		}
	}

	h.clearRefreshCookie(w, r)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Refresh rotates the refresh cookie and returns a new access token
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie(refreshCookieName)
	if err != nil || refreshCookie.Value == "" {
		respondJSONError(w, "No refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(refreshCookie.Value)
	if err != nil {
		h.clearRefreshCookie(w, r)
		respondJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	// Take deletes the session, so each refresh token is spent once
	session, found, err := h.sessions.Take(r.Context(), hashToken(refreshCookie.Value))
	if err != nil {
		h.logger.Error("failed to load session", zap.String("user_id", userID), zap.Error(err))
		respondJSONError(w, "Refresh failed", http.StatusInternalServerError)
		return
	}
	if !found {
		h.clearRefreshCookie(w, r)
		respondJSONError(w, "Session not found", http.StatusUnauthorized)
		return
	}
	if session.UserID != userID || time.Now().After(session.ExpiresAt) {
		h.clearRefreshCookie(w, r)
		respondJSONError(w, "Session expired", http.StatusUnauthorized)
		return
	}

	userData, exists := h.readStore.Get(store.CollectionUsers, userID)
	if !exists {
		h.clearRefreshCookie(w, r)
		respondJSONError(w, "User not found", http.StatusUnauthorized)
		return
	}
	userModel := userData.(*readmodel.UserReadModel)

	accessToken, _, err := h.issueTokens(w, r, userModel)
	if err != nil {
		h.logger.Error("failed to issue tokens", zap.String("user_id", userID), zap.Error(err))
		respondJSONError(w, "Refresh failed", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("session refreshed", zap.String("user_id", userID))
	respondJSON(w, http.StatusOK, map[string]string{
		"accessToken": accessToken,
	})
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userData, exists := h.readStore.Get(store.CollectionUsers, claims.UserID)
	if !exists {
		respondJSONError(w, "User not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, newUserResponse(userData.(*readmodel.UserReadModel)))
}

// Helper methods

// issueTokens signs a token pair, records the session under the refresh
// token's hash and sets the refresh cookie. It returns the access token and
// the session id.
func (h *AuthHandlers) issueTokens(w http.ResponseWriter, r *http.Request, u *readmodel.UserReadModel) (string, string, error) {
	accessToken, _, err := h.jwtService.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, refreshExpiry, err := h.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return "", "", err
	}

	sessionID := hashToken(refreshToken)
	err = h.sessions.Save(r.Context(), &readmodel.SessionReadModel{
		ID:               sessionID,
		UserID:           u.ID,
		RefreshTokenHash: sessionID,
		ExpiresAt:        refreshExpiry,
		CreatedAt:        time.Now().UTC(),
		UserAgent:        r.UserAgent(),
	})
	if err != nil {
		return "", "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return accessToken, sessionID, nil
}

// recordLogin appends the login event. Failure does not fail the login.
func (h *AuthHandlers) recordLogin(r *http.Request, userID, sessionID string) {
	if err := h.userService.RecordLogin(r.Context(), userID, sessionID, r.UserAgent()); err != nil {
		h.logger.Warn("failed to record login", zap.String("user_id", userID), zap.Error(err))
	}
}

func (h *AuthHandlers) clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
	})
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

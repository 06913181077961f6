package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/BradenHooton/ditto/internal/auth"
	"github.com/BradenHooton/ditto/internal/models"
	pkghttp "github.com/BradenHooton/ditto/pkg/http"
	pkglogger "github.com/BradenHooton/ditto/pkg/logger"
)

// SessionServiceInterface defines the session operations exposed over HTTP
type SessionServiceInterface interface {
	StartVerification(ctx context.Context, phone string) error
	CompleteVerification(ctx context.Context, phone, code string) (*models.TokenPair, error)
	RenewSession(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	AuthenticateFederated(ctx context.Context, provider, token string) (*models.FederatedSession, error)
	GetMe(ctx context.Context, userID string) (*models.UserSummary, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  SessionServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service SessionServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// SendCodeRequest represents the request body for /auth/send-otp
type SendCodeRequest struct {
	Phone string `json:"phone" validate:"required,intl_phone"`
}

// VerifyCodeRequest represents the request body for /auth/verify-otp
type VerifyCodeRequest struct {
	Phone string `json:"phone" validate:"required,intl_phone"`
	Code  string `json:"otp" validate:"required,max=16"`
}

// RefreshRequest represents the request body for token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SocialRequest represents the request body for federated sign-in
type SocialRequest struct {
	Provider string `json:"provider" validate:"required,max=32"`
	Token    string `json:"token" validate:"required"`
}

// SendCode issues a verification code to a phone number
// @Summary Send verification code
// @Accept json
// @Param request body SendCodeRequest true "Send code request"
// @Success 204
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/send-otp [post]
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.StartVerification(h.requestContext(r), req.Phone); err != nil {
		writeSessionError(w, err)
		return
	}

	pkghttp.WriteNoContent(w)
}

// VerifyCode exchanges a phone and code for a token pair
// @Summary Verify code
// @Accept json
// @Param request body VerifyCodeRequest true "Verify code request"
// @Produce json
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /auth/verify-otp [post]
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.service.CompleteVerification(h.requestContext(r), req.Phone, strings.TrimSpace(req.Code))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, pair)
}

// Refresh rotates a refresh token into a new pair
// @Summary Refresh session
// @Accept json
// @Param request body RefreshRequest true "Refresh request"
// @Produce json
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.service.RenewSession(h.requestContext(r), req.RefreshToken)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, pair)
}

// Social signs a user in with an identity provider token
// @Summary Federated sign-in
// @Accept json
// @Param request body SocialRequest true "Social request"
// @Produce json
// @Success 200 {object} models.FederatedSession
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/social [post]
func (h *AuthHandler) Social(w http.ResponseWriter, r *http.Request) {
	var req SocialRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.service.AuthenticateFederated(h.requestContext(r), req.Provider, req.Token)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, session)
}

// Me returns the profile of the bearer-token user
// @Summary Current user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.UserSummary
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetUserFromContext(r)
	if identity == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	summary, err := h.service.GetMe(r.Context(), identity.UserID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, summary)
}

// decodeAndValidate writes the error response itself and reports whether handling may continue
func (h *AuthHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}

	if err := ValidateRequest(req); err != nil {
		if isPhoneFailure(req) {
			writeSessionError(w, models.ErrInvalidPhoneFormat)
			return false
		}
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

func (h *AuthHandler) requestContext(r *http.Request) context.Context {
	return pkglogger.WithClientIP(r.Context(), pkghttp.ExtractClientIP(r, h.ipConfig))
}

// writeSessionError maps session failures to the JSON error envelope
func writeSessionError(w http.ResponseWriter, err error) {
	var locked *models.LockedError
	switch {
	case errors.Is(err, models.ErrInvalidPhoneFormat):
		pkghttp.WriteError(w, http.StatusBadRequest, "invalid_phone", "Phone number must be in international format")
	case errors.As(err, &locked):
		pkghttp.WriteError(w, http.StatusTooManyRequests, "account_locked",
			fmt.Sprintf("Too many failed attempts. Try again in %d minutes.", locked.Minutes()))
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteError(w, http.StatusTooManyRequests, "account_locked", "Too many failed attempts. Try again later.")
	case errors.Is(err, models.ErrInvalidCode):
		pkghttp.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid or expired verification code")
	case errors.Is(err, models.ErrUserNotFound):
		pkghttp.WriteError(w, http.StatusNotFound, "user_not_found", "No account is registered for this phone number")
	case errors.Is(err, models.ErrInvalidRefreshToken):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "Invalid or expired refresh token")
	case errors.Is(err, models.ErrUnsupportedProvider):
		pkghttp.WriteError(w, http.StatusBadRequest, "unsupported_provider", "Unsupported authentication provider")
	case errors.Is(err, models.ErrInvalidProviderToken):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_provider_token", "Invalid provider token")
	case errors.Is(err, models.ErrSocialAuthFailed):
		pkghttp.WriteError(w, http.StatusInternalServerError, "social_auth_failed", "Social authentication failed")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"vaanifill/internal/model"
	"vaanifill/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignupRequest represents a user registration request.
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignupResponse represents a successful registration.
type SignupResponse struct {
	Message string         `json:"message"`
	User    *model.Account `json:"user"`
}

// LoginResponse represents an authentication response.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *model.Account `json:"user"`
}

// ProtectedResponse echoes the authenticated subject.
type ProtectedResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// Signup godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Registration data"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, SignupResponse{
		Message: "user registered successfully",
		User:    account,
	})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, expiresAt, account, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      account,
	})
}

// Protected godoc
// @Summary Check a bearer token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProtectedResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /protected [get]
func (h *AuthHandler) Protected(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProtectedResponse{
		Message: "access granted",
		UserID:  id.ID.String(),
	})
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/campushub/campushub-api/internal/api/metrics"
	"github.com/campushub/campushub-api/internal/core/domain"
	"github.com/campushub/campushub-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=student lecturer admin"`
	NPM      string `json:"npm"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type syncRequest struct {
	Token  string `json:"token" validate:"required"`
	Name   string `json:"name"`
	Role   string `json:"role" validate:"omitempty,oneof=student lecturer admin"`
	NPM    string `json:"npm"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar"`
}

type sessionData struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// successResponse is the envelope every auth endpoint answers with. Local and
// federated logins share it so clients never branch on auth method.
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// Register creates a password-backed account and returns a session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  successResponse
// @Failure      400   {object}  map[string]any
// @Failure      409   {object}  map[string]any
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrValidation)
	}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	signed, user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		NPM:      req.NPM,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(user.Role).Inc()
	return c.JSON(http.StatusCreated, successResponse{Success: true, Data: sessionData{Token: signed, User: user}})
}

// Login authenticates a local credential pair.
//
// @Summary      Login with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  successResponse
// @Failure      401   {object}  map[string]any
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrValidation)
	}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	signed, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("password", "failure").Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("password", "success").Inc()
	return c.JSON(http.StatusOK, successResponse{Success: true, Data: sessionData{Token: signed, User: user}})
}

// Sync exchanges a federated identity token for a local session, creating or
// linking the account as needed.
//
// @Summary      Login or register with a federated identity token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      syncRequest  true  "Provider token and optional profile hints"
// @Success      200   {object}  successResponse
// @Failure      401   {object}  map[string]any
// @Router       /auth/sync [post]
func (h *AuthHandler) Sync(c echo.Context) error {
	var req syncRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrValidation)
	}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	signed, user, err := h.authService.FederatedLogin(c.Request().Context(), req.Token, ports.ProfileHints{
		Name:   req.Name,
		Role:   req.Role,
		NPM:    req.NPM,
		Phone:  req.Phone,
		Avatar: req.Avatar,
	})
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("federated", "failure").Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("federated", "success").Inc()
	return c.JSON(http.StatusOK, successResponse{Success: true, Data: sessionData{Token: signed, User: user}})
}

// GetUser returns a user record by id. Route-level middleware restricts it
// to the user themselves or an admin.
//
// @Summary      Fetch a user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  successResponse
// @Failure      403  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /users/{id} [get]
func (h *AuthHandler) GetUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: id must be numeric", domain.ErrValidation)
	}

	user, err := h.authService.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Data: echo.Map{"user": user}})
}

// Me returns the user record behind the caller's session token.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  successResponse
// @Failure      401  {object}  map[string]any
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Data: echo.Map{"user": user}})
}

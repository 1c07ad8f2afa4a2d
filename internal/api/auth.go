package api

import (
	"net/http"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/middleware"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/response"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the session token
type LoginResponse struct {
	Token string          `json:"token"`
	User  models.AuthUser `json:"user"`
}

// Login opens a session
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	token, user, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessJSON(c, LoginResponse{Token: token, User: user})
}

// Logout drops the current session
func (h *Handlers) Logout(c *gin.Context) {
	token := c.GetString(middleware.ContextTokenKey)
	if err := h.Auth.Logout(c.Request.Context(), token); err != nil {
		logging.Errorf("Failed to drop session: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to log out")
		return
	}
	response.SuccessJSON(c, nil)
}

// Me returns the authenticated user
func (h *Handlers) Me(c *gin.Context) {
	response.SuccessJSON(c, middleware.CurrentUser(c))
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carrental/internal/middleware"
	"carrental/internal/service"
)

// UserHandler handles HTTP requests about the authenticated user.
type UserHandler struct{}

// NewUserHandler creates a new UserHandler.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me handles GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		respondError(c, service.ErrUnauthorized)
		return
	}

	respondJSON(c, http.StatusOK, newUserResponse(principal))
}

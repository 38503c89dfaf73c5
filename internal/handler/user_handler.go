package handler

import (
	"net/http"

	"github.com/SergeiKhy/geolink/internal/middleware"
	"github.com/SergeiKhy/geolink/internal/models"
	"github.com/SergeiKhy/geolink/internal/response"
	"github.com/SergeiKhy/geolink/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users service.UserService
}

func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type UpdateUserRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=100"`
	Avatar *string `json:"avatar" binding:"omitempty,max=2048"`
}

// GetUser handles GET /user/get/:id. Only the caller's own record includes the email.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := int64Param(c, "id", errInvalidUserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if callerID, _ := middleware.UserIDFromContext(c); callerID != user.ID {
		c.JSON(http.StatusOK, response.OK(user.Public(), "User fetched successfully"))
		return
	}
	c.JSON(http.StatusOK, response.OK(user, "User fetched successfully"))
}

// VerifyToken handles GET /user/verify-token. RequireAuth has already done the work.
func (h *UserHandler) VerifyToken(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	c.JSON(http.StatusOK, response.OK(user, "Token is valid"))
}

// UpdateUser handles POST /user/update-user.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	var req UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), userID, &models.UpdateUserInput{
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.OK(user, "User updated successfully"))
}

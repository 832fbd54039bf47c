package handler

import (
	"context"
	"net/http"

	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/gin-gonic/gin"
)

type UserCommander interface {
	UpdateUser(context.Context, cqrs.UpdateUserCommand) (*models.UserView, error)
	DeleteUser(context.Context, cqrs.DeleteUserCommand) error
}

type UserQuerier interface {
	GetUser(context.Context, cqrs.GetUserQuery) (*models.UserView, error)
	ListUsers(context.Context, cqrs.ListUsersQuery) ([]models.UserView, error)
}

type UserHandler struct {
	commands UserCommander
	queries  UserQuerier
}

type UpdateUserRequest struct {
	FullName    *string         `json:"fullName" validate:"omitempty,min=2,max=100"`
	Email       *string         `json:"email" validate:"omitempty,email"`
	PhoneNumber *string         `json:"phoneNumber" validate:"omitempty,e164"`
	Address     *models.Address `json:"address" validate:"omitempty"`
}

func NewUserHandler(commands UserCommander, queries UserQuerier) *UserHandler {
	return &UserHandler{commands: commands, queries: queries}
}

// ListUsers is mounted behind RequireSuperuser.
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	users, err := h.queries.ListUsers(c.Request.Context(), cqrs.ListUsersQuery{Limit: limit, Offset: offset})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{
		UserID:           c.Param("userId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get user")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req UpdateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		UserID:           c.Param("userId"),
		RequestingUserID: userID,
		FullName:         req.FullName,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		Address:          req.Address,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to update user")
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{
		UserID:           c.Param("userId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

package handler

import (
	"context"
	"net/http"

	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/gin-gonic/gin"
)

// AuthCommander defines the write-side operations used by AuthHandler.
type AuthCommander interface {
	RegisterUser(context.Context, cqrs.RegisterUserCommand) (*models.UserView, error)
	ChangePassword(context.Context, cqrs.ChangePasswordCommand) error
}

// AuthQuerier defines the token operations used by AuthHandler.
type AuthQuerier interface {
	Login(context.Context, cqrs.LoginCommand) (*middleware.TokenPair, error)
	RefreshToken(context.Context, cqrs.RefreshTokenCommand) (*middleware.TokenPair, error)
}

type AuthHandler struct {
	commands AuthCommander
	queries  AuthQuerier
}

type RegisterRequest struct {
	FullName    string          `json:"fullName" validate:"required,min=2,max=100"`
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=8,max=128"`
	PhoneNumber string          `json:"phoneNumber" validate:"omitempty,e164"`
	Address     *models.Address `json:"address" validate:"omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

func NewAuthHandler(commands AuthCommander, queries AuthQuerier) *AuthHandler {
	return &AuthHandler{commands: commands, queries: queries}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.commands.RegisterUser(c.Request.Context(), cqrs.RegisterUserCommand{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.queries.Login(c.Request.Context(), cqrs.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if middleware.StatusFor(err) == http.StatusUnauthorized {
			middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		middleware.RespondWithDomainError(c, err, "Failed to log in")
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.queries.RefreshToken(c.Request.Context(), cqrs.RefreshTokenCommand{Token: req.RefreshToken})
	if err != nil {
		if middleware.StatusFor(err) == http.StatusUnauthorized {
			middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		middleware.RespondWithDomainError(c, err, "Failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req ChangePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.commands.ChangePassword(c.Request.Context(), cqrs.ChangePasswordCommand{
		UserID:          userID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		if middleware.StatusFor(err) == http.StatusUnauthorized {
			middleware.RespondWithError(c, http.StatusBadRequest, "Current password is incorrect")
			return
		}
		middleware.RespondWithDomainError(c, err, "Failed to change password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

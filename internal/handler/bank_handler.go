package handler

import (
	"context"
	"net/http"

	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/gin-gonic/gin"
)

type BankCommander interface {
	CreateBank(context.Context, cqrs.CreateBankCommand) (*models.Bank, error)
	UpdateBank(context.Context, cqrs.UpdateBankCommand) (*models.Bank, error)
}

type BankQuerier interface {
	GetBank(context.Context, cqrs.GetBankQuery) (*models.Bank, error)
	ListBanks(context.Context, cqrs.ListBanksQuery) ([]models.Bank, error)
}

type BankHandler struct {
	commands BankCommander
	queries  BankQuerier
}

type CreateBankRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=255"`
	Code          string `json:"code" validate:"required,alphanum,min=2,max=10"`
	SwiftCode     string `json:"swiftCode" validate:"omitempty,alphanum,min=8,max=11"`
	RoutingNumber string `json:"routingNumber" validate:"omitempty,numeric,len=9"`
	Country       string `json:"country" validate:"required,min=2,max=100"`
	Currency      string `json:"currency" validate:"omitempty,len=3,alpha"`
	ContactEmail  string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone  string `json:"contactPhone" validate:"omitempty,max=20"`
	Website       string `json:"website" validate:"omitempty,url"`
	Address       string `json:"address" validate:"omitempty,max=500"`
}

type UpdateBankRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=2,max=255"`
	SwiftCode     *string `json:"swiftCode" validate:"omitempty,alphanum,min=8,max=11"`
	RoutingNumber *string `json:"routingNumber" validate:"omitempty,numeric,len=9"`
	Country       *string `json:"country" validate:"omitempty,min=2,max=100"`
	Currency      *string `json:"currency" validate:"omitempty,len=3,alpha"`
	ContactEmail  *string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone  *string `json:"contactPhone" validate:"omitempty,max=20"`
	Website       *string `json:"website" validate:"omitempty,url"`
	Address       *string `json:"address" validate:"omitempty,max=500"`
	IsActive      *bool   `json:"isActive"`
}

func NewBankHandler(commands BankCommander, queries BankQuerier) *BankHandler {
	return &BankHandler{commands: commands, queries: queries}
}

func (h *BankHandler) CreateBank(c *gin.Context) {
	var req CreateBankRequest
	if !bindAndValidate(c, &req) {
		return
	}

	bank, err := h.commands.CreateBank(c.Request.Context(), cqrs.CreateBankCommand{
		Name:          req.Name,
		Code:          req.Code,
		SwiftCode:     req.SwiftCode,
		RoutingNumber: req.RoutingNumber,
		Country:       req.Country,
		Currency:      req.Currency,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Website:       req.Website,
		Address:       req.Address,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to create bank")
		return
	}

	c.JSON(http.StatusCreated, bank)
}

// ListBanks returns active banks. Superusers may pass includeInactive=true.
func (h *BankHandler) ListBanks(c *gin.Context) {
	includeInactive := c.Query("includeInactive") == "true" && middleware.IsSuperuser(c)

	banks, err := h.queries.ListBanks(c.Request.Context(), cqrs.ListBanksQuery{IncludeInactive: includeInactive})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list banks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"banks": banks})
}

func (h *BankHandler) GetBank(c *gin.Context) {
	bank, err := h.queries.GetBank(c.Request.Context(), cqrs.GetBankQuery{BankID: c.Param("bankId")})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get bank")
		return
	}

	c.JSON(http.StatusOK, bank)
}

func (h *BankHandler) UpdateBank(c *gin.Context) {
	var req UpdateBankRequest
	if !bindAndValidate(c, &req) {
		return
	}

	bank, err := h.commands.UpdateBank(c.Request.Context(), cqrs.UpdateBankCommand{
		BankID:        c.Param("bankId"),
		Name:          req.Name,
		SwiftCode:     req.SwiftCode,
		RoutingNumber: req.RoutingNumber,
		Country:       req.Country,
		Currency:      req.Currency,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Website:       req.Website,
		Address:       req.Address,
		IsActive:      req.IsActive,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to update bank")
		return
	}

	c.JSON(http.StatusOK, bank)
}

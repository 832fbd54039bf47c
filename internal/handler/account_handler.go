package handler

import (
	"context"
	"net/http"

	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.Account, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (*models.Account, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
}

type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
	GetBalance(context.Context, cqrs.GetAccountQuery) (*models.BalanceView, error)
}

type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type CreateAccountRequest struct {
	BankID         string             `json:"bankId" validate:"required,uuid"`
	AccountType    models.AccountType `json:"accountType" validate:"required,oneof=checking savings business loan credit"`
	Currency       string             `json:"currency" validate:"omitempty,len=3,alpha"`
	OverdraftLimit decimal.Decimal    `json:"overdraftLimit"`
}

type UpdateAccountRequest struct {
	AccountType    *models.AccountType   `json:"accountType" validate:"omitempty,oneof=checking savings business loan credit"`
	Status         *models.AccountStatus `json:"status" validate:"omitempty,oneof=active inactive suspended"`
	OverdraftLimit *decimal.Decimal      `json:"overdraftLimit"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		UserID:         userID,
		BankID:         req.BankID,
		AccountType:    req.AccountType,
		Currency:       req.Currency,
		OverdraftLimit: req.OverdraftLimit,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	accounts, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list accounts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	account, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{
		AccountNumber:    c.Param("accountNumber"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get account")
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) GetBalance(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	balance, err := h.queries.GetBalance(c.Request.Context(), cqrs.GetAccountQuery{
		AccountNumber:    c.Param("accountNumber"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get balance")
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req UpdateAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.commands.UpdateAccount(c.Request.Context(), cqrs.UpdateAccountCommand{
		AccountNumber:    c.Param("accountNumber"),
		RequestingUserID: userID,
		AccountType:      req.AccountType,
		Status:           req.Status,
		OverdraftLimit:   req.OverdraftLimit,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to update account")
		return
	}

	c.JSON(http.StatusOK, account)
}

// DeleteAccount closes the account. The row is kept for the ledger.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{
		AccountNumber:    c.Param("accountNumber"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to close account")
		return
	}

	c.Status(http.StatusNoContent)
}

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

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	Deposit(context.Context, cqrs.DepositCommand) (*models.OperationResult, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (*models.OperationResult, error)
	Transfer(context.Context, cqrs.TransferCommand) (*models.TransferResult, error)
	TransitionStatus(context.Context, cqrs.TransitionStatusCommand) (*models.Transaction, error)
	Delete(context.Context, cqrs.DeleteTransactionCommand) error
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	GetTransaction(context.Context, cqrs.GetTransactionQuery) (*models.TransactionView, error)
	GetByReference(context.Context, cqrs.GetByReferenceQuery) (*models.TransactionView, error)
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.TransactionView, error)
	RecentTransactions(context.Context, cqrs.RecentTransactionsQuery) ([]models.TransactionView, error)
	Summary(context.Context, cqrs.TransactionSummaryQuery) (*models.TransactionSummary, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
}

// Amounts are decoded from either JSON numbers or strings and must be
// positive with at most two decimal places.
type DepositRequest struct {
	AccountNumber string          `json:"accountNumber" validate:"required,min=4,max=34"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=500"`
	Reference     string          `json:"reference" validate:"omitempty,max=100"`
}

type WithdrawRequest struct {
	AccountNumber string          `json:"accountNumber" validate:"required,min=4,max=34"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description" validate:"max=500"`
	Reference     string          `json:"reference" validate:"omitempty,max=100"`
}

type TransferRequest struct {
	FromAccountNumber string          `json:"fromAccountNumber" validate:"required,min=4,max=34"`
	ToAccountNumber   string          `json:"toAccountNumber" validate:"required,min=4,max=34,nefield=FromAccountNumber"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description" validate:"max=500"`
}

type TransitionStatusRequest struct {
	Status models.TransactionStatus `json:"status" validate:"required,oneof=completed failed cancelled reversed"`
	Reason string                   `json:"reason" validate:"max=500"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

func (h *TransactionHandler) Deposit(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req DepositRequest
	if !bindAndValidate(c, &req) || !validAmount(c, req.Amount) {
		return
	}

	result, err := h.commands.Deposit(c.Request.Context(), cqrs.DepositCommand{
		AccountNumber: req.AccountNumber,
		UserID:        userID,
		Amount:        req.Amount,
		Description:   req.Description,
		Reference:     req.Reference,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to deposit")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *TransactionHandler) Withdraw(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req WithdrawRequest
	if !bindAndValidate(c, &req) || !validAmount(c, req.Amount) {
		return
	}

	result, err := h.commands.Withdraw(c.Request.Context(), cqrs.WithdrawCommand{
		AccountNumber: req.AccountNumber,
		UserID:        userID,
		Amount:        req.Amount,
		Description:   req.Description,
		Reference:     req.Reference,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to withdraw")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *TransactionHandler) Transfer(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req TransferRequest
	if !bindAndValidate(c, &req) || !validAmount(c, req.Amount) {
		return
	}

	result, err := h.commands.Transfer(c.Request.Context(), cqrs.TransferCommand{
		FromAccountNumber: req.FromAccountNumber,
		ToAccountNumber:   req.ToAccountNumber,
		UserID:            userID,
		Amount:            req.Amount,
		Description:       req.Description,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to transfer")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	tx, err := h.queries.GetTransaction(c.Request.Context(), cqrs.GetTransactionQuery{
		TransactionID: c.Param("transactionId"),
		UserID:        userID,
		IsSuperuser:   middleware.IsSuperuser(c),
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get transaction")
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (h *TransactionHandler) GetByReference(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	tx, err := h.queries.GetByReference(c.Request.Context(), cqrs.GetByReferenceQuery{
		Reference: c.Param("reference"),
		UserID:    userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get transaction")
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ListTransactions serves /transactions plus the account and card ledgers,
// which pin the corresponding filter from the path.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	q, ok := listQuery(c)
	if !ok {
		return
	}
	q.UserID = userID
	if p := c.Param("accountNumber"); p != "" {
		q.AccountNumber = p
	}
	if p := c.Param("cardId"); p != "" {
		q.CardID = p
	}

	txs, err := h.queries.ListTransactions(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *TransactionHandler) RecentTransactions(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}

	txs, err := h.queries.RecentTransactions(c.Request.Context(), cqrs.RecentTransactionsQuery{UserID: userID, Limit: limit})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *TransactionHandler) Summary(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	from, ok := queryTime(c, "from")
	if !ok {
		return
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return
	}

	summary, err := h.queries.Summary(c.Request.Context(), cqrs.TransactionSummaryQuery{
		AccountNumber: c.Param("accountNumber"),
		UserID:        userID,
		From:          from,
		To:            to,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to summarise transactions")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// TransitionStatus is mounted behind RequireSuperuser.
func (h *TransactionHandler) TransitionStatus(c *gin.Context) {
	var req TransitionStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	tx, err := h.commands.TransitionStatus(c.Request.Context(), cqrs.TransitionStatusCommand{
		TransactionID: c.Param("transactionId"),
		Status:        req.Status,
		Reason:        req.Reason,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to update transaction status")
		return
	}

	c.JSON(http.StatusOK, tx)
}

// DeleteTransaction is mounted behind RequireSuperuser.
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	err := h.commands.Delete(c.Request.Context(), cqrs.DeleteTransactionCommand{
		TransactionID: c.Param("transactionId"),
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to delete transaction")
		return
	}

	c.Status(http.StatusNoContent)
}

func listQuery(c *gin.Context) (cqrs.ListTransactionsQuery, bool) {
	var q cqrs.ListTransactionsQuery
	var ok bool

	if q.Limit, ok = queryInt(c, "limit", 0); !ok {
		return q, false
	}
	if q.Offset, ok = queryInt(c, "offset", 0); !ok {
		return q, false
	}
	if q.From, ok = queryTime(c, "from"); !ok {
		return q, false
	}
	if q.To, ok = queryTime(c, "to"); !ok {
		return q, false
	}

	q.AccountNumber = c.Query("accountNumber")
	q.CardID = c.Query("cardId")

	if t := models.TransactionType(c.Query("type")); t != "" {
		if !t.Valid() {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid type parameter")
			return q, false
		}
		q.Type = t
	}
	if s := models.TransactionStatus(c.Query("status")); s != "" {
		if !s.Valid() {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid status parameter")
			return q, false
		}
		q.Status = s
	}
	return q, true
}

// validAmount answers 400 for amounts the ledger would refuse to store.
func validAmount(c *gin.Context, amount decimal.Decimal) bool {
	if models.ValidAmount(amount) {
		return true
	}
	middleware.RespondWithValidationError(c, []middleware.ValidationError{{
		Field:   "amount",
		Message: "Must be positive with at most 2 decimal places",
		Type:    "amount",
	}})
	return false
}

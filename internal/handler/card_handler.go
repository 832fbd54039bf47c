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

type CardCommander interface {
	IssueCard(context.Context, cqrs.IssueCardCommand) (*models.CardView, error)
	BlockCard(context.Context, cqrs.SetCardStatusCommand) (*models.CardStatusChange, error)
	UnblockCard(context.Context, cqrs.SetCardStatusCommand) (*models.CardStatusChange, error)
	UpdateCard(context.Context, cqrs.UpdateCardCommand) (*models.CardView, error)
}

type CardQuerier interface {
	GetCard(context.Context, cqrs.GetCardQuery) (*models.CardView, error)
	ListCards(context.Context, cqrs.ListCardsQuery) ([]models.CardView, error)
}

type CardHandler struct {
	commands CardCommander
	queries  CardQuerier
}

type IssueCardRequest struct {
	CardType           models.CardType  `json:"cardType" validate:"required,oneof=debit credit prepaid"`
	CardHolderName     string           `json:"cardHolderName" validate:"required,min=2,max=100"`
	DailyLimit         *decimal.Decimal `json:"dailyLimit"`
	ContactlessEnabled *bool            `json:"contactlessEnabled"`
	InternationalUsage *bool            `json:"internationalUsage"`
}

type UpdateCardRequest struct {
	DailyLimit         *decimal.Decimal `json:"dailyLimit"`
	ContactlessEnabled *bool            `json:"contactlessEnabled"`
	InternationalUsage *bool            `json:"internationalUsage"`
}

func NewCardHandler(commands CardCommander, queries CardQuerier) *CardHandler {
	return &CardHandler{commands: commands, queries: queries}
}

func (h *CardHandler) IssueCard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req IssueCardRequest
	if !bindAndValidate(c, &req) {
		return
	}

	card, err := h.commands.IssueCard(c.Request.Context(), cqrs.IssueCardCommand{
		AccountNumber:      c.Param("accountNumber"),
		RequestingUserID:   userID,
		CardType:           req.CardType,
		CardHolderName:     req.CardHolderName,
		DailyLimit:         req.DailyLimit,
		ContactlessEnabled: req.ContactlessEnabled,
		InternationalUsage: req.InternationalUsage,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to issue card")
		return
	}

	c.JSON(http.StatusCreated, card)
}

func (h *CardHandler) ListCards(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	cards, err := h.queries.ListCards(c.Request.Context(), cqrs.ListCardsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to list cards")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func (h *CardHandler) GetCard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	card, err := h.queries.GetCard(c.Request.Context(), cqrs.GetCardQuery{
		CardID:           c.Param("cardId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to get card")
		return
	}

	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) BlockCard(c *gin.Context) {
	h.setStatus(c, h.commands.BlockCard, "blocked")
}

func (h *CardHandler) UnblockCard(c *gin.Context) {
	h.setStatus(c, h.commands.UnblockCard, "unblocked")
}

func (h *CardHandler) setStatus(c *gin.Context, apply func(context.Context, cqrs.SetCardStatusCommand) (*models.CardStatusChange, error), verb string) {
	userID, _ := middleware.GetUserID(c)

	change, err := apply(c.Request.Context(), cqrs.SetCardStatusCommand{
		CardID:           c.Param("cardId"),
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to change card status")
		return
	}

	message := "Card " + verb
	if change.Unchanged {
		message = "Card already " + verb
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "card": change.Card})
}

func (h *CardHandler) UpdateCard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req UpdateCardRequest
	if !bindAndValidate(c, &req) {
		return
	}

	card, err := h.commands.UpdateCard(c.Request.Context(), cqrs.UpdateCardCommand{
		CardID:             c.Param("cardId"),
		RequestingUserID:   userID,
		DailyLimit:         req.DailyLimit,
		ContactlessEnabled: req.ContactlessEnabled,
		InternationalUsage: req.InternationalUsage,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err, "Failed to update card")
		return
	}

	c.JSON(http.StatusOK, card)
}

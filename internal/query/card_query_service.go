package query

import (
	"context"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/models"
)

type CardReader interface {
	GetByID(ctx context.Context, id string) (*models.CardView, error)
	ListByUserID(ctx context.Context, userID string) ([]models.CardView, error)
}

type CardQueryService struct {
	cards CardReader
}

func NewCardQueryService(cards CardReader) *CardQueryService {
	return &CardQueryService{cards: cards}
}

func (s *CardQueryService) GetCard(ctx context.Context, q cqrs.GetCardQuery) (*models.CardView, error) {
	return ownedCard(ctx, s.cards, q.CardID, q.RequestingUserID)
}

func (s *CardQueryService) ListCards(ctx context.Context, q cqrs.ListCardsQuery) ([]models.CardView, error) {
	return s.cards.ListByUserID(ctx, q.UserID)
}

func ownedCard(ctx context.Context, cards CardReader, cardID, userID string) (*models.CardView, error) {
	card, err := cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return card, nil
}

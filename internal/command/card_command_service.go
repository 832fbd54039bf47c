package command

import (
	"context"
	"errors"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/events"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	cardIssuerPrefix     = "4000"
	cardValidity         = 4
	maxCardNumberAttempt = 3
)

var defaultDailyLimit = decimal.NewFromInt(1000)

// CardCommandService issues cards and changes their status and limits.
type CardCommandService struct {
	cards     CardStore
	accounts  AccountStore
	publisher EventPublisher
	logger    *logging.Logger
}

func NewCardCommandService(cards CardStore, accounts AccountStore, publisher EventPublisher) *CardCommandService {
	return &CardCommandService{
		cards:     cards,
		accounts:  accounts,
		publisher: publisher,
		logger:    logging.L().Named("cards"),
	}
}

func (s *CardCommandService) IssueCard(ctx context.Context, cmd cqrs.IssueCardCommand) (*models.CardView, error) {
	account, err := s.accounts.GetByAccountNumber(ctx, cmd.AccountNumber)
	if err != nil {
		return nil, err
	}
	if account.UserID != cmd.RequestingUserID {
		return nil, apperrors.ErrForbidden
	}
	if account.Status != models.AccountActive {
		return nil, apperrors.ErrAccountInactive
	}

	now := time.Now().UTC()
	card := &models.Card{
		ID:                 utils.GenerateID("crd"),
		AccountID:          account.ID,
		BankID:             account.BankID,
		CardHolderName:     cmd.CardHolderName,
		CardType:           cmd.CardType,
		Status:             models.CardActive,
		ExpiryDate:         now.AddDate(cardValidity, 0, 0),
		CVV:                utils.GenerateCVV(),
		DailyLimit:         defaultDailyLimit,
		ContactlessEnabled: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if card.CardType == "" {
		card.CardType = models.CardDebit
	}
	if cmd.DailyLimit != nil {
		if cmd.DailyLimit.IsNegative() {
			return nil, apperrors.ErrInvalidAmount
		}
		card.DailyLimit = *cmd.DailyLimit
	}
	if cmd.ContactlessEnabled != nil {
		card.ContactlessEnabled = *cmd.ContactlessEnabled
	}
	if cmd.InternationalUsage != nil {
		card.InternationalUsage = *cmd.InternationalUsage
	}

	for attempt := 1; ; attempt++ {
		card.CardNumber = utils.GenerateCardNumber(cardIssuerPrefix)
		err = s.cards.Create(ctx, card)
		if err == nil {
			break
		}
		if !errors.Is(err, apperrors.ErrConflict) || attempt >= maxCardNumberAttempt {
			return nil, err
		}
	}

	s.cards.InvalidateCard(ctx, card.ID, account.UserID)
	if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.CardIssued, events.CardIssuedEvent{
		CardID:        card.ID,
		AccountNumber: account.AccountNumber,
		UserID:        account.UserID,
		CardType:      string(card.CardType),
	}); err != nil {
		s.logger.Warn("failed to publish card.issued event", zap.Error(err))
	}
	return &models.CardView{Card: *card, UserID: account.UserID, AccountNumber: account.AccountNumber}, nil
}

// BlockCard is idempotent: blocking a blocked card reports Unchanged.
func (s *CardCommandService) BlockCard(ctx context.Context, cmd cqrs.SetCardStatusCommand) (*models.CardStatusChange, error) {
	return s.setStatus(ctx, cmd, models.CardBlocked)
}

func (s *CardCommandService) UnblockCard(ctx context.Context, cmd cqrs.SetCardStatusCommand) (*models.CardStatusChange, error) {
	return s.setStatus(ctx, cmd, models.CardActive)
}

func (s *CardCommandService) setStatus(ctx context.Context, cmd cqrs.SetCardStatusCommand, status models.CardStatus) (*models.CardStatusChange, error) {
	view, err := s.owned(ctx, cmd.CardID, cmd.RequestingUserID)
	if err != nil {
		return nil, err
	}
	if view.Status == status {
		return &models.CardStatusChange{Card: view, Unchanged: true}, nil
	}
	// Lost, stolen and expired cards are replaced, never reactivated.
	if status == models.CardActive && view.Status != models.CardBlocked && view.Status != models.CardInactive {
		return nil, apperrors.ErrInvalidTransition
	}

	view.Status = status
	view.UpdatedAt = time.Now().UTC()
	if err := s.cards.Update(ctx, &view.Card); err != nil {
		return nil, err
	}
	s.cards.InvalidateCard(ctx, view.ID, view.UserID)

	if status == models.CardBlocked {
		if err := s.publisher.Publish(ctx, events.AccountEventsStream, events.CardBlocked, events.CardBlockedEvent{
			CardID: view.ID,
			UserID: view.UserID,
		}); err != nil {
			s.logger.Warn("failed to publish card.blocked event", zap.Error(err))
		}
	}
	s.logger.Info("card status changed",
		zap.String("card", utils.MaskCardNumber(view.CardNumber)),
		zap.String("status", string(status)),
	)
	return &models.CardStatusChange{Card: view}, nil
}

func (s *CardCommandService) UpdateCard(ctx context.Context, cmd cqrs.UpdateCardCommand) (*models.CardView, error) {
	view, err := s.owned(ctx, cmd.CardID, cmd.RequestingUserID)
	if err != nil {
		return nil, err
	}
	if cmd.DailyLimit != nil {
		if cmd.DailyLimit.IsNegative() {
			return nil, apperrors.ErrInvalidAmount
		}
		view.DailyLimit = *cmd.DailyLimit
	}
	if cmd.ContactlessEnabled != nil {
		view.ContactlessEnabled = *cmd.ContactlessEnabled
	}
	if cmd.InternationalUsage != nil {
		view.InternationalUsage = *cmd.InternationalUsage
	}
	view.UpdatedAt = time.Now().UTC()

	if err := s.cards.Update(ctx, &view.Card); err != nil {
		return nil, err
	}
	s.cards.InvalidateCard(ctx, view.ID, view.UserID)
	return view, nil
}

func (s *CardCommandService) owned(ctx context.Context, cardID, userID string) (*models.CardView, error) {
	view, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if view.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return view, nil
}

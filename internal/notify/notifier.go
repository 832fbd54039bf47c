// Package notify emails customers about ledger activity. It consumes the
// event streams published by the command services.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/events"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultDedupeTTL = 24 * time.Hour

// UserDirectory resolves a user id to a contact address.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.UserView, error)
}

type Notifier struct {
	users     UserDirectory
	mailer    Mailer
	redis     *goredis.Client
	dedupeTTL time.Duration
	logger    *logging.Logger
}

func NewNotifier(users UserDirectory, mailer Mailer, redisClient *goredis.Client) *Notifier {
	return &Notifier{
		users:     users,
		mailer:    mailer,
		redis:     redisClient,
		dedupeTTL: defaultDedupeTTL,
		logger:    logging.L().Named("notify"),
	}
}

type email struct {
	userID  string
	to      string
	subject string
	body    string
}

// HandleEvent is an events.Handler. Redelivered events are detected through
// a Redis marker per event and not mailed twice.
func (n *Notifier) HandleEvent(ctx context.Context, event events.Event) error {
	id, mails, err := n.compose(event)
	if err != nil || len(mails) == 0 {
		return err
	}

	key := "notify:sent:" + event.Type + ":" + id
	first, err := n.redis.SetNX(ctx, key, 1, n.dedupeTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to mark %s as handled: %w", key, err)
	}
	if !first {
		n.logger.Debug("event already notified, skipping", zap.String("type", event.Type), zap.String("id", id))
		return nil
	}

	for _, m := range mails {
		if err := n.deliver(ctx, m); err != nil {
			n.redis.Del(ctx, key)
			return err
		}
	}
	return nil
}

func (n *Notifier) deliver(ctx context.Context, m email) error {
	to := m.to
	if to == "" {
		user, err := n.users.GetByID(ctx, m.userID)
		if err != nil {
			return fmt.Errorf("failed to resolve user %s: %w", m.userID, err)
		}
		to = user.Email
	}
	if err := n.mailer.Send(ctx, to, m.subject, m.body); err != nil {
		return err
	}
	n.logger.Info("notification sent", zap.String("user_id", m.userID), zap.String("subject", m.subject))
	return nil
}

// compose returns the event's dedupe id and the emails it triggers.
func (n *Notifier) compose(event events.Event) (string, []email, error) {
	switch event.Type {
	case events.UserRegistered:
		var e events.UserRegisteredEvent
		if err := event.Decode(&e); err != nil {
			return "", nil, err
		}
		return e.UserID, []email{{
			userID:  e.UserID,
			to:      e.Email,
			subject: "Welcome to your bank",
			body:    fmt.Sprintf("Hello %s,\n\nYour account has been created. You can now open bank accounts and request cards.", e.FullName),
		}}, nil

	case events.TransactionCreated:
		var e events.TransactionCreatedEvent
		if err := event.Decode(&e); err != nil {
			return "", nil, err
		}
		// Transfer legs are covered by the transfer events.
		var verb string
		switch models.TransactionType(e.Type) {
		case models.TxDeposit:
			verb = "Deposit of"
		case models.TxWithdrawal:
			verb = "Withdrawal of"
		default:
			return "", nil, nil
		}
		subject := fmt.Sprintf("%s %s on %s", verb, money(e.Amount, e.Currency), utils.MaskAccountNumber(e.AccountNumber))
		return e.TransactionID, []email{{
			userID:  e.UserID,
			subject: subject,
			body:    fmt.Sprintf("%s.\n\nReference: %s\nNew balance: %s", subject, e.Reference, money(e.NewBalance, e.Currency)),
		}}, nil

	case events.TransferCompleted:
		var e events.TransferCompletedEvent
		if err := event.Decode(&e); err != nil {
			return "", nil, err
		}
		amount := money(e.Amount, e.Currency)
		mails := []email{{
			userID:  e.FromUserID,
			subject: "Transfer sent: " + amount,
			body: fmt.Sprintf("You sent %s from %s to %s.\n\nReference: %s",
				amount, utils.MaskAccountNumber(e.FromAccountNumber), utils.MaskAccountNumber(e.ToAccountNumber), e.Reference),
		}}
		if e.ToUserID != e.FromUserID {
			mails = append(mails, email{
				userID:  e.ToUserID,
				subject: "Transfer received: " + amount,
				body: fmt.Sprintf("You received %s into %s.\n\nReference: %s",
					amount, utils.MaskAccountNumber(e.ToAccountNumber), e.Reference),
			})
		}
		return e.TransferID, mails, nil

	case events.TransferPending:
		var e events.TransferPendingEvent
		if err := event.Decode(&e); err != nil {
			return "", nil, err
		}
		amount := money(e.Amount, e.Currency)
		return e.TransferID, []email{{
			userID:  e.UserID,
			subject: "Transfer pending: " + amount,
			body: fmt.Sprintf("Your transfer of %s from %s to external account %s is pending settlement.\n\nReference: %s",
				amount, utils.MaskAccountNumber(e.FromAccountNumber), utils.MaskAccountNumber(e.DestinationAccountNumber), e.Reference),
		}}, nil

	case events.CardBlocked:
		var e events.CardBlockedEvent
		if err := event.Decode(&e); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s:%d", e.CardID, event.Timestamp.UnixNano()), []email{{
			userID:  e.UserID,
			subject: "Your card has been blocked",
			body:    "One of your cards has been blocked. If you did not request this, please contact support.",
		}}, nil
	}
	return "", nil, nil
}

func money(amount decimal.Decimal, currency string) string {
	return amount.Abs().StringFixed(2) + " " + currency
}

package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/events"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/metrics"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	"go.uber.org/zap"
)

const (
	interbankProcessingFee = "0.00"
	interbankTransferType  = "interbank"
)

// TransactionCommandService owns every balance-affecting operation. Each
// operation applies its balance deltas and writes its ledger rows inside one
// database transaction; events and cache invalidation follow the commit.
type TransactionCommandService struct {
	tx        TxRunner
	accounts  AccountStore
	ledger    Ledger
	accCache  AccountCache
	txCache   TransactionCache
	publisher EventPublisher
	metrics   metrics.MetricsCollector
	logger    *logging.Logger
}

func NewTransactionCommandService(
	tx TxRunner,
	accounts AccountStore,
	ledger Ledger,
	accCache AccountCache,
	txCache TransactionCache,
	publisher EventPublisher,
	collector metrics.MetricsCollector,
) *TransactionCommandService {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &TransactionCommandService{
		tx:        tx,
		accounts:  accounts,
		ledger:    ledger,
		accCache:  accCache,
		txCache:   txCache,
		publisher: publisher,
		metrics:   collector,
		logger:    logging.L().Named("ledger"),
	}
}

// Deposit credits an owned account and records one completed deposit row.
func (s *TransactionCommandService) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (result *models.OperationResult, err error) {
	defer s.observe("deposit", time.Now(), &err)

	if !models.ValidAmount(cmd.Amount) {
		return nil, apperrors.ErrInvalidAmount
	}

	var account *models.Account
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		source, err := s.ownedActiveAccount(ctx, cmd.AccountNumber, cmd.UserID)
		if err != nil {
			return err
		}
		if account, err = s.accounts.ApplyDelta(ctx, source.ID, cmd.Amount); err != nil {
			return err
		}
		result = &models.OperationResult{
			Transaction: &models.Transaction{
				AccountID:   account.ID,
				Amount:      cmd.Amount,
				Currency:    account.Currency,
				Type:        models.TxDeposit,
				Status:      models.TxCompleted,
				Description: descriptionOr(cmd.Description, "Deposit"),
				Reference:   cmd.Reference,
			},
		}
		return s.ledger.Create(ctx, result.Transaction)
	})
	if err != nil {
		return nil, err
	}

	result.AccountNumber = account.AccountNumber
	result.NewBalance = account.Balance
	result.AvailableBalance = account.AvailableBalance
	s.afterBalanceChange(ctx, account, result.Transaction)
	return result, nil
}

// Withdraw debits an owned account when its available balance covers the
// amount and records one completed withdrawal row with a negative amount.
func (s *TransactionCommandService) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (result *models.OperationResult, err error) {
	defer s.observe("withdraw", time.Now(), &err)

	if !models.ValidAmount(cmd.Amount) {
		return nil, apperrors.ErrInvalidAmount
	}

	var account *models.Account
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		source, err := s.ownedActiveAccount(ctx, cmd.AccountNumber, cmd.UserID)
		if err != nil {
			return err
		}
		if source.AvailableBalance.LessThan(cmd.Amount) {
			return apperrors.ErrInsufficientFunds
		}
		if account, err = s.accounts.ApplyDelta(ctx, source.ID, cmd.Amount.Neg()); err != nil {
			return err
		}
		result = &models.OperationResult{
			Transaction: &models.Transaction{
				AccountID:   account.ID,
				Amount:      cmd.Amount.Neg(),
				Currency:    account.Currency,
				Type:        models.TxWithdrawal,
				Status:      models.TxCompleted,
				Description: descriptionOr(cmd.Description, "Withdrawal"),
				Reference:   cmd.Reference,
			},
		}
		return s.ledger.Create(ctx, result.Transaction)
	})
	if err != nil {
		return nil, err
	}

	result.AccountNumber = account.AccountNumber
	result.NewBalance = account.Balance
	result.AvailableBalance = account.AvailableBalance
	s.afterBalanceChange(ctx, account, result.Transaction)
	return result, nil
}

// Transfer moves funds out of an owned account. A destination held at the
// same bank receives the credit in the same database transaction; any other
// destination is treated as interbank and leaves a single pending debit.
func (s *TransactionCommandService) Transfer(ctx context.Context, cmd cqrs.TransferCommand) (result *models.TransferResult, err error) {
	op := "transfer"
	defer func(start time.Time) { s.observe(op, start, &err) }(time.Now())

	if !models.ValidAmount(cmd.Amount) {
		return nil, apperrors.ErrInvalidAmount
	}
	if cmd.FromAccountNumber == cmd.ToAccountNumber {
		return nil, apperrors.ErrSameAccount
	}

	var after func()
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		source, err := s.ownedActiveAccount(ctx, cmd.FromAccountNumber, cmd.UserID)
		if err != nil {
			return err
		}
		if source.AvailableBalance.LessThan(cmd.Amount) {
			return apperrors.ErrInsufficientFunds
		}

		dest, err := s.accounts.GetByAccountNumber(ctx, cmd.ToAccountNumber)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			dest = nil
		case err != nil:
			return err
		}

		if dest == nil || dest.BankID != source.BankID {
			op = "transfer_interbank"
			result, after, err = s.interbank(ctx, source, cmd)
			return err
		}
		result, after, err = s.sameBank(ctx, source, dest, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	after()
	return result, nil
}

func (s *TransactionCommandService) sameBank(ctx context.Context, source, dest *models.Account, cmd cqrs.TransferCommand) (*models.TransferResult, func(), error) {
	if dest.Status != models.AccountActive {
		return nil, nil, fmt.Errorf("destination %w", apperrors.ErrAccountInactive)
	}

	// Lock rows in id order so two opposing transfers cannot deadlock.
	var debited, credited *models.Account
	var err error
	if source.ID < dest.ID {
		if debited, err = s.accounts.ApplyDelta(ctx, source.ID, cmd.Amount.Neg()); err != nil {
			return nil, nil, err
		}
		if credited, err = s.accounts.ApplyDelta(ctx, dest.ID, cmd.Amount); err != nil {
			return nil, nil, err
		}
	} else {
		if credited, err = s.accounts.ApplyDelta(ctx, dest.ID, cmd.Amount); err != nil {
			return nil, nil, err
		}
		if debited, err = s.accounts.ApplyDelta(ctx, source.ID, cmd.Amount.Neg()); err != nil {
			return nil, nil, err
		}
	}

	transferID := utils.GenerateTransferID()
	outgoing := &models.Transaction{
		AccountID:   source.ID,
		Amount:      cmd.Amount.Neg(),
		Currency:    source.Currency,
		Type:        models.TxTransfer,
		Status:      models.TxCompleted,
		Description: transferDescription("Transfer to "+dest.AccountNumber, cmd.Description),
		TransferID:  transferID,
	}
	if err := s.ledger.Create(ctx, outgoing); err != nil {
		return nil, nil, err
	}
	incoming := &models.Transaction{
		AccountID:   dest.ID,
		Amount:      cmd.Amount,
		Currency:    dest.Currency,
		Type:        models.TxTransfer,
		Status:      models.TxCompleted,
		Description: transferDescription("Transfer from "+source.AccountNumber, cmd.Description),
		TransferID:  transferID,
	}
	if err := s.ledger.Create(ctx, incoming); err != nil {
		return nil, nil, err
	}

	result := &models.TransferResult{
		TransferID:        transferID,
		Reference:         outgoing.Reference,
		FromAccountNumber: source.AccountNumber,
		ToAccountNumber:   dest.AccountNumber,
		Amount:            cmd.Amount,
		NewBalance:        debited.Balance,
		Status:            models.TxCompleted,
	}
	after := func() {
		s.afterBalanceChange(ctx, debited, outgoing)
		s.afterBalanceChange(ctx, credited, incoming)
		s.publish(ctx, events.TransferCompleted, events.TransferCompletedEvent{
			TransferID:        transferID,
			Reference:         outgoing.Reference,
			FromAccountNumber: source.AccountNumber,
			ToAccountNumber:   dest.AccountNumber,
			FromUserID:        source.UserID,
			ToUserID:          dest.UserID,
			Amount:            cmd.Amount,
			Currency:          source.Currency,
		})
		s.logger.Info("transfer completed",
			zap.String("transfer_id", transferID),
			zap.String("from", utils.MaskAccountNumber(source.AccountNumber)),
			zap.String("to", utils.MaskAccountNumber(dest.AccountNumber)),
			zap.String("amount", cmd.Amount.StringFixed(2)),
		)
	}
	return result, after, nil
}

func (s *TransactionCommandService) interbank(ctx context.Context, source *models.Account, cmd cqrs.TransferCommand) (*models.TransferResult, func(), error) {
	debited, err := s.accounts.ApplyDelta(ctx, source.ID, cmd.Amount.Neg())
	if err != nil {
		return nil, nil, err
	}

	transferID := utils.GenerateTransferID()
	row := &models.Transaction{
		AccountID:   source.ID,
		Amount:      cmd.Amount.Neg(),
		Currency:    source.Currency,
		Type:        models.TxTransfer,
		Status:      models.TxPending,
		Description: transferDescription("Interbank transfer to "+cmd.ToAccountNumber, cmd.Description),
		TransferID:  transferID,
		Metadata: models.Metadata{
			"destination_account_number": cmd.ToAccountNumber,
			"processing_fee":             interbankProcessingFee,
			"transfer_type":              interbankTransferType,
		},
	}
	if err := s.ledger.Create(ctx, row); err != nil {
		return nil, nil, err
	}

	result := &models.TransferResult{
		TransferID:        transferID,
		Reference:         row.Reference,
		FromAccountNumber: source.AccountNumber,
		ToAccountNumber:   cmd.ToAccountNumber,
		Amount:            cmd.Amount,
		NewBalance:        debited.Balance,
		Status:            models.TxPending,
	}
	after := func() {
		s.afterBalanceChange(ctx, debited, row)
		s.publish(ctx, events.TransferPending, events.TransferPendingEvent{
			TransferID:               transferID,
			Reference:                row.Reference,
			FromAccountNumber:        source.AccountNumber,
			DestinationAccountNumber: cmd.ToAccountNumber,
			UserID:                   source.UserID,
			Amount:                   cmd.Amount,
			Currency:                 source.Currency,
		})
		s.logger.Info("interbank transfer pending",
			zap.String("transfer_id", transferID),
			zap.String("from", utils.MaskAccountNumber(source.AccountNumber)),
			zap.String("amount", cmd.Amount.StringFixed(2)),
		)
	}
	return result, after, nil
}

// TransitionStatus moves a ledger row along the status machine. Balances are
// not touched.
func (s *TransactionCommandService) TransitionStatus(ctx context.Context, cmd cqrs.TransitionStatusCommand) (t *models.Transaction, err error) {
	defer s.observe("transition", time.Now(), &err)

	if !cmd.Status.Valid() {
		return nil, apperrors.ErrInvalidTransition
	}
	current, err := s.ledger.GetByID(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(current.Status, cmd.Status) {
		return nil, fmt.Errorf("%w: %s to %s", apperrors.ErrInvalidTransition, current.Status, cmd.Status)
	}
	t, err = s.ledger.UpdateStatus(ctx, current.ID, current.Status, cmd.Status)
	if err != nil {
		return nil, err
	}

	s.txCache.InvalidateTransactionView(ctx, t.ID)
	s.publish(ctx, events.TransactionStatusChanged, events.TransactionStatusChangedEvent{
		TransactionID: t.ID,
		Reference:     t.Reference,
		From:          string(current.Status),
		To:            string(t.Status),
	})
	s.logger.Info("transaction status changed",
		zap.String("transaction_id", t.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(t.Status)),
		zap.String("reason", cmd.Reason),
	)
	return t, nil
}

// Delete removes a ledger row. It is an administrative correction and does
// not touch balances.
func (s *TransactionCommandService) Delete(ctx context.Context, cmd cqrs.DeleteTransactionCommand) (err error) {
	defer s.observe("delete", time.Now(), &err)

	if err := s.ledger.Delete(ctx, cmd.TransactionID); err != nil {
		return err
	}
	s.txCache.InvalidateTransactionView(ctx, cmd.TransactionID)
	s.logger.Warn("transaction deleted", zap.String("transaction_id", cmd.TransactionID))
	return nil
}

func (s *TransactionCommandService) ownedActiveAccount(ctx context.Context, accountNumber, userID string) (*models.Account, error) {
	account, err := s.accounts.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	if account.Status != models.AccountActive {
		return nil, apperrors.ErrAccountInactive
	}
	return account, nil
}

func (s *TransactionCommandService) afterBalanceChange(ctx context.Context, account *models.Account, t *models.Transaction) {
	s.accCache.InvalidateAccount(ctx, account.AccountNumber, account.UserID)
	s.publish(ctx, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: t.ID,
		Reference:     t.Reference,
		AccountNumber: account.AccountNumber,
		UserID:        account.UserID,
		Amount:        t.Amount,
		NewBalance:    account.Balance,
		Type:          string(t.Type),
		Status:        string(t.Status),
		Currency:      t.Currency,
	})
}

func (s *TransactionCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.TransactionEventsStream, eventType, data); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *TransactionCommandService) observe(op string, start time.Time, err *error) {
	s.metrics.RecordLedgerOp(op, outcome(*err), time.Since(start))
}

// outcome classifies an error for metrics: domain rejections are expected.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperrors.IsDomain(err):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

func descriptionOr(description, fallback string) string {
	if description == "" {
		return fallback
	}
	return description
}

func transferDescription(prefix, description string) string {
	if description == "" {
		return prefix
	}
	return prefix + ": " + description
}

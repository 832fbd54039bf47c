package command

import (
	"context"
	"strings"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	"go.uber.org/zap"
)

// BankCommandService maintains the bank directory. Codes are stored upper-case.
type BankCommandService struct {
	banks  BankStore
	logger *logging.Logger
}

func NewBankCommandService(banks BankStore) *BankCommandService {
	return &BankCommandService{banks: banks, logger: logging.L().Named("banks")}
}

func (s *BankCommandService) CreateBank(ctx context.Context, cmd cqrs.CreateBankCommand) (*models.Bank, error) {
	now := time.Now().UTC()
	bank := &models.Bank{
		ID:            utils.GenerateID("bnk"),
		Name:          strings.TrimSpace(cmd.Name),
		Code:          strings.ToUpper(strings.TrimSpace(cmd.Code)),
		SwiftCode:     strings.ToUpper(strings.TrimSpace(cmd.SwiftCode)),
		RoutingNumber: cmd.RoutingNumber,
		Country:       cmd.Country,
		Currency:      strings.ToUpper(cmd.Currency),
		ContactEmail:  cmd.ContactEmail,
		ContactPhone:  cmd.ContactPhone,
		Website:       cmd.Website,
		Address:       cmd.Address,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if bank.Currency == "" {
		bank.Currency = "USD"
	}
	if err := s.banks.Create(ctx, bank); err != nil {
		return nil, err
	}
	s.logger.Info("bank created", zap.String("bank_id", bank.ID), zap.String("code", bank.Code))
	return bank, nil
}

func (s *BankCommandService) UpdateBank(ctx context.Context, cmd cqrs.UpdateBankCommand) (*models.Bank, error) {
	bank, err := s.banks.GetByID(ctx, cmd.BankID)
	if err != nil {
		return nil, err
	}

	setString(&bank.Name, cmd.Name)
	if cmd.SwiftCode != nil {
		bank.SwiftCode = strings.ToUpper(strings.TrimSpace(*cmd.SwiftCode))
	}
	setString(&bank.RoutingNumber, cmd.RoutingNumber)
	setString(&bank.Country, cmd.Country)
	if cmd.Currency != nil {
		bank.Currency = strings.ToUpper(*cmd.Currency)
	}
	setString(&bank.ContactEmail, cmd.ContactEmail)
	setString(&bank.ContactPhone, cmd.ContactPhone)
	setString(&bank.Website, cmd.Website)
	setString(&bank.Address, cmd.Address)
	if cmd.IsActive != nil {
		bank.IsActive = *cmd.IsActive
	}
	bank.UpdatedAt = time.Now().UTC()

	if err := s.banks.Update(ctx, bank); err != nil {
		return nil, err
	}
	return bank, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

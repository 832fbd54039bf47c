package query

import (
	"context"

	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/models"
)

type BankReader interface {
	GetByID(ctx context.Context, id string) (*models.Bank, error)
	List(ctx context.Context, includeInactive bool) ([]models.Bank, error)
}

// BankQueryService serves the bank directory. Banks are public to any
// authenticated user.
type BankQueryService struct {
	banks BankReader
}

func NewBankQueryService(banks BankReader) *BankQueryService {
	return &BankQueryService{banks: banks}
}

func (s *BankQueryService) GetBank(ctx context.Context, q cqrs.GetBankQuery) (*models.Bank, error) {
	return s.banks.GetByID(ctx, q.BankID)
}

func (s *BankQueryService) ListBanks(ctx context.Context, q cqrs.ListBanksQuery) ([]models.Bank, error) {
	return s.banks.List(ctx, q.IncludeInactive)
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/Addisu87/bank-support-agent/internal/utils"
	"github.com/shopspring/decimal"
)

const maxToolTransactions = 50

// The agent reaches the bank through the same services as the REST API.
type (
	AccountQueries interface {
		ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
		GetBalance(context.Context, cqrs.GetAccountQuery) (*models.BalanceView, error)
	}
	CardQueries interface {
		ListCards(context.Context, cqrs.ListCardsQuery) ([]models.CardView, error)
	}
	CardCommands interface {
		BlockCard(context.Context, cqrs.SetCardStatusCommand) (*models.CardStatusChange, error)
	}
	UserQueries interface {
		GetUser(context.Context, cqrs.GetUserQuery) (*models.UserView, error)
	}
	BankQueries interface {
		ListBanks(context.Context, cqrs.ListBanksQuery) ([]models.Bank, error)
	}
	TransactionQueries interface {
		GetByReference(context.Context, cqrs.GetByReferenceQuery) (*models.TransactionView, error)
		ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.TransactionView, error)
		RecentTransactions(context.Context, cqrs.RecentTransactionsQuery) ([]models.TransactionView, error)
	}
	LedgerCommands interface {
		Deposit(context.Context, cqrs.DepositCommand) (*models.OperationResult, error)
		Withdraw(context.Context, cqrs.WithdrawCommand) (*models.OperationResult, error)
		Transfer(context.Context, cqrs.TransferCommand) (*models.TransferResult, error)
	}
)

// Services bundles everything the tools call.
type Services struct {
	Accounts     AccountQueries
	Cards        CardQueries
	CardCommands CardCommands
	Users        UserQueries
	Banks        BankQueries
	Transactions TransactionQueries
	Ledger       LedgerCommands
}

// Tool is a function the model may call. Run executes as userID.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	// Mutating tools change balances or card state; replies that used one
	// are never cached.
	Mutating bool
	Run      func(ctx context.Context, userID string, args json.RawMessage) (any, error)
}

type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name] = t
	}
	return r
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool list in a stable order.
func (r *Registry) Definitions() []ToolDefinition {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		params := t.Parameters
		if params == nil {
			params = object(nil)
		}
		defs = append(defs, ToolDefinition{
			Type:     "function",
			Function: FunctionSpec{Name: t.Name, Description: t.Description, Parameters: params},
		})
	}
	return defs
}

// BankingTools builds the banking tool set on top of svc.
func BankingTools(svc Services) *Registry {
	return NewRegistry(
		Tool{
			Name:        "list_accounts",
			Description: "List all of the customer's accounts with balances.",
			Run: func(ctx context.Context, userID string, _ json.RawMessage) (any, error) {
				return svc.Accounts.ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: userID})
			},
		},
		Tool{
			Name:        "get_account_balance",
			Description: "Get the current and available balance of one account.",
			Parameters:  object(map[string]any{"account_number": str("Account number, e.g. ACCT123456789012")}, "account_number"),
			Run: func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
				var args struct {
					AccountNumber string `json:"account_number"`
				}
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				return svc.Accounts.GetBalance(ctx, cqrs.GetAccountQuery{AccountNumber: args.AccountNumber, RequestingUserID: userID})
			},
		},
		Tool{
			Name:        "list_cards",
			Description: "List the customer's payment cards. Card numbers are masked.",
			Run: func(ctx context.Context, userID string, _ json.RawMessage) (any, error) {
				cards, err := svc.Cards.ListCards(ctx, cqrs.ListCardsQuery{UserID: userID})
				if err != nil {
					return nil, err
				}
				out := make([]maskedCard, 0, len(cards))
				for _, c := range cards {
					out = append(out, maskCard(c))
				}
				return out, nil
			},
		},
		Tool{
			Name:        "block_card",
			Description: "Block one of the customer's cards, for example when it is lost or stolen.",
			Parameters:  object(map[string]any{"card_id": str("Card id as returned by list_cards")}, "card_id"),
			Mutating:    true,
			Run: func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
				var args struct {
					CardID string `json:"card_id"`
				}
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				change, err := svc.CardCommands.BlockCard(ctx, cqrs.SetCardStatusCommand{CardID: args.CardID, RequestingUserID: userID})
				if err != nil {
					return nil, err
				}
				return map[string]any{"card": maskCard(*change.Card), "alreadyBlocked": change.Unchanged}, nil
			},
		},
		Tool{
			Name:        "get_user_profile",
			Description: "Get the customer's profile: name and contact details.",
			Run: func(ctx context.Context, userID string, _ json.RawMessage) (any, error) {
				return svc.Users.GetUser(ctx, cqrs.GetUserQuery{UserID: userID, RequestingUserID: userID})
			},
		},
		Tool{
			Name:        "list_banks",
			Description: "List the active banks customers can open accounts with.",
			Run: func(ctx context.Context, _ string, _ json.RawMessage) (any, error) {
				return svc.Banks.ListBanks(ctx, cqrs.ListBanksQuery{})
			},
		},
		Tool{
			Name:        "get_account_transactions",
			Description: "List the newest transactions of one account.",
			Parameters: object(map[string]any{
				"account_number": str("Account number"),
				"limit":          integer("Number of transactions, at most 50"),
			}, "account_number"),
			Run: func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
				var args struct {
					AccountNumber string `json:"account_number"`
					Limit         int    `json:"limit"`
				}
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				return svc.Transactions.ListTransactions(ctx, cqrs.ListTransactionsQuery{
					UserID:        userID,
					AccountNumber: args.AccountNumber,
					Limit:         capLimit(args.Limit),
				})
			},
		},
		Tool{
			Name:        "get_recent_transactions",
			Description: "List the customer's newest transactions across all accounts.",
			Parameters:  object(map[string]any{"limit": integer("Number of transactions, at most 50")}),
			Run: func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
				var args struct {
					Limit int `json:"limit"`
				}
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				return svc.Transactions.RecentTransactions(ctx, cqrs.RecentTransactionsQuery{UserID: userID, Limit: capLimit(args.Limit)})
			},
		},
		Tool{
			Name:        "get_transaction_by_reference",
			Description: "Look up one of the customer's transactions by its reference.",
			Parameters:  object(map[string]any{"reference": str("Transaction reference, e.g. DEP-...")}, "reference"),
			Run: func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
				var args struct {
					Reference string `json:"reference"`
				}
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				return svc.Transactions.GetByReference(ctx, cqrs.GetByReferenceQuery{Reference: args.Reference, UserID: userID})
			},
		},
		Tool{
			Name:        "deposit",
			Description: "Deposit money into one of the customer's accounts.",
			Parameters:  moneyParams(),
			Mutating:    true,
			Run: func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
				var args moneyArgs
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				if !models.ValidAmount(args.Amount) {
					return nil, apperrors.ErrInvalidAmount
				}
				return svc.Ledger.Deposit(ctx, cqrs.DepositCommand{
					AccountNumber: args.AccountNumber,
					UserID:        userID,
					Amount:        args.Amount,
					Description:   args.Description,
				})
			},
		},
		Tool{
			Name:        "withdraw",
			Description: "Withdraw money from one of the customer's accounts.",
			Parameters:  moneyParams(),
			Mutating:    true,
			Run: func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
				var args moneyArgs
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				if !models.ValidAmount(args.Amount) {
					return nil, apperrors.ErrInvalidAmount
				}
				return svc.Ledger.Withdraw(ctx, cqrs.WithdrawCommand{
					AccountNumber: args.AccountNumber,
					UserID:        userID,
					Amount:        args.Amount,
					Description:   args.Description,
				})
			},
		},
		Tool{
			Name:        "transfer",
			Description: "Transfer money from one of the customer's accounts to another account. Confirm the details with the customer first.",
			Parameters: object(map[string]any{
				"from_account_number": str("Source account, owned by the customer"),
				"to_account_number":   str("Destination account number"),
				"amount":              str("Amount as a decimal string, e.g. \"25.00\""),
				"description":         str("Optional note"),
			}, "from_account_number", "to_account_number", "amount"),
			Mutating: true,
			Run: func(ctx context.Context, userID string, raw json.RawMessage) (any, error) {
				var args struct {
					From        string          `json:"from_account_number"`
					To          string          `json:"to_account_number"`
					Amount      decimal.Decimal `json:"amount"`
					Description string          `json:"description"`
				}
				if err := decode(raw, &args); err != nil {
					return nil, err
				}
				if !models.ValidAmount(args.Amount) {
					return nil, apperrors.ErrInvalidAmount
				}
				return svc.Ledger.Transfer(ctx, cqrs.TransferCommand{
					FromAccountNumber: args.From,
					ToAccountNumber:   args.To,
					UserID:            userID,
					Amount:            args.Amount,
					Description:       args.Description,
				})
			},
		},
	)
}

type moneyArgs struct {
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

func moneyParams() map[string]any {
	return object(map[string]any{
		"account_number": str("Account number, owned by the customer"),
		"amount":         str("Amount as a decimal string, e.g. \"25.00\""),
		"description":    str("Optional note"),
	}, "account_number", "amount")
}

type maskedCard struct {
	ID                 string            `json:"id"`
	CardNumber         string            `json:"cardNumber"`
	AccountNumber      string            `json:"accountNumber"`
	CardType           models.CardType   `json:"cardType"`
	Status             models.CardStatus `json:"status"`
	ExpiryDate         string            `json:"expiryDate"`
	DailyLimit         decimal.Decimal   `json:"dailyLimit"`
	ContactlessEnabled bool              `json:"contactlessEnabled"`
	InternationalUsage bool              `json:"internationalUsage"`
}

func maskCard(c models.CardView) maskedCard {
	return maskedCard{
		ID:                 c.ID,
		CardNumber:         utils.MaskCardNumber(c.CardNumber),
		AccountNumber:      c.AccountNumber,
		CardType:           c.CardType,
		Status:             c.Status,
		ExpiryDate:         c.ExpiryDate.Format("01/06"),
		DailyLimit:         c.DailyLimit,
		ContactlessEnabled: c.ContactlessEnabled,
		InternationalUsage: c.InternationalUsage,
	}
}

func capLimit(n int) int {
	if n <= 0 {
		return 10
	}
	return min(n, maxToolTransactions)
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadArguments, err)
	}
	return nil
}

// JSON schema helpers.

func object(props map[string]any, required ...string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

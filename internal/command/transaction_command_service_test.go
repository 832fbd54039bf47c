package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/events"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/shopspring/decimal"
)

const (
	alice = "usr-alice"
	bob   = "usr-bob"

	bankA = "bnk-a"
	bankB = "bnk-b"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedgerService(store *memStore) *TransactionCommandService {
	return NewTransactionCommandService(store, store, memLedger{store}, store, store, store, nil)
}

// seed creates A (alice, 100) and B (bob, 50) at the same bank, and C (bob, 10) at another bank.
func seed() *memStore {
	store := newMemStore()
	store.addAccount("acc-1", alice, bankA, "ACCT000000000001", "100.00")
	store.addAccount("acc-2", bob, bankA, "ACCT000000000002", "50.00")
	store.addAccount("acc-3", bob, bankB, "ACCT000000000003", "10.00")
	return store
}

func TestDeposit_CreditsBalanceAndRecordsOneRow(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)

	res, err := svc.Deposit(context.Background(), cqrs.DepositCommand{
		AccountNumber: "ACCT000000000001",
		UserID:        alice,
		Amount:        dec("25.50"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.NewBalance.Equal(dec("125.50")) {
		t.Errorf("expected new balance 125.50, got %s", res.NewBalance)
	}
	if !store.balance("ACCT000000000001").Equal(dec("125.50")) {
		t.Errorf("stored balance not updated")
	}

	rows := store.rowsFor("acc-1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	row := rows[0]
	if row.Type != models.TxDeposit || row.Status != models.TxCompleted || !row.Amount.Equal(dec("25.50")) {
		t.Errorf("unexpected row %+v", row)
	}
	if !strings.HasPrefix(row.Reference, "DEP") || len(row.Reference) != 15 {
		t.Errorf("unexpected generated reference %q", row.Reference)
	}
	if len(store.invalidated) == 0 || store.published[0] != events.TransactionCreated {
		t.Errorf("expected cache invalidation and transaction.created, got %v %v", store.invalidated, store.published)
	}
}

func TestDeposit_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		cmd     cqrs.DepositCommand
		wantErr error
	}{
		{"zero amount", cqrs.DepositCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: decimal.Zero}, apperrors.ErrInvalidAmount},
		{"negative amount", cqrs.DepositCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("-5")}, apperrors.ErrInvalidAmount},
		{"sub-cent amount", cqrs.DepositCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("0.001")}, apperrors.ErrInvalidAmount},
		{"half-cent amount", cqrs.DepositCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("10.005")}, apperrors.ErrInvalidAmount},
		{"not the owner", cqrs.DepositCommand{AccountNumber: "ACCT000000000001", UserID: bob, Amount: dec("5")}, apperrors.ErrForbidden},
		{"unknown account", cqrs.DepositCommand{AccountNumber: "ACCT999999999999", UserID: alice, Amount: dec("5")}, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seed()
			svc := newLedgerService(store)

			_, err := svc.Deposit(context.Background(), tt.cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !store.balance("ACCT000000000001").Equal(dec("100")) || len(store.rows) != 0 {
				t.Errorf("state changed on rejected deposit")
			}
		})
	}
}

func TestDeposit_InactiveAccount(t *testing.T) {
	store := seed()
	store.accounts["acc-1"].Status = models.AccountSuspended
	svc := newLedgerService(store)

	_, err := svc.Deposit(context.Background(), cqrs.DepositCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("5")})
	if !errors.Is(err, apperrors.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestDeposit_DuplicateReferenceRollsBack(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)
	ctx := context.Background()

	cmd := cqrs.DepositCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("10"), Reference: "EXT-1"}
	if _, err := svc.Deposit(ctx, cmd); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if _, err := svc.Deposit(ctx, cmd); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if !store.balance("ACCT000000000001").Equal(dec("110")) {
		t.Errorf("expected balance 110 after rollback, got %s", store.balance("ACCT000000000001"))
	}
}

func TestWithdraw_DebitsBalance(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)

	res, err := svc.Withdraw(context.Background(), cqrs.WithdrawCommand{
		AccountNumber: "ACCT000000000001",
		UserID:        alice,
		Amount:        dec("100"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.NewBalance.IsZero() {
		t.Errorf("expected zero balance, got %s", res.NewBalance)
	}
	rows := store.rowsFor("acc-1")
	if len(rows) != 1 || rows[0].Type != models.TxWithdrawal || !rows[0].Amount.Equal(dec("-100")) {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if !strings.HasPrefix(rows[0].Reference, "WDR") {
		t.Errorf("unexpected reference %q", rows[0].Reference)
	}
}

func TestWithdraw_InsufficientFundsLeavesStateUnchanged(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)

	_, err := svc.Withdraw(context.Background(), cqrs.WithdrawCommand{
		AccountNumber: "ACCT000000000001",
		UserID:        alice,
		Amount:        dec("200"),
	})
	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !store.balance("ACCT000000000001").Equal(dec("100")) {
		t.Errorf("balance changed: %s", store.balance("ACCT000000000001"))
	}
	if len(store.rows) != 0 {
		t.Errorf("expected no ledger rows, got %d", len(store.rows))
	}
}

func TestWithdraw_RejectsSubCentAmount(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)

	_, err := svc.Withdraw(context.Background(), cqrs.WithdrawCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("10.005")})
	if !errors.Is(err, apperrors.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if !store.balance("ACCT000000000001").Equal(dec("100")) || len(store.rows) != 0 {
		t.Errorf("state changed on rejected withdrawal")
	}
}

func TestWithdraw_UsesAvailableBalance(t *testing.T) {
	store := seed()
	store.accounts["acc-1"].AvailableBalance = dec("40")
	svc := newLedgerService(store)

	_, err := svc.Withdraw(context.Background(), cqrs.WithdrawCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("50")})
	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestTransfer_SameBankConservesFunds(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)

	res, err := svc.Transfer(context.Background(), cqrs.TransferCommand{
		FromAccountNumber: "ACCT000000000001",
		ToAccountNumber:   "ACCT000000000002",
		UserID:            alice,
		Amount:            dec("30"),
		Description:       "rent",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !store.balance("ACCT000000000001").Equal(dec("70")) || !store.balance("ACCT000000000002").Equal(dec("80")) {
		t.Fatalf("unexpected balances A=%s B=%s", store.balance("ACCT000000000001"), store.balance("ACCT000000000002"))
	}
	if res.Status != models.TxCompleted || !res.NewBalance.Equal(dec("70")) {
		t.Errorf("unexpected result %+v", res)
	}
	if !strings.HasPrefix(res.TransferID, "TRF-") {
		t.Errorf("unexpected transfer id %q", res.TransferID)
	}

	if len(store.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(store.rows))
	}
	sum := decimal.Zero
	for _, r := range store.rows {
		if r.TransferID != res.TransferID || r.Type != models.TxTransfer || r.Status != models.TxCompleted {
			t.Errorf("unexpected row %+v", r)
		}
		sum = sum.Add(r.Amount)
	}
	if !sum.IsZero() {
		t.Errorf("transfer rows must sum to zero, got %s", sum)
	}
	out := store.rowsFor("acc-1")[0]
	in := store.rowsFor("acc-2")[0]
	if !out.Amount.Equal(dec("-30")) || !strings.Contains(out.Description, "ACCT000000000002") {
		t.Errorf("unexpected outgoing row %+v", out)
	}
	if !in.Amount.Equal(dec("30")) || !strings.Contains(in.Description, "ACCT000000000001") {
		t.Errorf("unexpected incoming row %+v", in)
	}
	if out.Reference == in.Reference {
		t.Errorf("legs must carry distinct references")
	}
}

func TestTransfer_InterbankLeavesPendingDebit(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)

	res, err := svc.Transfer(context.Background(), cqrs.TransferCommand{
		FromAccountNumber: "ACCT000000000001",
		ToAccountNumber:   "GB29NWBK60161331926819",
		UserID:            alice,
		Amount:            dec("40"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != models.TxPending || !res.NewBalance.Equal(dec("60")) {
		t.Errorf("unexpected result %+v", res)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(store.rows))
	}
	row := store.rows[0]
	if row.Status != models.TxPending || !row.Amount.Equal(dec("-40")) {
		t.Errorf("unexpected row %+v", row)
	}
	if row.Metadata["destination_account_number"] != "GB29NWBK60161331926819" ||
		row.Metadata["processing_fee"] != "0.00" ||
		row.Metadata["transfer_type"] != "interbank" {
		t.Errorf("unexpected metadata %v", row.Metadata)
	}
	for _, other := range []string{"ACCT000000000002", "ACCT000000000003"} {
		if len(store.rowsFor(other)) != 0 {
			t.Errorf("account %s touched", other)
		}
	}
	if !store.balance("ACCT000000000002").Equal(dec("50")) || !store.balance("ACCT000000000003").Equal(dec("10")) {
		t.Errorf("other balances changed")
	}
	if store.published[len(store.published)-1] != events.TransferPending {
		t.Errorf("expected transfer.pending, got %v", store.published)
	}
}

func TestTransfer_OtherBankIsInterbank(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)

	res, err := svc.Transfer(context.Background(), cqrs.TransferCommand{
		FromAccountNumber: "ACCT000000000001",
		ToAccountNumber:   "ACCT000000000003",
		UserID:            alice,
		Amount:            dec("10"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != models.TxPending {
		t.Errorf("expected pending, got %s", res.Status)
	}
	if !store.balance("ACCT000000000003").Equal(dec("10")) {
		t.Errorf("destination at another bank must not be credited")
	}
}

func TestTransfer_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		cmd     cqrs.TransferCommand
		wantErr error
	}{
		{"same account", cqrs.TransferCommand{FromAccountNumber: "ACCT000000000001", ToAccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("1")}, apperrors.ErrSameAccount},
		{"non-positive", cqrs.TransferCommand{FromAccountNumber: "ACCT000000000001", ToAccountNumber: "ACCT000000000002", UserID: alice, Amount: dec("0")}, apperrors.ErrInvalidAmount},
		{"sub-cent amount", cqrs.TransferCommand{FromAccountNumber: "ACCT000000000001", ToAccountNumber: "ACCT000000000002", UserID: alice, Amount: dec("0.005")}, apperrors.ErrInvalidAmount},
		{"not the owner", cqrs.TransferCommand{FromAccountNumber: "ACCT000000000002", ToAccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("1")}, apperrors.ErrForbidden},
		{"source missing", cqrs.TransferCommand{FromAccountNumber: "ACCT999999999999", ToAccountNumber: "ACCT000000000002", UserID: alice, Amount: dec("1")}, apperrors.ErrNotFound},
		{"insufficient", cqrs.TransferCommand{FromAccountNumber: "ACCT000000000001", ToAccountNumber: "ACCT000000000002", UserID: alice, Amount: dec("100.01")}, apperrors.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seed()
			svc := newLedgerService(store)

			_, err := svc.Transfer(context.Background(), tt.cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !store.balance("ACCT000000000001").Equal(dec("100")) || !store.balance("ACCT000000000002").Equal(dec("50")) {
				t.Errorf("balances changed on rejected transfer")
			}
			if len(store.rows) != 0 {
				t.Errorf("expected no rows, got %d", len(store.rows))
			}
		})
	}
}

func TestTransfer_LedgerFailureRollsBackBothLegs(t *testing.T) {
	store := seed()
	store.failLedger = errors.New("disk full")
	svc := newLedgerService(store)

	_, err := svc.Transfer(context.Background(), cqrs.TransferCommand{
		FromAccountNumber: "ACCT000000000001",
		ToAccountNumber:   "ACCT000000000002",
		UserID:            alice,
		Amount:            dec("30"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !store.balance("ACCT000000000001").Equal(dec("100")) || !store.balance("ACCT000000000002").Equal(dec("50")) {
		t.Errorf("balances must be rolled back")
	}
	if len(store.published) != 0 {
		t.Errorf("no events may be published for a failed transfer, got %v", store.published)
	}
}

func TestTransitionStatus(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)
	ctx := context.Background()

	if _, err := svc.Transfer(ctx, cqrs.TransferCommand{
		FromAccountNumber: "ACCT000000000001",
		ToAccountNumber:   "EXTERNAL-1",
		UserID:            alice,
		Amount:            dec("40"),
	}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	id := store.rows[0].ID

	if _, err := svc.TransitionStatus(ctx, cqrs.TransitionStatusCommand{TransactionID: id, Status: models.TxReversed}); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("pending -> reversed must be rejected, got %v", err)
	}

	updated, err := svc.TransitionStatus(ctx, cqrs.TransitionStatusCommand{TransactionID: id, Status: models.TxCompleted, Reason: "settled"})
	if err != nil {
		t.Fatalf("pending -> completed: %v", err)
	}
	if updated.Status != models.TxCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}
	if !store.balance("ACCT000000000001").Equal(dec("60")) {
		t.Errorf("status transitions must not move money")
	}

	if _, err := svc.TransitionStatus(ctx, cqrs.TransitionStatusCommand{TransactionID: id, Status: models.TxFailed}); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("completed -> failed must be rejected, got %v", err)
	}
	if _, err := svc.TransitionStatus(ctx, cqrs.TransitionStatusCommand{TransactionID: "tan-missing", Status: models.TxCompleted}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.TransitionStatus(ctx, cqrs.TransitionStatusCommand{TransactionID: id, Status: "bogus"}); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("unknown status must be rejected, got %v", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	store := seed()
	svc := newLedgerService(store)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, cqrs.DepositCommand{AccountNumber: "ACCT000000000001", UserID: alice, Amount: dec("1")}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	id := store.rows[0].ID

	if err := svc.Delete(ctx, cqrs.DeleteTransactionCommand{TransactionID: id}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("row not deleted")
	}
	if err := svc.Delete(ctx, cqrs.DeleteTransactionCommand{TransactionID: id}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

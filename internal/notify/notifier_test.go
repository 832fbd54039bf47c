package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/apperrors"
	"github.com/Addisu87/bank-support-agent/internal/events"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type directory map[string]string

func (d directory) GetByID(_ context.Context, id string) (*models.UserView, error) {
	email, ok := d[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	return &models.UserView{ID: id, Email: email}, nil
}

func newNotifier(t *testing.T, mailer Mailer) *Notifier {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	users := directory{"u1": "ada@example.com", "u2": "bob@example.com"}
	return NewNotifier(users, mailer, client)
}

func event(eventType string, data any) events.Event {
	return events.Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data}
}

func TestDepositNotification(t *testing.T) {
	mailer := &recordingMailer{}
	n := newNotifier(t, mailer)

	err := n.HandleEvent(context.Background(), event(events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: "tx-1",
		Reference:     "DEP-1",
		AccountNumber: "ACCT000000001234",
		UserID:        "u1",
		Amount:        decimal.RequireFromString("100.5"),
		NewBalance:    decimal.RequireFromString("200.5"),
		Type:          string(models.TxDeposit),
		Currency:      "USD",
	}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	got := mailer.sent[0]
	if got.to != "ada@example.com" || got.subject != "Deposit of 100.50 USD on ****1234" {
		t.Errorf("unexpected email %+v", got)
	}
	if strings.Contains(got.body, "ACCT000000001234") {
		t.Error("full account number in email body")
	}
}

func TestTransferLegsAreNotMailedTwice(t *testing.T) {
	mailer := &recordingMailer{}
	n := newNotifier(t, mailer)

	err := n.HandleEvent(context.Background(), event(events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: "tx-2", UserID: "u1", Type: string(models.TxTransfer), Amount: decimal.NewFromInt(-30),
	}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("transfer leg should not be mailed, got %+v", mailer.sent)
	}
}

func TestTransferCompletedMailsBothParties(t *testing.T) {
	mailer := &recordingMailer{}
	n := newNotifier(t, mailer)

	err := n.HandleEvent(context.Background(), event(events.TransferCompleted, events.TransferCompletedEvent{
		TransferID:        "TRF-1",
		FromAccountNumber: "ACCT000000000001",
		ToAccountNumber:   "ACCT000000000002",
		FromUserID:        "u1",
		ToUserID:          "u2",
		Amount:            decimal.NewFromInt(30),
		Currency:          "USD",
	}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected two emails, got %d", len(mailer.sent))
	}
	if mailer.sent[0].to != "ada@example.com" || !strings.HasPrefix(mailer.sent[0].subject, "Transfer sent") {
		t.Errorf("unexpected sender mail %+v", mailer.sent[0])
	}
	if mailer.sent[1].to != "bob@example.com" || !strings.HasPrefix(mailer.sent[1].subject, "Transfer received") {
		t.Errorf("unexpected recipient mail %+v", mailer.sent[1])
	}
}

func TestRedeliveryIsDeduplicated(t *testing.T) {
	mailer := &recordingMailer{}
	n := newNotifier(t, mailer)
	ev := event(events.TransferPending, events.TransferPendingEvent{
		TransferID: "TRF-2", UserID: "u1", Amount: decimal.NewFromInt(40), Currency: "USD",
		FromAccountNumber: "ACCT000000000001", DestinationAccountNumber: "GB00EXTERNAL0001",
	})

	for i := 0; i < 3; i++ {
		if err := n.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected one email across redeliveries, got %d", len(mailer.sent))
	}
}

func TestFailedSendIsRetried(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("relay down")}
	n := newNotifier(t, mailer)
	ev := event(events.UserRegistered, events.UserRegisteredEvent{UserID: "u9", Email: "new@example.com", FullName: "New"})

	if err := n.HandleEvent(context.Background(), ev); err == nil {
		t.Fatal("expected send error")
	}

	mailer.err = nil
	if err := n.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "new@example.com" {
		t.Errorf("unexpected mails %+v", mailer.sent)
	}
}

func TestUnknownEventsIgnored(t *testing.T) {
	mailer := &recordingMailer{}
	n := newNotifier(t, mailer)
	if err := n.HandleEvent(context.Background(), event(events.AccountOpened, events.AccountOpenedEvent{})); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("expected no mail, got %+v", mailer.sent)
	}
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "user", Password: "pw", From: "bank@example.com"})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if a == nil {
			t.Error("expected auth when username is set")
		}
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := m.Send(context.Background(), "ada@example.com", "Hello", "line one\nline two"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || gotFrom != "bank@example.com" || len(gotTo) != 1 {
		t.Errorf("unexpected envelope %s %s %v", gotAddr, gotFrom, gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Hello\r\n") || !strings.Contains(msg, "line one\r\nline two") {
		t.Errorf("unexpected message:\n%s", msg)
	}
}

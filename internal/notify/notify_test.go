package notify

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"montra/internal/core"
	applog "montra/internal/log"
	"montra/internal/report"
)

func TestSMTPSenderBuildsEmail(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p", From: "montra@example.com"})
	var (
		got     *email.Email
		gotAddr string
		gotAuth smtp.Auth
	)
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		got, gotAddr, gotAuth = e, addr, auth
		return nil
	}

	err := s.Send(context.Background(), Message{
		To:          "ada@example.com",
		Subject:     "Hello",
		Text:        "body",
		Attachments: []Attachment{{Filename: "a.csv", ContentType: "text/csv", Data: []byte("x,y\n")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "montra@example.com", got.From)
	assert.Equal(t, []string{"ada@example.com"}, got.To)
	assert.Equal(t, "Hello", got.Subject)
	assert.Equal(t, "body", string(got.Text))
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "a.csv", got.Attachments[0].Filename)
}

func TestSMTPSenderErrors(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: "25"})
	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("refused") }

	assert.ErrorIs(t, s.Send(context.Background(), Message{Subject: "x"}), ErrNoRecipient)
	assert.ErrorContains(t, s.Send(context.Background(), Message{To: "a@b.c"}), "refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "a@b.c"}), context.Canceled)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(applog.New(applog.Config{Output: &buf}))

	require.NoError(t, s.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hi"}))
	assert.Contains(t, buf.String(), "subject=Hi")
	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipient)
}

func TestBudgetAlert(t *testing.T) {
	prefs := core.NewDisplayPreferences("USD", core.ThemeLight)
	views := []report.BudgetView{{
		Category: "Food",
		Month:    "2025-03",
		Amount:   report.NewMoney(decimal.NewFromInt(100), prefs),
		Spent:    report.NewMoney(decimal.RequireFromString("120.50"), prefs),
	}}
	msg := BudgetAlert(core.Profile{DisplayName: "Ada", Email: "ada@example.com"}, views)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, "Budget exceeded: Food", msg.Subject)
	assert.Contains(t, msg.Text, "Hi Ada,")
	assert.Contains(t, msg.Text, "Food (2025-03): spent $120.50 of $100.00, over by 20.50")
}

func TestMonthlySummary(t *testing.T) {
	st := report.Statement{
		Window: core.Window{Label: "February 2025"},
		Summary: report.Summary{
			Income:  decimal.NewFromInt(3000),
			Expense: decimal.RequireFromString("1234.5"),
			Net:     decimal.RequireFromString("1765.5"),
		},
		Breakdown: []report.CategoryShare{
			{Name: "Housing", Total: decimal.NewFromInt(900)},
			{Name: "Food", Total: decimal.NewFromInt(200)},
			{Name: "Fun", Total: decimal.NewFromInt(100)},
			{Name: "Other", Total: decimal.NewFromInt(34)},
		},
		Display:     core.NewDisplayPreferences("EUR", core.ThemeLight),
		GeneratedAt: time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC),
	}
	msg := MonthlySummary(core.Profile{Email: "ada@example.com"}, st, []byte("csv"), "february.csv")

	assert.Equal(t, "Your Montra summary for February 2025", msg.Subject)
	assert.Contains(t, msg.Text, "Hi there,")
	assert.Contains(t, msg.Text, "Expenses:     €1,234.50")
	assert.Contains(t, msg.Text, "3. Fun €100.00")
	assert.NotContains(t, msg.Text, "4. Other")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "february.csv", msg.Attachments[0].Filename)
}

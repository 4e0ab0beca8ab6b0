// Package notify composes and sends the e-mails of the worker: budget alerts
// and the monthly summary.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"montra/internal/core"
	applog "montra/internal/log"
	"montra/internal/report"
)

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

var ErrNoRecipient = errors.New("message has no recipient")

// SMTPSender sends messages through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text)
	for _, a := range msg.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Data), a.Filename, a.ContentType); err != nil {
			return fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	if err := s.send(e, addr, auth); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender records messages in the log instead of sending them. It stands
// in when no SMTP relay is configured.
type LogSender struct {
	logger *applog.Logger
}

func NewLogSender(logger *applog.Logger) *LogSender {
	if logger == nil {
		logger = applog.NewDefault()
	}
	return &LogSender{logger: logger.WithComponent(applog.ComponentNotify)}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	s.logger.InfoContext(ctx, "E-mail not sent, SMTP disabled",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments))
	return nil
}

func greetingName(p core.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "there"
}

// BudgetAlert tells the user which budgets of a month went over.
func BudgetAlert(p core.Profile, exceeded []report.BudgetView) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", greetingName(p))
	if len(exceeded) == 1 {
		b.WriteString("One of your budgets has been exceeded:\n\n")
	} else {
		fmt.Fprintf(&b, "%d of your budgets have been exceeded:\n\n", len(exceeded))
	}
	for _, v := range exceeded {
		over := v.Spent.Value - v.Amount.Value
		fmt.Fprintf(&b, "  - %s (%s): spent %s of %s, over by %.2f\n",
			v.Category, v.Month, v.Spent.Display, v.Amount.Display, over)
	}
	b.WriteString("\nMontra Financial Tracker\n")

	subject := "Budget exceeded"
	if len(exceeded) == 1 {
		subject += ": " + exceeded[0].Category
	}
	return Message{To: p.Email, Subject: subject, Text: b.String()}
}

// MonthlySummary reports the totals of a closed month with the transactions
// attached as CSV.
func MonthlySummary(p core.Profile, st report.Statement, csv []byte, filename string) Message {
	prefs := st.Display
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", greetingName(p))
	fmt.Fprintf(&b, "Here is your summary for %s.\n\n", st.Window.Label)
	fmt.Fprintf(&b, "  Income:       %s\n", prefs.FormatMoney(st.Summary.Income))
	fmt.Fprintf(&b, "  Expenses:     %s\n", prefs.FormatMoney(st.Summary.Expense))
	fmt.Fprintf(&b, "  Net Savings:  %s\n", prefs.FormatMoney(st.Summary.Net))
	fmt.Fprintf(&b, "  Transactions: %d\n", len(st.Transactions))

	if len(st.Breakdown) > 0 {
		b.WriteString("\nTop spending categories:\n")
		for i, c := range st.Breakdown {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "  %d. %s %s\n", i+1, c.Name, prefs.FormatMoney(c.Total))
		}
	}
	b.WriteString("\nMontra Financial Tracker\n")

	msg := Message{
		To:      p.Email,
		Subject: "Your Montra summary for " + st.Window.Label,
		Text:    b.String(),
	}
	if len(csv) > 0 {
		msg.Attachments = []Attachment{{Filename: filename, ContentType: "text/csv", Data: csv}}
	}
	return msg
}

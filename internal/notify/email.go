package notify

import (
	"context"
	"estateguru-notifier/internal/components/telemetry"
	"estateguru-notifier/internal/scrapers/estateguru"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

const (
	report_email_send = "email.send"
)

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Enabled reports whether enough is configured to send email.
func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && c.EmailAddress != "" && len(c.To) > 0
}

// Email mirrors the chat messages to a list of recipients.
type Email struct {
	cfg  SmtpConfig
	send func(mail *email.Email) error
	tel  telemetry.API
}

func NewEmail(cfg SmtpConfig, tel telemetry.API) Email {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	e := Email{cfg: cfg, tel: telemetry.NewScopedAPI("notify", tel)}
	e.send = e.sendSmtp
	return e
}

func (e Email) sendSmtp(mail *email.Email) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Server, e.cfg.Port)
	err := mail.Send(addr, smtp.PlainAuth("", e.cfg.EmailAddress, e.cfg.Password, e.cfg.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		return mail.Send(addr, nil)
	}
	return err
}

func (e Email) compose(subject, body string) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Estateguru Notifier <%s>", e.cfg.EmailAddress)
	mail.To = e.cfg.To
	mail.Subject = subject
	mail.HTML = []byte(strings.ReplaceAll(body, "\n", "<br>\n"))
	return mail
}

func (e Email) deliver(subject, body string) error {
	err := e.send(e.compose(subject, body))
	if err != nil {
		err = TransportError{Channel: "email", Err: err}
		e.tel.ReportBroken(report_email_send, err)
		return err
	}
	return nil
}

func (e Email) NotifyFound(_ context.Context, loan estateguru.Loan) error {
	return e.deliver(
		fmt.Sprintf("Nuovo progetto %s (%s, %d mesi)", loan.Id, loan.InterestRate, loan.DurationMonths),
		RenderFound(loan),
	)
}

func (e Email) NotifyNoneFound(_ context.Context) error {
	return e.deliver("Nessun progetto trovato", RenderNoneFound())
}

func (e Email) NotifyError(_ context.Context, message string) error {
	return e.deliver("Errore durante la scansione", RenderError(message))
}

// Package notify renders loan alerts and delivers them to chat (and optionally email).
package notify

import (
	"context"
	"estateguru-notifier/internal/scrapers/estateguru"
	"fmt"
	"html"
)

// Notifier delivers one message per call, nothing is batched or retried.
type Notifier interface {
	NotifyFound(ctx context.Context, loan estateguru.Loan) error
	NotifyNoneFound(ctx context.Context) error
	NotifyError(ctx context.Context, message string) error
}

// 1: loan url
// 2: interest rate
// 3: loan to value
// 4: duration in months
const templateFound = `🏠 <a href="%s">NUOVO PROGETTO</a> 🏠

💰 Interesse: <b>%s</b>
📊 LTV: <b>%s</b>
🕑 Durata: <b>%d mesi</b>`

const templateNoneFound = `😢 Nessun progetto trovato 😢`

// 1: error message
const templateError = `⚠️ Errore durante la scansione ⚠️

<code>%s</code>`

// RenderFound renders the alert for an eligible loan, values coming from the scraped page are
// escaped so they cannot break the HTML parse mode.
func RenderFound(loan estateguru.Loan) string {
	return fmt.Sprintf(
		templateFound,
		html.EscapeString(loan.Url),
		html.EscapeString(loan.InterestRate),
		html.EscapeString(loan.LoanToValue),
		loan.DurationMonths,
	)
}

func RenderNoneFound() string {
	return templateNoneFound
}

func RenderError(message string) string {
	return fmt.Sprintf(templateError, html.EscapeString(message))
}

// TransportError means a message could not be delivered.
type TransportError struct {
	Channel string
	Status  int
	Reason  string
	Err     error
}

func (e TransportError) Error() string {
	msg := fmt.Sprintf("notify %s", e.Channel)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e TransportError) Unwrap() error {
	return e.Err
}

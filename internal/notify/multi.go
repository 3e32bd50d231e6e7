package notify

import (
	"context"
	"errors"
	"estateguru-notifier/internal/scrapers/estateguru"
)

// Multi delivers every message to each notifier in turn, a failing notifier does not stop
// the others.
type Multi []Notifier

func (m Multi) each(fn func(n Notifier) error) error {
	var errs []error
	for _, n := range m {
		err := fn(n)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyFound(ctx context.Context, loan estateguru.Loan) error {
	return m.each(func(n Notifier) error {
		return n.NotifyFound(ctx, loan)
	})
}

func (m Multi) NotifyNoneFound(ctx context.Context) error {
	return m.each(func(n Notifier) error {
		return n.NotifyNoneFound(ctx)
	})
}

func (m Multi) NotifyError(ctx context.Context, message string) error {
	return m.each(func(n Notifier) error {
		return n.NotifyError(ctx, message)
	})
}

package telemetry

import (
	"strings"
)

const redacted = "<redacted>"

func newRedactor(secrets []string) *strings.Replacer {
	pairs := make([]string, 0, len(secrets)*2)
	for _, s := range secrets {
		if s == "" {
			continue
		}
		pairs = append(pairs, s, redacted)
	}
	return strings.NewReplacer(pairs...)
}

type redactedError struct {
	err      error
	redactor *strings.Replacer
}

func (e redactedError) Error() string {
	return e.redactor.Replace(e.err.Error())
}

func (e redactedError) Unwrap() error {
	return e.err
}

// RedactError hides every occurrence of `secrets` in the message of err, errors.Is and
// errors.As still see the original.
func RedactError(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	return redactedError{err: err, redactor: newRedactor(secrets)}
}

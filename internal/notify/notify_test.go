package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"estateguru-notifier/internal/components/telemetry"
	"estateguru-notifier/internal/scrapers/estateguru"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

var testLoan = estateguru.Loan{
	Id:             "101",
	Url:            "https://estateguru.co/investment/show/101",
	InterestRate:   "12.5%",
	LoanToValue:    "65%",
	DurationMonths: 6,
	Rank:           "First rank",
	Location:       "Spain",
}

func TestRenderFound(t *testing.T) {
	expected := "🏠 <a href=\"https://estateguru.co/investment/show/101\">NUOVO PROGETTO</a> 🏠\n\n" +
		"💰 Interesse: <b>12.5%</b>\n" +
		"📊 LTV: <b>65%</b>\n" +
		"🕑 Durata: <b>6 mesi</b>"
	require.Equal(t, expected, RenderFound(testLoan))
}

func TestRenderEscapes(t *testing.T) {
	loan := testLoan
	loan.InterestRate = "<12%>"
	require.Contains(t, RenderFound(loan), "<b>&lt;12%&gt;</b>")

	rendered := RenderError(`fetch https://x/?a=1&b=2: <nil>`)
	require.True(t, strings.HasPrefix(rendered, "⚠️ Errore durante la scansione ⚠️"))
	require.Contains(t, rendered, "<code>fetch https://x/?a=1&amp;b=2: &lt;nil&gt;</code>")
}

func TestRenderNoneFound(t *testing.T) {
	require.Equal(t, "😢 Nessun progetto trovato 😢", RenderNoneFound())
}

type telegramRequest struct {
	path string
	form url.Values
}

type fakeTelegram struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []telegramRequest
	response string
	status   int
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	f := &fakeTelegram{
		response: `{"ok":true,"result":{"message_id":1}}`,
		status:   http.StatusOK,
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.requests = append(f.requests, telegramRequest{path: r.URL.Path, form: r.PostForm})
		response, status := f.response, f.status
		f.mu.Unlock()

		w.Header().Set("content-type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestTelegram(f *fakeTelegram) Telegram {
	return NewTelegram(TelegramConfig{
		ApiBase: f.server.URL,
		Token:   "123:abc",
		ChatId:  "4242",
		Timeout: 5 * time.Second,
	}, telemetry.SlogAPI{})
}

func TestTelegramSend(t *testing.T) {
	f := newFakeTelegram(t)
	tg := newTestTelegram(f)

	require.NoError(t, tg.NotifyFound(context.Background(), testLoan))
	require.NoError(t, tg.NotifyNoneFound(context.Background()))
	require.NoError(t, tg.NotifyError(context.Background(), "boom"))

	require.Len(t, f.requests, 3)
	for _, req := range f.requests {
		require.Equal(t, "/bot123:abc/sendMessage", req.path)
		require.Equal(t, "4242", req.form.Get("chat_id"))
		require.Equal(t, "HTML", req.form.Get("parse_mode"))
	}
	require.Equal(t, RenderFound(testLoan), f.requests[0].form.Get("text"))
	require.Equal(t, RenderNoneFound(), f.requests[1].form.Get("text"))
	require.Equal(t, RenderError("boom"), f.requests[2].form.Get("text"))
}

func TestTelegramRejected(t *testing.T) {
	f := newFakeTelegram(t)
	f.status = http.StatusBadRequest
	f.response = `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	tg := newTestTelegram(f)

	err := tg.NotifyNoneFound(context.Background())

	var transportErr TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, "telegram", transportErr.Channel)
	require.Equal(t, http.StatusBadRequest, transportErr.Status)
	require.Equal(t, "Bad Request: chat not found", transportErr.Reason)
}

func TestTelegramNotOk(t *testing.T) {
	f := newFakeTelegram(t)
	f.response = `{"ok":false,"description":"flood control"}`
	tg := newTestTelegram(f)

	err := tg.NotifyFound(context.Background(), testLoan)
	require.ErrorContains(t, err, "flood control")
}

func TestTelegramUnreachable(t *testing.T) {
	f := newFakeTelegram(t)
	tg := newTestTelegram(f)
	f.server.Close()

	err := tg.NotifyError(context.Background(), "boom")

	var transportErr TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, 0, transportErr.Status)
	require.Error(t, transportErr.Err)
}

// logTel keeps every report as a single line of text.
type logTel struct {
	mu    sync.Mutex
	lines []string
}

func (l *logTel) add(kind, id string, params []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %s", kind, id, fmt.Sprint(params...)))
}

func (l *logTel) ReportBroken(id string, params ...any)  { l.add("broken", id, params) }
func (l *logTel) ReportWarning(id string, params ...any) { l.add("warning", id, params) }
func (l *logTel) ReportDebug(msg string, params ...any)  { l.add("debug", msg, params) }
func (l *logTel) ReportCount(id string, count int64)     { l.add("count", id, []any{count}) }

func TestTelegramUnreachableHidesToken(t *testing.T) {
	f := newFakeTelegram(t)
	f.server.Close()

	tel := &logTel{}
	tg := NewTelegram(TelegramConfig{
		ApiBase: f.server.URL,
		Token:   "SECRET123",
		ChatId:  "4242",
		Timeout: 5 * time.Second,
	}, tel)

	err := tg.NotifyError(context.Background(), "boom")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "SECRET123")
	require.Contains(t, err.Error(), "bot<redacted>")

	require.NotEmpty(t, tel.lines)
	for _, line := range tel.lines {
		require.NotContains(t, line, "SECRET123")
	}
}

func TestEmail(t *testing.T) {
	var sent []*email.Email
	e := NewEmail(SmtpConfig{
		Server:       "smtp.example.test",
		EmailAddress: "bot@example.test",
		To:           []string{"me@example.test"},
	}, telemetry.SlogAPI{})
	e.send = func(mail *email.Email) error {
		sent = append(sent, mail)
		return nil
	}

	require.NoError(t, e.NotifyFound(context.Background(), testLoan))
	require.NoError(t, e.NotifyNoneFound(context.Background()))

	require.Len(t, sent, 2)
	require.Equal(t, "Estateguru Notifier <bot@example.test>", sent[0].From)
	require.Equal(t, []string{"me@example.test"}, sent[0].To)
	require.Equal(t, "Nuovo progetto 101 (12.5%, 6 mesi)", sent[0].Subject)
	require.Contains(t, string(sent[0].HTML), "<br>\n💰 Interesse: <b>12.5%</b>")
	require.Equal(t, "Nessun progetto trovato", sent[1].Subject)

	e.send = func(*email.Email) error {
		return errors.New("connection refused")
	}
	err := e.NotifyError(context.Background(), "boom")
	var transportErr TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, "email", transportErr.Channel)
}

func TestSmtpConfigEnabled(t *testing.T) {
	require.False(t, SmtpConfig{}.Enabled())
	require.False(t, SmtpConfig{Server: "s", EmailAddress: "a"}.Enabled())
	require.True(t, SmtpConfig{Server: "s", EmailAddress: "a", To: []string{"b"}}.Enabled())
}

type countingNotifier struct {
	found, none, errs int
	fail              error
}

func (c *countingNotifier) NotifyFound(context.Context, estateguru.Loan) error {
	c.found++
	return c.fail
}

func (c *countingNotifier) NotifyNoneFound(context.Context) error {
	c.none++
	return c.fail
}

func (c *countingNotifier) NotifyError(context.Context, string) error {
	c.errs++
	return c.fail
}

func TestMulti(t *testing.T) {
	failing := &countingNotifier{fail: errors.New("down")}
	ok := &countingNotifier{}
	m := Multi{failing, ok}

	err := m.NotifyFound(context.Background(), testLoan)
	require.ErrorContains(t, err, "down")
	require.NoError(t, Multi{ok}.NotifyNoneFound(context.Background()))
	require.Error(t, m.NotifyError(context.Background(), "x"))

	require.Equal(t, 1, failing.found)
	require.Equal(t, 1, ok.found)
	require.Equal(t, 1, ok.none)
	require.Equal(t, 1, ok.errs)
	require.Equal(t, 1, failing.errs)
}

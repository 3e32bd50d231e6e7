package notify

import (
	"context"
	"estateguru-notifier/internal/components/assert"
	"estateguru-notifier/internal/components/telemetry"
	"estateguru-notifier/internal/scrapers/estateguru"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_telegram_send = "telegram.send"
)

const DefaultTelegramApiBase = "https://api.telegram.org"

type TelegramConfig struct {
	ApiBase string        `json:"api_base"`
	Token   string        `json:"token"`
	ChatId  string        `json:"chat_id"`
	Timeout time.Duration `json:"-"`
}

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	http   *resty.Client
	token  string
	chatId string
	tel    telemetry.API
}

func NewTelegram(cfg TelegramConfig, tel telemetry.API) Telegram {
	assert.NotNil(tel)
	assert.NotEmptyStr(cfg.Token)
	assert.NotEmptyStr(cfg.ChatId)
	tel = telemetry.NewScopedAPI("notify", tel)

	if cfg.ApiBase == "" {
		cfg.ApiBase = DefaultTelegramApiBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(cfg.ApiBase, "/"))
	httpClient.SetTimeout(cfg.Timeout)
	telemetry.InstrumentResty(httpClient, tel, cfg.Token)

	return Telegram{
		http:   httpClient,
		token:  cfg.Token,
		chatId: cfg.ChatId,
		tel:    tel,
	}
}

type telegramResponse struct {
	Ok          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (t Telegram) send(ctx context.Context, text string) error {
	var result telegramResponse
	res, err := t.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    t.chatId,
			"parse_mode": "HTML",
			"text":       text,
		}).
		SetRawPathParam("token", t.token).
		SetResult(&result).
		SetError(&result).
		Post("/bot{token}/sendMessage")
	if err != nil {
		// the url inside the error carries the token
		err = TransportError{Channel: "telegram", Err: telemetry.RedactError(err, t.token)}
		t.tel.ReportBroken(report_telegram_send, err)
		return err
	}
	if res.IsError() || !result.Ok {
		err = TransportError{
			Channel: "telegram",
			Status:  res.StatusCode(),
			Reason:  result.Description,
		}
		t.tel.ReportBroken(report_telegram_send, err)
		return err
	}
	return nil
}

func (t Telegram) NotifyFound(ctx context.Context, loan estateguru.Loan) error {
	return t.send(ctx, RenderFound(loan))
}

func (t Telegram) NotifyNoneFound(ctx context.Context) error {
	return t.send(ctx, RenderNoneFound())
}

func (t Telegram) NotifyError(ctx context.Context, message string) error {
	return t.send(ctx, RenderError(message))
}

package commands

import (
	"errors"
	"estateguru-notifier/internal/components/chrono"
	"estateguru-notifier/internal/components/telemetry"
	"estateguru-notifier/internal/eligibility"
	"estateguru-notifier/internal/notify"
	"estateguru-notifier/internal/scrapers/estateguru"
	"estateguru-notifier/lib/configutil"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"dario.cat/mergo"
)

const (
	envTelegramToken  = "ESTATEGURU_TELEGRAM_TOKEN"
	envTelegramChatId = "ESTATEGURU_TELEGRAM_CHAT_ID"
	envSmtpPassword   = "ESTATEGURU_SMTP_PASSWORD"
)

type EstateguruConfig struct {
	BaseUrl     string `json:"base_url"`
	ListingPath string `json:"listing_path"`
	// DetailPath contains a single %s for the loan id, older deployments used
	// "/portal/investment/show/%s"
	DetailPath        string   `json:"detail_path"`
	MinInterestRate   int      `json:"min_interest_rate"`
	MaxLoanToValue    int      `json:"max_ltv"`
	CashType          string   `json:"cash_type"`
	Jurisdictions     []string `json:"jurisdictions"`
	TimeoutSeconds    int      `json:"timeout_seconds"`
	RequestsPerSecond float64  `json:"requests_per_second"`
	CloudflareBypass  *bool    `json:"cloudflare_bypass"`
}

type ScheduleConfig struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

type Config struct {
	Estateguru EstateguruConfig      `json:"estateguru"`
	Filter     eligibility.Config    `json:"filter"`
	Telegram   notify.TelegramConfig `json:"telegram"`
	Email      notify.SmtpConfig     `json:"email"`
	Schedule   ScheduleConfig        `json:"schedule"`
	Telemetry  telemetry.Config      `json:"telemetry"`
}

func defaultConfig() Config {
	cloudflareBypass := true
	return Config{
		Estateguru: EstateguruConfig{
			BaseUrl:           estateguru.DefaultBaseUrl,
			ListingPath:       estateguru.DefaultListingPath,
			DetailPath:        estateguru.DefaultDetailPath,
			MinInterestRate:   estateguru.DefaultListingFilter.MinInterestRate,
			MaxLoanToValue:    estateguru.DefaultListingFilter.MaxLoanToValue,
			CashType:          estateguru.DefaultListingFilter.CashType,
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
			CloudflareBypass:  &cloudflareBypass,
		},
		Filter: eligibility.DefaultConfig(),
		Telegram: notify.TelegramConfig{
			ApiBase: notify.DefaultTelegramApiBase,
		},
		Schedule: ScheduleConfig{
			Cron: "*/30 * * * *",
		},
	}
}

// LoadConfig reads the config file (searching upwards from the cwd), fills in defaults and
// applies environment overrides. A missing config file is fine as long as the environment
// provides what is required.
func LoadConfig(path string) (Config, error) {
	err := configutil.LoadEnvFiles()
	if err != nil {
		return Config{}, err
	}

	cfg, err := configutil.ReadRecursively[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Config{}
	} else if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	defaults := defaultConfig()
	// the filter is taken as a whole, so that clauses can be switched off by leaving them
	// out of a filter section that is present
	if reflect.DeepEqual(cfg.Filter, eligibility.Config{}) {
		cfg.Filter = defaults.Filter
	}
	defaults.Filter = eligibility.Config{}
	// mergo fills the value behind a set pointer, so an explicit false would become true
	if cfg.Estateguru.CloudflareBypass == nil {
		cfg.Estateguru.CloudflareBypass = defaults.Estateguru.CloudflareBypass
	}
	defaults.Estateguru.CloudflareBypass = nil
	err = mergo.Merge(&cfg, defaults)
	if err != nil {
		return Config{}, err
	}

	configutil.OverrideFromEnv(&cfg.Telegram.Token, envTelegramToken)
	configutil.OverrideFromEnv(&cfg.Telegram.ChatId, envTelegramChatId)
	configutil.OverrideFromEnv(&cfg.Email.Password, envSmtpPassword)

	cfg.Telegram.Timeout = cfg.timeout()

	return cfg, nil
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.Estateguru.TimeoutSeconds) * time.Second
}

// Validate checks the config, `notifying` requires the telegram credentials.
func (c Config) Validate(notifying bool) error {
	var errs []error
	if strings.Count(c.Estateguru.DetailPath, "%s") != 1 {
		errs = append(errs, fmt.Errorf("estateguru.detail_path %q must contain exactly one %%s", c.Estateguru.DetailPath))
	}
	if c.Estateguru.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("estateguru.timeout_seconds must be positive"))
	}
	if err := chrono.ValidateSpec(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err))
	}
	if notifying {
		if c.Telegram.Token == "" {
			errs = append(errs, fmt.Errorf("telegram.token is required (or set %s)", envTelegramToken))
		}
		if c.Telegram.ChatId == "" {
			errs = append(errs, fmt.Errorf("telegram.chat_id is required (or set %s)", envTelegramChatId))
		}
	}
	return errors.Join(errs...)
}

func (c Config) clientOptions() estateguru.ClientOptions {
	return estateguru.ClientOptions{
		BaseUrl:     c.Estateguru.BaseUrl,
		ListingPath: c.Estateguru.ListingPath,
		DetailPath:  c.Estateguru.DetailPath,
		ListingFilter: estateguru.ListingFilter{
			MinInterestRate: c.Estateguru.MinInterestRate,
			MaxLoanToValue:  c.Estateguru.MaxLoanToValue,
			CashType:        c.Estateguru.CashType,
		},
		Jurisdictions:     c.Estateguru.Jurisdictions,
		Timeout:           c.timeout(),
		RequestsPerSecond: c.Estateguru.RequestsPerSecond,
		CloudflareBypass:  c.Estateguru.CloudflareBypass != nil && *c.Estateguru.CloudflareBypass,
	}
}

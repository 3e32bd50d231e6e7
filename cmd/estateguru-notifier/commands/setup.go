package commands

import (
	"context"
	"estateguru-notifier/internal/components/telemetry"
	"estateguru-notifier/internal/eligibility"
	"estateguru-notifier/internal/notify"
	"estateguru-notifier/internal/pipeline"
	"estateguru-notifier/internal/scrapers/estateguru"
	"estateguru-notifier/lib/restyutil"
	"fmt"
)

// app is everything a command needs, built from the config.
type app struct {
	cfg      Config
	tel      telemetry.API
	otel     telemetry.Otel
	client   estateguru.Client
	rules    eligibility.RuleSet
	notifier notify.Notifier
}

func (a app) pipeline() pipeline.Pipeline {
	return pipeline.New(a.client, a.rules, a.notifier, a.tel)
}

func (a app) shutdown() {
	err := a.otel.Shutdown(context.Background())
	if err != nil {
		a.tel.ReportWarning("telemetry.shutdown", err)
	}
}

func newNotifier(cfg Config, tel telemetry.API) notify.Notifier {
	tg := notify.NewTelegram(cfg.Telegram, tel)
	if !cfg.Email.Enabled() {
		return tg
	}
	return notify.Multi{tg, notify.NewEmail(cfg.Email, tel)}
}

// setup loads the config and wires up the app, `notifying` is false for commands that never
// send messages.
func setup(ctx context.Context, notifying bool) (app, error) {
	telemetry.InitSlog(verbose)
	tel := telemetry.SlogAPI{}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return app{}, err
	}
	err = cfg.Validate(notifying)
	if err != nil {
		return app{}, fmt.Errorf("invalid config: %w", err)
	}

	otel, err := telemetry.Setup(ctx, "estateguru-notifier", cfg.Telemetry)
	if err != nil {
		return app{}, fmt.Errorf("setup telemetry: %w", err)
	}

	opts := cfg.clientOptions()
	if dumpDir != "" {
		out, err := restyutil.NewFilesystemOutput(dumpDir)
		if err != nil {
			return app{}, fmt.Errorf("dump directory: %w", err)
		}
		opts.Dump = out
	}

	client, err := estateguru.NewClient(opts, tel)
	if err != nil {
		return app{}, err
	}

	a := app{
		cfg:    cfg,
		tel:    tel,
		otel:   otel,
		client: client,
		rules:  eligibility.FromConfig(cfg.Filter),
	}
	// an empty Multi sends nothing
	a.notifier = notify.Multi{}
	if notifying {
		a.notifier = newNotifier(cfg, tel)
	}
	return a, nil
}

func runOnce(ctx context.Context, a app) error {
	result := a.pipeline().Run(ctx)

	a.tel.ReportDebug(
		"run finished",
		result.RunId,
		len(result.Ids),
		len(result.Eligible),
		result.Notified,
	)
	if result.Err != nil && result.Delivered() {
		// the failure was reported through the notifier, that is all that can be done
		a.tel.ReportWarning("run", fmt.Errorf("run %s failed, diagnostic sent: %w", result.RunId, result.Err))
	}
	if !result.Delivered() {
		return fmt.Errorf("run %s: %w", result.RunId, result.NotifyErr)
	}
	return nil
}

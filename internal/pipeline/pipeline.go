// Package pipeline runs a single scan: listing, detail pages, filter, notifications.
package pipeline

import (
	"context"
	"estateguru-notifier/internal/components/assert"
	"estateguru-notifier/internal/components/telemetry"
	"estateguru-notifier/internal/eligibility"
	"estateguru-notifier/internal/notify"
	"estateguru-notifier/internal/scrapers/estateguru"
	"fmt"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_pipeline_scan   = "pipeline.scan"
	report_pipeline_notify = "pipeline.notify"
)

var tracer = otel.Tracer("estateguru.pipeline")
var meter = otel.Meter("estateguru.pipeline")
var loansScanned, _ = meter.Int64Counter("loans_scanned")
var loansEligible, _ = meter.Int64Counter("loans_eligible")
var notificationsSent, _ = meter.Int64Counter("notifications_sent")

// Source is where loans come from, implemented by estateguru.Client.
type Source interface {
	FetchListing(ctx context.Context) ([]string, error)
	FetchLoan(ctx context.Context, id string) (estateguru.Loan, error)
}

type Pipeline struct {
	source   Source
	rules    eligibility.RuleSet
	notifier notify.Notifier
	tel      telemetry.API
}

func New(source Source, rules eligibility.RuleSet, notifier notify.Notifier, tel telemetry.API) Pipeline {
	assert.NotNil(source)
	assert.NotNil(notifier)
	assert.NotNil(tel)
	return Pipeline{
		source:   source,
		rules:    rules,
		notifier: notifier,
		tel:      telemetry.NewScopedAPI("pipeline", tel),
	}
}

// Result describes what a run did.
type Result struct {
	RunId    string
	Ids      []string
	Loans    []estateguru.Loan
	Eligible []estateguru.Loan
	// Notified is the number of messages delivered, including "none found" and diagnostics.
	Notified int

	// Err is the failure that aborted scanning, it has already been sent as a diagnostic
	// unless NotifyErr is also set.
	Err error
	// NotifyErr means a message could not be delivered.
	NotifyErr error
}

// Delivered reports whether everything the run had to say reached the notifier, this is true
// even if the run itself failed as long as the diagnostic went out.
func (r Result) Delivered() bool {
	return r.NotifyErr == nil
}

func newRunId() string {
	id, err := random.String(8)
	if err != nil {
		return "unknown"
	}
	return id
}

// Scan fetches the listing and every loan on it, in listing order. It stops at the first
// failure.
func (p Pipeline) Scan(ctx context.Context) ([]string, []estateguru.Loan, error) {
	ids, err := p.source.FetchListing(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scan listing: %w", err)
	}
	loansScanned.Add(ctx, int64(len(ids)))

	loans := make([]estateguru.Loan, 0, len(ids))
	for _, id := range ids {
		loan, err := p.fetchLoan(ctx, id)
		if err != nil {
			return ids, loans, err
		}
		loans = append(loans, loan)
	}
	return ids, loans, nil
}

func (p Pipeline) fetchLoan(ctx context.Context, id string) (estateguru.Loan, error) {
	ctx, span := tracer.Start(ctx, "FetchLoan")
	defer span.End()
	span.SetAttributes(attribute.String("loan_id", id))

	loan, err := p.source.FetchLoan(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch loan")
		return estateguru.Loan{}, fmt.Errorf("fetch loan %s: %w", id, err)
	}
	return loan, nil
}

// Run performs one full pass. A failure while scanning is turned into a single diagnostic
// message and no loan of the run is notified.
func (p Pipeline) Run(ctx context.Context) Result {
	result := Result{RunId: newRunId()}
	tel := telemetry.WithAttrs(p.tel, "run_id", result.RunId)

	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", result.RunId))

	ids, loans, err := p.Scan(ctx)
	result.Ids = ids
	result.Loans = loans
	if err != nil {
		result.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		tel.ReportBroken(report_pipeline_scan, err)

		notifyErr := p.notifier.NotifyError(ctx, err.Error())
		if notifyErr != nil {
			result.NotifyErr = notifyErr
			tel.ReportBroken(report_pipeline_notify, notifyErr)
			return result
		}
		result.Notified++
		notificationsSent.Add(ctx, 1)
		return result
	}

	for _, loan := range loans {
		rejections := p.rules.Rejections(loan)
		if len(rejections) > 0 {
			tel.ReportDebug("loan rejected", loan.Id, rejections)
		}
	}
	result.Eligible = p.rules.Filter(loans)
	loansEligible.Add(ctx, int64(len(result.Eligible)))
	tel.ReportCount("eligible", int64(len(result.Eligible)))

	if len(result.Eligible) == 0 {
		err = p.notifier.NotifyNoneFound(ctx)
		if err != nil {
			result.NotifyErr = err
			tel.ReportBroken(report_pipeline_notify, err)
			return result
		}
		result.Notified++
		notificationsSent.Add(ctx, 1)
		return result
	}

	for _, loan := range result.Eligible {
		err = p.notifier.NotifyFound(ctx, loan)
		if err != nil {
			result.NotifyErr = fmt.Errorf("notify loan %s: %w", loan.Id, err)
			tel.ReportBroken(report_pipeline_notify, result.NotifyErr)
			return result
		}
		result.Notified++
		notificationsSent.Add(ctx, 1)
	}

	return result
}

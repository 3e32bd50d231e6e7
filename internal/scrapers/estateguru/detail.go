package estateguru

import (
	"estateguru-notifier/internal/components/telemetry"
	"estateguru-notifier/pkg/htmlutil"
	"fmt"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	report_detail_location = "detail.location"
)

const (
	interestRateSelector = "#interestRateAmountBox"
	detailValueSelector  = "div ul li .text-align-right"

	durationSuffix = " months"
	// jurisdiction labels this similar to a known one are most likely a markup or spelling
	// change on the site rather than a new country
	jurisdictionDriftSimilarity = 0.9
)

// DetailParser turns a loan detail page into a Loan.
type DetailParser struct {
	jurisdictions []string
	tel           telemetry.API
}

func NewDetailParser(jurisdictions []string, tel telemetry.API) DetailParser {
	if len(jurisdictions) == 0 {
		jurisdictions = DefaultJurisdictions
	}
	return DetailParser{
		jurisdictions: jurisdictions,
		tel:           tel,
	}
}

// firstMatch returns the first candidate in document order satisfying pred.
func firstMatch(field string, candidates htmlutil.Nodes, pred htmlutil.Predicate) (string, error) {
	node, err := candidates.Narrow(pred).First()
	if err != nil {
		return "", ParseError{
			Field:  field,
			Reason: fmt.Sprintf("no candidate among %d matched", candidates.Len()),
			Err:    err,
		}
	}
	return node.Text(), nil
}

// ParseDuration parses labels of the form "<n> months".
func ParseDuration(label string) (int, error) {
	number := strings.TrimSuffix(label, durationSuffix)
	months, err := strconv.Atoi(number)
	if err != nil {
		return 0, ParseError{
			Field:  "duration",
			Reason: fmt.Sprintf("%q is not of the form \"<n>%s\"", label, durationSuffix),
			Err:    err,
		}
	}
	// Atoi takes a sign, the site never shows one
	if number[0] < '0' || number[0] > '9' || months < 1 {
		return 0, ParseError{
			Field:  "duration",
			Reason: fmt.Sprintf("%q is not a positive number of months", label),
		}
	}
	return months, nil
}

// ParseLoan extracts a Loan from the detail page of the loan `id`. Every field must be
// found, when several labels qualify for a field the first one in document order is used.
func (p DetailParser) ParseLoan(id, url string, doc htmlutil.Document) (Loan, error) {
	interest, err := doc.Select(interestRateSelector).First()
	if err != nil {
		return Loan{}, ParseError{Field: "interest_rate", Reason: "no interest rate box", Err: err}
	}

	candidates := doc.Select(detailValueSelector)

	ltv, err := firstMatch("loan_to_value", candidates, htmlutil.TextContains("%"))
	if err != nil {
		return Loan{}, err
	}

	durationLabel, err := firstMatch("duration", candidates, htmlutil.TextContains("months"))
	if err != nil {
		return Loan{}, err
	}
	months, err := ParseDuration(durationLabel)
	if err != nil {
		return Loan{}, err
	}

	rank, err := firstMatch("rank", candidates, htmlutil.TextContains("rank"))
	if err != nil {
		return Loan{}, err
	}

	location, err := firstMatch("location", candidates, htmlutil.TextIn(p.jurisdictions))
	if err != nil {
		p.reportJurisdictionDrift(id, candidates)
		return Loan{}, err
	}

	return Loan{
		Id:             id,
		Url:            url,
		InterestRate:   interest.Text(),
		LoanToValue:    ltv,
		DurationMonths: months,
		Rank:           rank,
		Location:       location,
	}, nil
}

func (p DetailParser) reportJurisdictionDrift(id string, candidates htmlutil.Nodes) {
	for _, text := range candidates.Texts() {
		for _, known := range p.jurisdictions {
			similarity := matchr.JaroWinkler(text, known, false)
			if similarity < jurisdictionDriftSimilarity {
				continue
			}
			p.tel.ReportWarning(
				report_detail_location,
				fmt.Errorf("loan %s: label %q looks like jurisdiction %q but does not match exactly", id, text, known),
				similarity,
			)
		}
	}
}

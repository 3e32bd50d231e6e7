package estateguru

import (
	"fmt"
)

// Loan is a single open loan offer as shown on its detail page.
type Loan struct {
	Id             string
	Url            string
	InterestRate   string
	LoanToValue    string
	DurationMonths int
	Rank           string
	Location       string
}

// DefaultJurisdictions are the countries Estateguru lists loans in.
var DefaultJurisdictions = []string{
	"Estonia",
	"Latvia",
	"Lithuania",
	"Finland",
	"Germany",
	"Spain",
	"Portugal",
	"Sweden",
	"United Kingdom",
	"Denmark",
	"Netherlands",
	"France",
	"Italy",
	"Belgium",
}

// ParseError means an expected element or label was missing or not in the expected shape.
type ParseError struct {
	// Field is the Loan field (or "listing") that could not be parsed
	Field  string
	Reason string
	Err    error
}

func (e ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %s", e.Field, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("parse %s: %s", e.Field, e.Reason)
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// TransportError means a page could not be fetched, Status is 0 if no response was received.
type TransportError struct {
	Url    string
	Status int
	Err    error
}

func (e TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Url, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s", e.Url, e.Err.Error())
}

func (e TransportError) Unwrap() error {
	return e.Err
}

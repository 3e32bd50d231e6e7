// Package eligibility decides which loans are worth notifying about.
package eligibility

import (
	"estateguru-notifier/internal/scrapers/estateguru"
	"fmt"
	"slices"
	"strings"
)

// Rule is a single clause of the filter, a loan must be allowed by every rule in a RuleSet.
type Rule interface {
	Name() string
	Allows(loan estateguru.Loan) bool
}

type maxDuration int

// MaxDuration rejects loans running for more than `months`.
func MaxDuration(months int) Rule {
	return maxDuration(months)
}

func (r maxDuration) Name() string {
	return fmt.Sprintf("duration <= %d months", int(r))
}

func (r maxDuration) Allows(loan estateguru.Loan) bool {
	return loan.DurationMonths <= int(r)
}

type requireRank string

// RequireRank rejects loans whose security rank is not exactly `rank`.
func RequireRank(rank string) Rule {
	return requireRank(rank)
}

func (r requireRank) Name() string {
	return fmt.Sprintf("rank is %q", string(r))
}

func (r requireRank) Allows(loan estateguru.Loan) bool {
	return loan.Rank == string(r)
}

type excludeLocations []string

// ExcludeLocations rejects loans located in any of `locations`.
func ExcludeLocations(locations ...string) Rule {
	return excludeLocations(slices.Clone(locations))
}

func (r excludeLocations) Name() string {
	return fmt.Sprintf("location not in [%s]", strings.Join(r, ", "))
}

func (r excludeLocations) Allows(loan estateguru.Loan) bool {
	return !slices.Contains(r, loan.Location)
}

// RuleSet is the conjunction of its rules, an empty RuleSet allows everything.
type RuleSet []Rule

const (
	DefaultMaxDurationMonths = 12
	DefaultRequiredRank      = "First rank"
)

var DefaultExcludedLocations = []string{"Germany", "Finland", "Lithuania"}

func Default() RuleSet {
	return RuleSet{
		MaxDuration(DefaultMaxDurationMonths),
		RequireRank(DefaultRequiredRank),
		ExcludeLocations(DefaultExcludedLocations...),
	}
}

type Config struct {
	MaxDurationMonths int      `json:"max_duration_months"`
	RequiredRank      string   `json:"required_rank"`
	ExcludedLocations []string `json:"excluded_locations"`
}

// DefaultConfig is the configuration equivalent of Default().
func DefaultConfig() Config {
	return Config{
		MaxDurationMonths: DefaultMaxDurationMonths,
		RequiredRank:      DefaultRequiredRank,
		ExcludedLocations: slices.Clone(DefaultExcludedLocations),
	}
}

// FromConfig builds a RuleSet, zero values disable the corresponding rule.
func FromConfig(cfg Config) RuleSet {
	rules := RuleSet{}
	if cfg.MaxDurationMonths > 0 {
		rules = append(rules, MaxDuration(cfg.MaxDurationMonths))
	}
	if cfg.RequiredRank != "" {
		rules = append(rules, RequireRank(cfg.RequiredRank))
	}
	if len(cfg.ExcludedLocations) > 0 {
		rules = append(rules, ExcludeLocations(cfg.ExcludedLocations...))
	}
	return rules
}

func (s RuleSet) Eligible(loan estateguru.Loan) bool {
	for _, rule := range s {
		if !rule.Allows(loan) {
			return false
		}
	}
	return true
}

// Rejections returns the names of the rules that reject the loan.
func (s RuleSet) Rejections(loan estateguru.Loan) []string {
	var out []string
	for _, rule := range s {
		if !rule.Allows(loan) {
			out = append(out, rule.Name())
		}
	}
	return out
}

// Filter returns the eligible loans in their original order.
func (s RuleSet) Filter(loans []estateguru.Loan) []estateguru.Loan {
	out := []estateguru.Loan{}
	for _, loan := range loans {
		if s.Eligible(loan) {
			out = append(out, loan)
		}
	}
	return out
}

func (s RuleSet) Names() []string {
	out := make([]string, len(s))
	for i, rule := range s {
		out[i] = rule.Name()
	}
	return out
}

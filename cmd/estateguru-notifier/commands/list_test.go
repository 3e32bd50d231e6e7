package commands

import (
	"bytes"
	"strings"
	"testing"

	"estateguru-notifier/internal/eligibility"
	"estateguru-notifier/internal/scrapers/estateguru"

	"github.com/stretchr/testify/require"
)

func TestRenderLoans(t *testing.T) {
	loans := []estateguru.Loan{
		{Id: "101", InterestRate: "12.5%", LoanToValue: "65%", DurationMonths: 6, Rank: "First rank", Location: "Spain"},
		{Id: "102", InterestRate: "11%", LoanToValue: "50%", DurationMonths: 18, Rank: "First rank", Location: "Germany"},
	}

	var out bytes.Buffer
	renderLoans(&out, loans, eligibility.Default())
	rendered := out.String()

	lines := strings.Split(rendered, "\n")
	var row101, row102 string
	for _, line := range lines {
		if strings.Contains(line, "101") {
			row101 = line
		}
		if strings.Contains(line, "102") {
			row102 = line
		}
	}

	require.Contains(t, row101, "yes")
	require.Contains(t, row102, "no: duration <= 12 months; location not in [Germany, Finland, Lithuania]")
	require.Contains(t, strings.ToUpper(rendered), "TOTAL")
}

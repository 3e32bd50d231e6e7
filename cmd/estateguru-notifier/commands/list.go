package commands

import (
	"estateguru-notifier/internal/eligibility"
	"estateguru-notifier/internal/scrapers/estateguru"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func renderLoans(out io.Writer, loans []estateguru.Loan, rules eligibility.RuleSet) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Id", "Interest", "LTV", "Months", "Rank", "Location", "Eligible"})
	for _, loan := range loans {
		eligible := "yes"
		if rejections := rules.Rejections(loan); len(rejections) > 0 {
			eligible = "no: " + strings.Join(rejections, "; ")
		}
		t.AppendRow(table.Row{
			loan.Id,
			loan.InterestRate,
			loan.LoanToValue,
			strconv.Itoa(loan.DurationMonths),
			loan.Rank,
			loan.Location,
			eligible,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", strconv.Itoa(len(loans))})
	t.Render()
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Scans the listing and prints every loan with its eligibility, nothing is sent.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.shutdown()

		_, loans, err := a.pipeline().Scan(cmd.Context())
		if err != nil {
			return err
		}
		renderLoans(cmd.OutOrStdout(), loans, a.rules)
		return nil
	},
}

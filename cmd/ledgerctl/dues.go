package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/core"
)

var markPaidCmd = &cobra.Command{
	Use:   "mark-paid <incomeID>",
	Short: "Settle the outstanding due of an income",
	Example: `  # Settle today
  ledgerctl mark-paid 3f0c9a52-6a43-4d0e-9d0b-4b7c3c1e2a10

  # Settle with an explicit payment date
  ledgerctl mark-paid 3f0c9a52-6a43-4d0e-9d0b-4b7c3c1e2a10 --date 2025-02-15`,
	Args: cobra.ExactArgs(1),
	RunE: runMarkPaid,
}

func init() {
	rootCmd.AddCommand(markPaidCmd)

	markPaidCmd.Flags().String("date", "", "payment date (YYYY-MM-DD, default: today)")
}

func runMarkPaid(cmd *cobra.Command, args []string) error {
	dateFlag, _ := cmd.Flags().GetString("date")

	var paidDate *core.Date
	if dateFlag != "" {
		d, err := core.ParseDate(dateFlag)
		if err != nil {
			return fmt.Errorf("invalid --date %q: use YYYY-MM-DD", dateFlag)
		}
		paidDate = &d
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	settled, err := svc.Incomes.MarkDueAsPaid(cmd.Context(), args[0], paidDate)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), settled)
}

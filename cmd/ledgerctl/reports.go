package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledger/internal/analytics"
	"ledger/internal/core"
)

var nextNumberCmd = &cobra.Command{
	Use:   "next-number <businessUnit>",
	Short: "Print the next invoice number of a business unit (SD, DM or IT)",
	Args:  cobra.ExactArgs(1),
	RunE:  runNextNumber,
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print the revenue analytics report as JSON",
	Example: `  # Analytics as of today
  ledgerctl analytics

  # Analytics at the end of a quarter
  ledgerctl analytics --as-of 2025-03-31`,
	Args: cobra.NoArgs,
	RunE: runAnalytics,
}

var duesCmd = &cobra.Command{
	Use:   "dues",
	Short: "List outstanding income dues",
	Args:  cobra.NoArgs,
	RunE:  runDues,
}

func init() {
	rootCmd.AddCommand(nextNumberCmd, analyticsCmd, duesCmd)

	analyticsCmd.Flags().String("as-of", "", "reference date (YYYY-MM-DD, default: today)")
	duesCmd.Flags().String("as-of", "", "reference date for overdue status (YYYY-MM-DD, default: today)")
	duesCmd.Flags().String("category", "", "only dues of this income category")
	duesCmd.Flags().String("source", "", "only dues whose source contains this text")
}

func runNextNumber(cmd *cobra.Command, args []string) error {
	unit, err := core.ParseBusinessUnit(args[0])
	if err != nil {
		return err
	}
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	number, err := svc.Invoices.NextNumber(cmd.Context(), unit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), number)
	return nil
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	asOf, err := parseAsOf(asOfFlag)
	if err != nil {
		return err
	}
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Financial.Analytics(cmd.Context(), asOf)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), report)
}

func runDues(cmd *cobra.Command, args []string) error {
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	categoryFlag, _ := cmd.Flags().GetString("category")
	source, _ := cmd.Flags().GetString("source")

	asOf, err := parseAsOf(asOfFlag)
	if err != nil {
		return err
	}
	filter := core.DuesFilter{Source: source}
	if categoryFlag != "" {
		c, err := core.ParseIncomeCategory(categoryFlag)
		if err != nil {
			return err
		}
		filter.Category = &c
	}

	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	dues, err := svc.Incomes.OutstandingDues(cmd.Context(), filter, asOf)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tCATEGORY\tDUE\tDUE DATE\tOVERDUE")
	for _, d := range dues {
		overdue := "-"
		if d.IsOverdue {
			overdue = fmt.Sprintf("%d days", d.DaysOverdue)
		}
		dueDate := "-"
		if d.DueDate != nil {
			dueDate = d.DueDate.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			d.ID, d.Source, d.Category, d.Due(), dueDate, overdue)
	}
	fmt.Fprintf(tw, "\t\tTOTAL\t%.2f\t\t\n", analytics.TotalDue(dues))
	return tw.Flush()
}

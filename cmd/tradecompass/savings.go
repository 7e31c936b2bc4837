package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradecompass/internal/engine"
)

func savingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "savings [code]",
		Short: "Estimate annual duty savings from qualifying",
		Args:  cobra.ExactArgs(1),
		RunE:  runSavings,
	}

	cmd.Flags().String("destination", "US", "destination country code")
	cmd.Flags().String("volume", "", `annual trade volume, e.g. "$5M - $25M" or "250K"`)
	cmd.Flags().Bool("qualified", false, "whether the product holds a qualification")

	return cmd
}

func runSavings(cmd *cobra.Command, args []string) error {
	destination, _ := cmd.Flags().GetString("destination")
	volume, _ := cmd.Flags().GetString("volume")
	qualified, _ := cmd.Flags().GetBool("qualified")

	eng, store, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resp := eng.CalculateSavings(cmd.Context(), engine.SavingsRequest{
		Code:               args[0],
		DestinationCountry: destination,
		TradeVolume:        volume,
		Qualified:          qualified,
	})
	if jsonOutput() {
		return printJSON(resp)
	}
	if !resp.Success {
		fmt.Printf("Savings calculation failed: %s\n", resp.Error)
		return nil
	}

	fmt.Printf("Savings estimate for %s to %s (audit %s):\n", args[0], destination, resp.AuditID)
	fmt.Printf("  annual volume:     $%.0f\n", resp.AnnualVolume)
	fmt.Printf("  standard duty:     $%.2f (%.2f%%)\n", resp.StandardDuty, resp.Rate.StandardRate*100)
	fmt.Printf("  preferential duty: $%.2f (%.2f%%)\n", resp.PreferentialDuty, resp.Rate.PreferentialRate*100)
	fmt.Printf("  annual savings:    $%.2f\n", resp.AnnualSavings)
	fmt.Printf("  monthly savings:   $%.2f\n", resp.MonthlySavings)
	fmt.Printf("  savings rate:      %.2f%%\n", resp.SavingsRate*100)
	fmt.Printf("  rate source:       %s\n", resp.Rate.Source)
	if !resp.Qualified {
		fmt.Println("  note: product not qualified; savings require a passing evaluation")
	}
	if resp.Rate.Disclaimer != "" {
		fmt.Printf("  disclaimer:        %s\n", resp.Rate.Disclaimer)
	}
	if resp.Warning != "" {
		fmt.Printf("  warning:           %s\n", resp.Warning)
	}
	return nil
}

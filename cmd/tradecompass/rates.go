package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates [code]",
		Short: "Look up duty rates for a classification code",
		Args:  cobra.ExactArgs(1),
		RunE:  runRates,
	}

	cmd.Flags().String("destination", "US", "destination country code")

	return cmd
}

func runRates(cmd *cobra.Command, args []string) error {
	destination, _ := cmd.Flags().GetString("destination")

	eng, store, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resp := eng.ResolveRates(cmd.Context(), args[0], destination)
	if jsonOutput() {
		return printJSON(resp)
	}
	if !resp.Success {
		fmt.Printf("Rate resolution failed: %s\n", resp.Error)
		return nil
	}

	rate := resp.Rate
	fmt.Printf("Rates for %s to %s (audit %s):\n", args[0], destination, resp.AuditID)
	fmt.Printf("  standard:     %.2f%%\n", rate.StandardRate*100)
	fmt.Printf("  preferential: %.2f%%\n", rate.PreferentialRate*100)
	fmt.Printf("  source:       %s\n", rate.Source)
	if rate.MatchedCode != "" && rate.MatchedCode != rate.Code {
		fmt.Printf("  matched code: %s\n", rate.MatchedCode)
	}
	if rate.Disclaimer != "" {
		fmt.Printf("  disclaimer:   %s\n", rate.Disclaimer)
	}
	if rate.FallbackReason != "" {
		fmt.Printf("  fallback:     %s\n", rate.FallbackReason)
	}
	return nil
}

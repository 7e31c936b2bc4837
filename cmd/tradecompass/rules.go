package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule [code]",
		Short: "Resolve the qualification rule for a classification code",
		Args:  cobra.ExactArgs(1),
		RunE:  runRule,
	}

	cmd.Flags().String("business-type", "", "business category context")

	return cmd
}

func runRule(cmd *cobra.Command, args []string) error {
	businessType, _ := cmd.Flags().GetString("business-type")

	eng, store, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resp := eng.ResolveRule(cmd.Context(), args[0], businessType)
	if jsonOutput() {
		return printJSON(resp)
	}
	if !resp.Success {
		fmt.Printf("Rule resolution failed: %s\n", resp.Error)
		return nil
	}

	rule := resp.Rule
	fmt.Printf("Rule for %s (audit %s):\n", args[0], resp.AuditID)
	fmt.Printf("  scope:      %s\n", rule.Scope)
	fmt.Printf("  type:       %s\n", rule.RuleType)
	fmt.Printf("  threshold:  %.1f%%\n", rule.Threshold)
	fmt.Printf("  source:     %s\n", rule.Source)
	if len(rule.DocumentationRequired) > 0 {
		fmt.Println("  documentation:")
		for _, doc := range rule.DocumentationRequired {
			fmt.Printf("    - %s\n", doc)
		}
	}
	return nil
}

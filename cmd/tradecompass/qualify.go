package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tradecompass/internal/engine"
	"tradecompass/internal/model"
)

func qualifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qualify [code]",
		Short: "Evaluate regional value content for a product",
		Long: `Evaluate whether a product qualifies for preferential treatment.
Components are given as repeated --component flags in the form
"description:origin:value", e.g. --component "Copper core:MX:70".`,
		Args: cobra.ExactArgs(1),
		RunE: runQualify,
	}

	cmd.Flags().StringArray("component", nil, "component as description:origin:value (repeatable)")
	cmd.Flags().String("business-type", "", "business category context")
	cmd.Flags().String("manufacturing-location", "", "country where final assembly happens")

	return cmd
}

func parseComponents(specs []string) ([]model.Component, error) {
	components := make([]model.Component, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid component %q: want description:origin:value", spec)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid component value in %q: %w", spec, err)
		}
		components = append(components, model.Component{
			Description:     strings.TrimSpace(parts[0]),
			OriginCountry:   strings.TrimSpace(parts[1]),
			ValuePercentage: value,
		})
	}
	return components, nil
}

func runQualify(cmd *cobra.Command, args []string) error {
	specs, _ := cmd.Flags().GetStringArray("component")
	businessType, _ := cmd.Flags().GetString("business-type")
	location, _ := cmd.Flags().GetString("manufacturing-location")

	components, err := parseComponents(specs)
	if err != nil {
		return err
	}

	eng, store, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resp := eng.Evaluate(cmd.Context(), engine.EvaluateRequest{
		Code:                  args[0],
		BusinessType:          businessType,
		ManufacturingLocation: location,
		Components:            components,
	})

	if jsonOutput() {
		return printJSON(resp)
	}

	if !resp.Success {
		fmt.Printf("Evaluation failed: %s\n", resp.Error)
		if resp.Suggestion != "" {
			fmt.Printf("Suggestion: %s\n", resp.Suggestion)
		}
		return nil
	}

	result := resp.Result
	fmt.Printf("Qualification for %s (audit %s):\n", args[0], resp.AuditID)
	fmt.Printf("  verdict:          %s\n", result.Level)
	fmt.Printf("  regional content: %.1f%% (threshold %.1f%%, rule source %s)\n",
		result.RegionalContent, result.Threshold, result.RuleSource)
	fmt.Printf("  reason:           %s\n", result.Reason)
	fmt.Println("  components:")
	for _, comp := range result.Components {
		marker := " "
		if comp.RegionalMember {
			marker = "*"
		}
		fmt.Printf("    %s %-30s %-4s %.1f%%\n", marker, comp.Description, comp.OriginCountry, comp.ValuePercentage)
	}
	fmt.Println("  documentation:")
	for _, doc := range result.DocumentationRequired {
		fmt.Printf("    - %s\n", doc)
	}
	return nil
}

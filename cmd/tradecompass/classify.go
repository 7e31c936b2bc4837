package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tradecompass/internal/engine"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [description]",
		Short: "Rank candidate classification codes for a product description",
		Long: `Run the classification pipeline against the product catalog and print
the ranked candidates with match provenance and confidence.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().String("business-type", "", "business category context (e.g. Electronics, Textiles)")
	cmd.Flags().String("chapter", "", "restrict to a known tariff chapter")
	cmd.Flags().Int("limit", 0, "maximum candidates to return (default 10, cap 20)")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	businessType, _ := cmd.Flags().GetString("business-type")
	chapter, _ := cmd.Flags().GetString("chapter")
	limit, _ := cmd.Flags().GetInt("limit")

	eng, store, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	resp := eng.Classify(cmd.Context(), engine.ClassifyRequest{
		Description:  strings.Join(args, " "),
		BusinessType: businessType,
		KnownChapter: chapter,
		Limit:        limit,
	})

	if jsonOutput() {
		return printJSON(resp)
	}

	if !resp.Success {
		fmt.Printf("Classification failed: %s\n", resp.Error)
		if resp.Suggestion != "" {
			fmt.Printf("Suggestion: %s\n", resp.Suggestion)
		}
		if resp.FallbackRecommended {
			fmt.Println("Consider consulting a customs broker for a manual classification.")
		}
		return nil
	}

	if len(resp.Candidates) == 0 {
		fmt.Println("No candidates found.")
		if resp.Suggestion != "" {
			fmt.Printf("Suggestion: %s\n", resp.Suggestion)
		}
		return nil
	}

	fmt.Printf("Candidates (audit %s):\n\n", resp.AuditID)
	for i, cand := range resp.Candidates {
		fmt.Printf("%2d. %-10s  confidence %3d  %-16s  %s\n",
			i+1, cand.Code, cand.Confidence, cand.MatchType, cand.Description)
		if cand.RelatedTo != "" {
			fmt.Printf("    related to %s\n", cand.RelatedTo)
		}
	}
	return nil
}

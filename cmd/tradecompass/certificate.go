package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradecompass/internal/engine"
	"tradecompass/internal/model"
)

func certificateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certificate [code]",
		Short: "Assemble certificate data for a qualified product",
		Long: `Run a qualification evaluation and, if it passes, print the data needed
to fill a preferential-origin certificate. Components use the same
--component form as the qualify command.`,
		Args: cobra.ExactArgs(1),
		RunE: runCertificate,
	}

	cmd.Flags().StringArray("component", nil, "component as description:origin:value (repeatable)")
	cmd.Flags().String("business-type", "", "business category context")
	cmd.Flags().String("description", "", "product description for the certificate")
	cmd.Flags().String("origin", "", "country of origin")
	cmd.Flags().String("exporter", "", "exporter legal name")
	cmd.Flags().String("exporter-address", "", "exporter address")
	cmd.Flags().String("exporter-tax-id", "", "exporter tax identifier")
	cmd.Flags().String("importer", "", "importer legal name")
	cmd.Flags().String("importer-address", "", "importer address")

	return cmd
}

func runCertificate(cmd *cobra.Command, args []string) error {
	specs, _ := cmd.Flags().GetStringArray("component")
	businessType, _ := cmd.Flags().GetString("business-type")
	description, _ := cmd.Flags().GetString("description")
	origin, _ := cmd.Flags().GetString("origin")
	exporter, _ := cmd.Flags().GetString("exporter")
	exporterAddress, _ := cmd.Flags().GetString("exporter-address")
	exporterTaxID, _ := cmd.Flags().GetString("exporter-tax-id")
	importer, _ := cmd.Flags().GetString("importer")
	importerAddress, _ := cmd.Flags().GetString("importer-address")

	components, err := parseComponents(specs)
	if err != nil {
		return err
	}

	eng, store, err := initEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	evalResp := eng.Evaluate(cmd.Context(), engine.EvaluateRequest{
		Code:         args[0],
		BusinessType: businessType,
		Components:   components,
	})
	if !evalResp.Success {
		fmt.Printf("Evaluation failed: %s\n", evalResp.Error)
		if evalResp.Suggestion != "" {
			fmt.Printf("Suggestion: %s\n", evalResp.Suggestion)
		}
		return nil
	}

	resp := eng.CertificateData(cmd.Context(), engine.CertificateRequest{
		ExporterName:    exporter,
		ExporterAddress: exporterAddress,
		ExporterTaxID:   exporterTaxID,
		ImporterName:    importer,
		ImporterAddress: importerAddress,
		Description:     description,
		Code:            args[0],
		CountryOfOrigin: origin,
		Qualification:   evalResp.Result,
	})
	if jsonOutput() {
		return printJSON(resp)
	}
	if !resp.Success {
		fmt.Printf("Certificate rejected: %s\n", resp.Error)
		if resp.Suggestion != "" {
			fmt.Printf("Suggestion: %s\n", resp.Suggestion)
		}
		return nil
	}

	printCertificate(resp.Certificate)
	return nil
}

func printCertificate(cert model.Certificate) {
	fmt.Println("Certificate of origin data:")
	fmt.Printf("  exporter:             %s\n", cert.ExporterName)
	fmt.Printf("  importer:             %s\n", cert.ImporterName)
	fmt.Printf("  product:              %s\n", cert.ProductDescription)
	fmt.Printf("  classification:       %s\n", cert.Classification)
	fmt.Printf("  preference criterion: %s\n", cert.PreferenceCriterion)
	fmt.Printf("  country of origin:    %s\n", cert.CountryOfOrigin)
	fmt.Printf("  regional content:     %s\n", cert.RegionalValueContent)
	fmt.Printf("  blanket period:       %s to %s\n",
		cert.BlanketStart.Format("2006-01-02"), cert.BlanketEnd.Format("2006-01-02"))
	if len(cert.SupportingDocuments) > 0 {
		fmt.Println("  supporting documents:")
		for _, doc := range cert.SupportingDocuments {
			fmt.Printf("    - %s\n", doc)
		}
	}
	if len(cert.Instructions) > 0 {
		fmt.Println("  instructions:")
		for _, inst := range cert.Instructions {
			fmt.Printf("    - %s\n", inst)
		}
	}
}

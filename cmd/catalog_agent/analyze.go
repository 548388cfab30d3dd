package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/types"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis pipeline for one product and wait for it",
	Long: `Runs the nine-stage analysis pipeline synchronously and prints the job summary.

Either analyze an existing catalog product with --product-id, or describe a new one with
--name and --url. Command-line arguments override config file values.`,
	RunE: runAnalyze,
}

var (
	analyzeProductID   string
	analyzeName        string
	analyzeURL         string
	analyzeDescription string
	analyzePersona     string
	analyzeOutput      string
	analyzeTimeout     time.Duration
	analyzeVerbose     bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeProductID, "product-id", "", "Analyze an existing catalog product")
	analyzeCmd.Flags().StringVarP(&analyzeName, "name", "n", "", "Product name (creates a new product)")
	analyzeCmd.Flags().StringVarP(&analyzeURL, "url", "u", "", "Affiliate URL of the new product")
	analyzeCmd.Flags().StringVarP(&analyzeDescription, "description", "d", "", "Description of the new product")
	analyzeCmd.Flags().StringVar(&analyzePersona, "persona", "", "Brand persona (overrides config)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "out", "o", "", "Write the finished job as JSON to this file")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "Give up waiting after this long")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print a box for every stage")

	analyzeCmd.MarkFlagsMutuallyExclusive("product-id", "name")
	analyzeCmd.MarkFlagsRequiredTogether("name", "url")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeProductID == "" && analyzeName == "" {
		return errors.New("either --product-id or --name and --url are required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if analyzePersona != "" {
		cfg.BrandPersona = analyzePersona
	}
	if analyzeVerbose {
		cfg.Verbose = true
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, appOptions{Progress: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = a.shutdown(shutdownCtx)
	}()

	productID := analyzeProductID
	if productID == "" {
		product, err := a.catalog.Create(ctx, &types.CreateProductRequest{
			Name:         analyzeName,
			AffiliateURL: analyzeURL,
			Description:  analyzeDescription,
		})
		if err != nil {
			return fmt.Errorf("invalid product: %w", err)
		}
		productID = product.ID
	}

	jobID, err := a.catalog.TriggerAnalysis(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to start analysis: %w", err)
	}

	waitErr := a.orch.Wait(ctx, jobID)
	if errors.Is(waitErr, context.DeadlineExceeded) {
		a.orch.Cancel(jobID)
		return fmt.Errorf("analysis %s did not finish within %s", jobID, analyzeTimeout)
	}

	report := a.orch.Status(context.WithoutCancel(ctx), jobID)
	observability.NewPrinter(cmd.OutOrStdout()).PrintJobSummary(report.Result)

	if analyzeOutput != "" {
		if err := writeJSON(analyzeOutput, report.Result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote job to %s\n", analyzeOutput)
	}

	return waitErr
}

// writeJSON writes v as indented JSON, creating the parent directory.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

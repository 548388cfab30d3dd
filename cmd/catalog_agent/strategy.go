package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/catalog-agent/internal/observability"
	"github.com/jonathan/catalog-agent/internal/products"
	"github.com/jonathan/catalog-agent/internal/types"
	"github.com/spf13/cobra"
)

var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "Suggest affiliate products for a niche",
	RunE:  runOpportunities,
}

var freshnessCmd = &cobra.Command{
	Use:   "freshness",
	Short: "Check whether a catalog product has been superseded",
	Long:  "Asks the market sentinel agent whether a newer model of a catalog product exists. The product is looked up in the configured catalog; use --seed to check a demo product without a database.",
	RunE:  runFreshness,
}

var (
	opportunitiesNiche string
	freshnessProduct   string
	freshnessSeed      bool
	strategyTimeout    time.Duration
)

func init() {
	opportunitiesCmd.Flags().StringVar(&opportunitiesNiche, "niche", "", "Market niche to explore (required)")
	if err := opportunitiesCmd.MarkFlagRequired("niche"); err != nil {
		panic(fmt.Sprintf("failed to mark niche flag as required: %v", err))
	}

	freshnessCmd.Flags().StringVarP(&freshnessProduct, "product", "p", "", "ID or exact name of the catalog product to check (required)")
	freshnessCmd.Flags().BoolVar(&freshnessSeed, "seed", false, "Load the demo catalog when it is empty")
	if err := freshnessCmd.MarkFlagRequired("product"); err != nil {
		panic(fmt.Sprintf("failed to mark product flag as required: %v", err))
	}

	for _, c := range []*cobra.Command{opportunitiesCmd, freshnessCmd} {
		c.Flags().DurationVar(&strategyTimeout, "timeout", 2*time.Minute, "Give up after this long")
		rootCmd.AddCommand(c)
	}
}

func runOpportunities(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), strategyTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.shutdown(context.WithoutCancel(ctx)) }()

	result, err := a.orch.FindOpportunities(ctx, opportunitiesNiche)
	if err != nil {
		return fmt.Errorf("failed to find opportunities: %w", err)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintOpportunities(result)
	return nil
}

func runFreshness(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), strategyTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, appOptions{Seed: freshnessSeed})
	if err != nil {
		return err
	}
	defer func() { _ = a.shutdown(context.WithoutCancel(ctx)) }()

	product, err := findProduct(ctx, a.catalog, freshnessProduct)
	if err != nil {
		return err
	}
	result, err := a.orch.CheckFreshness(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("failed to check freshness: %w", err)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintFreshness(product.Name, result)
	return nil
}

// findProduct looks a product up by id, then by exact name.
func findProduct(ctx context.Context, catalog *products.Service, ref string) (*types.Product, error) {
	product, err := catalog.Get(ctx, ref)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, products.ErrNotFound) {
		return nil, fmt.Errorf("failed to load product %s: %w", ref, err)
	}

	all, err := catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	for _, p := range all {
		if p.Name == ref {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", products.ErrNotFound, ref)
}

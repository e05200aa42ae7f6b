package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gustavop-dev/rainy-project/internal/catalog"
	"github.com/gustavop-dev/rainy-project/internal/format"
)

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect the product catalog",
	}
	cmd.AddCommand(newProductsListCmd(a), newProductsShowCmd(a), newProductsRefreshCmd(a))
	return cmd
}

func newProductsListCmd(a *app) *cobra.Command {
	var (
		active   bool
		sorted   bool
		search   string
		minPrice float64
		maxPrice float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadCatalog(cmd.Context()); err != nil {
				return err
			}

			products := a.store.SearchProducts(search)
			if active {
				products = catalog.KeepIDs(products, a.store.ActiveProducts())
			}
			if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
				lo, hi := math.Inf(-1), math.Inf(1)
				if cmd.Flags().Changed("min") {
					lo = minPrice
				}
				if cmd.Flags().Changed("max") {
					hi = maxPrice
				}
				products = catalog.KeepIDs(products, a.store.ProductsByPriceRange(lo, hi))
			}
			if sorted {
				products = catalog.KeepIDs(a.store.ProductsSortedByOrder(), products)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tTITLE\tPRICE\tORDER\tACTIVE")
			for _, p := range products {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%t\n", p.ID, p.Slug, p.Title, a.price(p), p.Order, p.IsActive)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "Only active products")
	cmd.Flags().BoolVar(&sorted, "sorted", false, "Sort by display order")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive text search")
	cmd.Flags().Float64Var(&minPrice, "min", 0, "Minimum price (inclusive)")
	cmd.Flags().Float64Var(&maxPrice, "max", 0, "Maximum price (inclusive)")
	return cmd
}

func newProductsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|slug>",
		Short: "Show one product with its specifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadCatalog(cmd.Context()); err != nil {
				return err
			}

			p, ok := a.store.ProductBySlug(args[0])
			if !ok {
				p, ok = a.store.ProductByRawID(args[0])
			}
			if !ok {
				return fmt.Errorf("rainyctl: product %q not found", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (#%d, %s)\n", p.Title, p.ID, p.Slug)
			fmt.Fprintf(out, "Price: %s\n", a.price(p))
			if p.InitialText != "" {
				fmt.Fprintf(out, "%s\n", p.InitialText)
			}
			if specs := a.store.ProductSpecifications(p.ID); len(specs) > 0 {
				fmt.Fprintln(out, "Specifications:")
				for _, spec := range specs {
					fmt.Fprintf(out, "  %s: %s\n", spec.Label, spec.Value)
				}
			}
			if image, ok := a.store.ProductDimensionsImage(p.ID); ok {
				fmt.Fprintf(out, "Dimensions image: %s\n", image)
			}
			return nil
		},
	}
}

func newProductsRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Discard the cached catalog and fetch it again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.store.RefreshProducts(cmd.Context()) {
				return fmt.Errorf("rainyctl: %s", a.store.Err())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d products, %d active comparison images\n",
				len(a.store.AllProducts()), len(a.store.ActiveComparisonImages()))
			return nil
		},
	}
}

func newComparisonImagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comparison-images",
		Short: "List active comparison images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadCatalog(cmd.Context()); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tIMAGE")
			for _, img := range a.store.ActiveComparisonImages() {
				ref := img.ImageURL
				if ref == "" {
					ref = img.Image
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", img.ID, img.Name, ref)
			}
			return tw.Flush()
		},
	}
}

func (a *app) price(p catalog.Product) string {
	if amount, ok := p.Price.Float(); ok {
		return format.Price(amount, a.cfg.Storefront.Currency)
	}
	return p.Price.String()
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/example/ec-storefront/internal/storefront"
	"github.com/spf13/cobra"
)

func newProductsCmd(c *cli) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				products []storefront.Product
				err      error
			)
			if category != "" {
				products, err = c.catalog.ProductsByCategory(cmd.Context(), category)
			} else {
				products, err = c.catalog.ListProducts(cmd.Context())
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE")
			for _, p := range products {
				fmt.Fprintf(w, "%s\t%s\t%.2f\n", p.UUID, p.Name, p.Price)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "only products in this category id")

	rename := &cobra.Command{
		Use:   "rename <product-id> <name>",
		Short: "Rename a product (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.catalog.UpdateProduct(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", p.UUID, p.Name)
			return nil
		},
	}
	cmd.AddCommand(rename)
	return cmd
}

func newCategoriesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			categories, err := c.catalog.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, cat := range categories {
				fmt.Fprintf(w, "%s\t%s\n", cat.UUID, cat.Name)
			}
			return w.Flush()
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.catalog.CreateCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q\n", cat.UUID, cat.Name)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:     "delete <category-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a category (admin)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.catalog.DeleteCategory(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, remove)
	return cmd
}

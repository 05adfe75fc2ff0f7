package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/example/ec-storefront/internal/storefront"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in, run `storefront login` first")

func newCartCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.loadCart(cmd.Context()); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), c.cart.Cart())
		},
	}

	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add one unit of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := c.cart.AddToCart(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !added {
				return errNotSignedIn
			}
			return printCart(cmd.OutOrStdout(), c.cart.Cart())
		},
	}

	remove := &cobra.Command{
		Use:     "remove <product-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a product from the cart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.session.Authenticated() {
				return errNotSignedIn
			}
			if err := c.cart.RemoveFromCart(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), c.cart.Cart())
		},
	}

	inc := &cobra.Command{
		Use:   "inc <product-id>",
		Short: "Raise a line's quantity by one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.adjust(cmd, args[0], c.cart.IncrementQuantity)
		},
	}

	dec := &cobra.Command{
		Use:   "dec <product-id>",
		Short: "Lower a line's quantity by one, never below one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.adjust(cmd, args[0], c.cart.DecrementQuantity)
		},
	}

	cmd.AddCommand(add, remove, inc, dec)
	return cmd
}

func (c *cli) loadCart(ctx context.Context) error {
	if !c.session.Authenticated() {
		return errNotSignedIn
	}
	return c.cart.Load(ctx)
}

// adjust loads the cart first: quantity changes are computed from the cached
// line.
func (c *cli) adjust(cmd *cobra.Command, productID string, op func(context.Context, string) error) error {
	if err := c.loadCart(cmd.Context()); err != nil {
		return err
	}
	if _, ok := c.cart.Cart().Find(productID); !ok {
		return fmt.Errorf("product %s is not in the cart", productID)
	}
	if err := op(cmd.Context(), productID); err != nil {
		return err
	}
	return printCart(cmd.OutOrStdout(), c.cart.Cart())
}

func printCart(out io.Writer, cart *storefront.Cart) error {
	if cart == nil || len(cart.Items) == 0 {
		fmt.Fprintln(out, "Your cart is empty")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tQTY\tSUBTOTAL")
	for _, item := range cart.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", item.ProductID(), item.Product.Name, item.Quantity, item.Subtotal)
	}
	fmt.Fprintf(w, "\t\t%d\t%.2f\n", cart.ItemCount(), cart.Total)
	return w.Flush()
}

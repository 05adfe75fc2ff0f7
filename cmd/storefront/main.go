package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/ec-storefront/internal/cartstate"
	"github.com/example/ec-storefront/internal/client"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/session"
	"github.com/example/ec-storefront/internal/storefront"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	c := &cli{}
	if err := execute(context.Background(), c, newRootCmd(c)); err != nil {
		os.Exit(1)
	}
}

// execute runs root and releases what setup opened, whether or not the
// command failed.
func execute(ctx context.Context, c *cli, root *cobra.Command) error {
	defer c.teardown()
	return root.ExecuteContext(ctx)
}

// cli holds the flags and the SDK wired from them for one invocation.
type cli struct {
	configPath string
	baseURL    string
	driver     string
	dsn        string
	verbose    bool

	// storage, when set before Execute, is used instead of the configured
	// driver.
	storage session.Storage
	closer  io.Closer

	logger  *zap.Logger
	session *session.Session
	client  *client.Client
	auth    *storefront.AuthService
	catalog *storefront.CatalogService
	cart    *cartstate.Coordinator
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Shop from the command line",
		Long: `storefront talks to the shop API with the same session rules as the web
storefront: a bearer token kept in local storage, silent refresh through the
refresh cookie, and a cart that is always re-read from the server after a
change.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("STOREFRONT_CONFIG"), "path to a YAML config file")
	root.PersistentFlags().StringVar(&c.baseURL, "api", "", "API base URL (overrides config)")
	root.PersistentFlags().StringVar(&c.driver, "storage", "", "session storage driver: sqlite, postgres or memory")
	root.PersistentFlags().StringVar(&c.dsn, "storage-dsn", "", "sqlite file or postgres connection string")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newLoginCmd(c),
		newSignupCmd(c),
		newLogoutCmd(c),
		newWhoAmICmd(c),
		newProductsCmd(c),
		newCategoriesCmd(c),
		newCartCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadClient(c.configPath)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.driver != "" {
		cfg.Storage.Driver = c.driver
	}
	if c.dsn != "" {
		cfg.Storage.DSN = c.dsn
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.logger == nil {
		if c.logger, err = logging.New(cfg.Log.Env, cfg.Log.Level); err != nil {
			return err
		}
	}

	if c.storage == nil {
		if c.storage, c.closer, err = openStorage(ctx, cfg.Storage); err != nil {
			return err
		}
	}

	if c.session, err = session.Open(ctx, c.storage, c.logger); err != nil {
		return err
	}
	jar, err := session.NewPersistentJar(ctx, c.storage, cfg.BaseURL, c.logger)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	c.client, err = client.New(client.Options{
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
		BypassHeader: cfg.BypassHeader,
		BypassValue:  cfg.BypassValue,
		Jar:          jar,
		Logger:       c.logger,
		Redirector: client.RedirectFunc(func(context.Context) {
			fmt.Fprintln(stderr, "Your session has expired. Run `storefront login` to sign in again.")
		}),
	}, c.session)
	if err != nil {
		return err
	}

	c.auth = storefront.NewAuthService(c.client, c.session, c.logger)
	c.catalog = storefront.NewCatalogService(c.client)
	c.cart = cartstate.New(storefront.NewCartService(c.client), c.session, c.logger)
	return nil
}

func (c *cli) teardown() {
	if c.closer != nil {
		_ = c.closer.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (session.Storage, io.Closer, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		return session.NewMemoryStorage(), nil, nil
	case config.DriverPostgres:
		s, err := session.ConnectPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		return s, s, nil
	default:
		s, err := session.OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		return s, s, nil
	}
}

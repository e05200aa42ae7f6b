package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gustavop-dev/rainy-project/internal/catalog"
	"github.com/gustavop-dev/rainy-project/internal/contact"
	"github.com/gustavop-dev/rainy-project/internal/credentials"
	"github.com/gustavop-dev/rainy-project/internal/gateway"
	"github.com/gustavop-dev/rainy-project/internal/platform/config"
	"github.com/gustavop-dev/rainy-project/internal/platform/observability"
)

const cliTimeout = 30 * time.Second

// app holds the dependencies built once per invocation.
type app struct {
	envFile string
	verbose bool
	env     map[string]string

	out    io.Writer
	cfg    config.Config
	logger *zap.Logger
	tokens *credentials.FileStore
	client *gateway.Client
	store  *catalog.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rainyctl",
		Short:         "Operate the Rainy Filters storefront backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file with RAINY_* overrides")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newProductsCmd(a))
	root.AddCommand(newComparisonImagesCmd(a))
	root.AddCommand(newContactCmd(a))
	root.AddCommand(newUploadCmd(a))
	root.AddCommand(newDownloadCmd(a))
	root.AddCommand(newTokenCmd(a))
	return root
}

func (a *app) setup() error {
	opts := []config.Option{config.WithEnvFile(a.envFile)}
	if a.env != nil {
		opts = append(opts, config.WithEnvMap(a.env))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger == nil {
		level := cfg.LogLevel
		if a.verbose {
			level = "debug"
		}
		logger, err := observability.NewLogger(level)
		if err != nil {
			return fmt.Errorf("failed to initialise logger: %w", err)
		}
		a.logger = logger.Named("rainyctl")
	}

	tokens, err := credentials.NewFileStore(cfg.Credentials.File)
	if err != nil {
		return err
	}
	a.tokens = tokens

	client, err := gateway.New(cfg.API.BaseURL,
		gateway.WithTimeout(cliTimeout),
		gateway.WithLogger(a.logger.Named("gateway")),
		gateway.WithAPIPrefix(cfg.API.Prefix),
		gateway.WithCSRFCookieName(cfg.API.CSRFCookieName),
		gateway.WithTokenStore(tokens),
	)
	if err != nil {
		return err
	}
	a.client = client
	a.store = catalog.New(client,
		catalog.WithLogger(a.logger.Named("catalog")),
		catalog.WithDimensionKeys(cfg.Catalog.DimensionImageKeys...),
		catalog.WithDevMode(cfg.DevMode()),
	)
	return nil
}

// loadCatalog initialises the store and fails when no catalog is available.
func (a *app) loadCatalog(ctx context.Context) error {
	a.store.Init(ctx)
	if !a.store.Initialized() {
		return fmt.Errorf("rainyctl: %s", a.store.Err())
	}
	return nil
}

func (a *app) contactService() *contact.Service {
	return contact.NewService(a.client, contact.WithLogger(a.logger.Named("contact")))
}

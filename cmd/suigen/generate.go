package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"suigen/internal/config"
	"suigen/internal/fetch"
	"suigen/internal/gen"
	"suigen/internal/logging"
	"suigen/internal/resolve"
	"suigen/internal/rpc"
	"suigen/internal/schema"
)

// generateFlags mirror config.Config. Only flags set on the command line
// override the loaded configuration.
type generateFlags struct {
	Package     string
	Network     string
	RPCURL      string
	OutDir      string
	GoPackage   string
	DatabaseURL string
	Reset       bool
	Concurrency int
	MaxNodes    int
	Timeout     time.Duration
	Strict      bool
}

func newGenerateCmd(global *globalFlags) *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Resolve the package's events and write generated sources",
		Example: `  suigen generate --package 0x2 --network mainnet
  suigen generate -p 0xabc --out ./events --database-url postgres://localhost/indexer --reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.LoadOptions{File: global.ConfigFile, DotEnv: global.EnvFile})
			if err != nil {
				return err
			}

			flags.apply(cmd.Flags(), &cfg)

			if global.Verbose {
				cfg.Verbose = true
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := logging.New(cfg.Verbose, zapcore.AddSync(cmd.ErrOrStderr())).
				With(zap.String("run_id", uuid.NewString()))

			defer func() {
				_ = logger.Sync()
			}()

			return runGenerate(cmd.Context(), cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags.bind(cmd.Flags())

	return cmd
}

func (f *generateFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.Package, "package", "p", "", "root package id")
	fs.StringVarP(&f.Network, "network", "n", "", "network: mainnet, testnet or devnet")
	fs.StringVar(&f.RPCURL, "rpc-url", "", "JSON-RPC endpoint, overrides --network")
	fs.StringVarP(&f.OutDir, "out", "o", "", "output directory")
	fs.StringVar(&f.GoPackage, "go-package", "", "package name of the generated Go sources")
	fs.StringVar(&f.DatabaseURL, "database-url", "", "PostgreSQL DSN to apply the schema to")
	fs.BoolVar(&f.Reset, "reset", false, "drop managed tables before applying the schema")
	fs.IntVar(&f.Concurrency, "concurrency", 0, "parallel fetches")
	fs.IntVar(&f.MaxNodes, "max-nodes", 0, "stop after resolving this many declarations, 0 for no limit")
	fs.DurationVar(&f.Timeout, "timeout", 0, "per request timeout")
	fs.BoolVar(&f.Strict, "strict", false, "treat warnings as errors")
}

func (f *generateFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	changed := fs.Changed

	if changed("package") {
		cfg.Package = f.Package
	}

	if changed("network") {
		cfg.Network = f.Network
	}

	if changed("rpc-url") {
		cfg.RPCURL = f.RPCURL
	}

	if changed("out") {
		cfg.OutDir = f.OutDir
	}

	if changed("go-package") {
		cfg.GoPackage = f.GoPackage
	}

	if changed("database-url") {
		cfg.DatabaseURL = f.DatabaseURL
	}

	if changed("reset") {
		cfg.Reset = f.Reset
	}

	if changed("concurrency") {
		cfg.Concurrency = f.Concurrency
	}

	if changed("max-nodes") {
		cfg.MaxNodes = f.MaxNodes
	}

	if changed("timeout") {
		cfg.Timeout = f.Timeout
	}

	if changed("strict") {
		cfg.Strict = f.Strict
	}
}

func runGenerate(ctx context.Context, cfg config.Config, logger *zap.Logger, stdout, stderr io.Writer) error {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return err
	}

	root := cfg.PackageID()
	logger = logger.With(zap.Stringer("package", root))

	client := rpc.NewClient(endpoint, rpc.WithTimeout(cfg.Timeout), rpc.WithLogger(logger))
	cache := fetch.NewCache(client)

	res, err := resolve.New(cache,
		resolve.WithLogger(logger),
		resolve.WithConcurrency(cfg.Concurrency),
		resolve.WithMaxNodes(cfg.MaxNodes),
	).Run(ctx, root)
	if err != nil {
		return err
	}

	stats := cache.Stats()
	logger.Info("resolved package",
		zap.Int("events", len(res.Events)),
		zap.Int("declarations", len(res.Resolved)),
		zap.Int("unresolved", len(res.Unresolved())),
		zap.Int64("metadata_calls", stats.MetadataCalls),
		zap.Int64("bytecode_calls", stats.BytecodeCalls),
	)

	models := gen.BuildModels(res, res.Diagnostics)

	files, err := gen.NewGenerator(gen.GeneratorConfig{
		PackageName:      cfg.GoPackage,
		OutputDir:        cfg.OutDir,
		GenerateComments: true,
	}, logger).Generate(models)
	if err != nil {
		return fmt.Errorf("rendering sources: %w", err)
	}

	manifest, err := gen.BuildManifest(root.Long(), cfg.Network, models).File()
	if err != nil {
		return err
	}

	ddl := schema.Build(models)

	files = append(files, manifest, gen.GeneratedFile{Filename: schema.FileName, Content: []byte(ddl.DDL())})

	if err := gen.WriteFiles(files, cfg.OutDir); err != nil {
		return err
	}

	logger.Info("wrote generated files", zap.String("out", cfg.OutDir), zap.Int("files", len(files)))

	if cfg.DatabaseURL != "" {
		if err := schema.ApplyDSN(ctx, cfg.DatabaseURL, ddl, schema.ApplyOptions{Reset: cfg.Reset, Logger: logger}); err != nil {
			return err
		}
	}

	diags := res.Diagnostics
	for _, d := range diags.Infos() {
		fmt.Fprintf(stderr, "note: %s\n", d)
	}

	for _, d := range diags.Warnings() {
		fmt.Fprintf(stderr, "warning: %s\n", d)
	}

	fmt.Fprintf(stdout, "generated %d declarations for %d events in %s\n", len(models), len(res.Events), cfg.OutDir)

	if cfg.Strict && diags.HasWarnings() {
		return fmt.Errorf("strict mode: %d warnings", len(diags.Warnings()))
	}

	return nil
}

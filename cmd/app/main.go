package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/wmo-im/codelists/internal"
	pkgconfig "github.com/wmo-im/codelists/pkg/config"
)

// loadConfig reads the config file, applies command-line overrides and
// validates the result before any command does work.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("dry-run") {
		cfg.Registry.DryRun = cmd.Bool("dry-run")
	}
	for flag, target := range map[string]*string{
		"mode":     &cfg.Registry.Mode,
		"status":   &cfg.Registry.Status,
		"user":     &cfg.Registry.User,
		"password": &cfg.Registry.Password,
	} {
		if cmd.IsSet(flag) {
			*target = cmd.String(flag)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVerbose(cmd.Bool("verbose")),
	}, nil
}

func compile(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunCompile(ctx, cmd.Bool("watch"), opts...)
}

func sync(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunSync(ctx, cmd.Args().First(), opts...)
}

func exportBundle(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunBundle(ctx, cmd.String("output"), opts...)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunServe(ctx, opts...)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:  "codelists",
		Usage: "Compile CSV taxonomies into SKOS registers and publish them to a linked-data registry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log at debug level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "compile",
				Usage:  "Regenerate the Turtle output tree from the CSV sources",
				Action: compile,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Recompile when the sources change"},
				},
			},
			{
				Name:      "sync",
				Usage:     "Publish the generated documents to the registry",
				ArgsUsage: "[directory]",
				Action:    sync,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Log requests instead of sending them"},
					&cli.StringFlag{Name: "mode", Usage: "Target registry: test or prod", Sources: cli.EnvVars("REGISTRY_MODE")},
					&cli.StringFlag{Name: "status", Usage: "Register status: experimental or stable"},
					&cli.StringFlag{Name: "user", Usage: "GitHub user id", Sources: cli.EnvVars("REGISTRY_USER")},
					&cli.StringFlag{Name: "password", Usage: "Registry API key", Sources: cli.EnvVars("REGISTRY_PASSWORD")},
				},
			},
			{
				Name:   "bundle",
				Usage:  "Export the sorted list of topic paths as CSV",
				Action: exportBundle,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Bundle file (defaults to output.bundle)"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the browse API and recompile on source changes",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the taxonomy to MCP clients on stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

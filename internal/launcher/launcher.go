package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/openwinecomponents/umu-launcher/internal/config"
	"github.com/openwinecomponents/umu-launcher/internal/logger"
	"github.com/openwinecomponents/umu-launcher/internal/pool"
	"github.com/openwinecomponents/umu-launcher/internal/proton"
)

// Options are inputs accepted by the launcher entry point.
type Options struct {
	// ConfigPath is the optional path to the launcher TOML file.
	ConfigPath string
	// Exe overrides the game executable (with optional launch arguments).
	Exe string
	// LaunchArgs are extra arguments appended after the executable.
	LaunchArgs []string
	// Verb overrides the Proton verb.
	Verb string
	// EmptyPrefix requests creation of an empty prefix without a launch.
	EmptyPrefix bool
}

// Run executes the launcher lifecycle and is the public entry point for
// the CLI: load configuration, prepare the prefix, acquire a runtime
// build, and hand control to Proton.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "umu-launcher")

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if err = config.Validate(cfg); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}

	if err = SetupPrefix(cfg.Prefix); err != nil {
		return err
	}

	sel, err := resolveRuntime(ctx, cfg)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Runtime selected", "path", sel.Path)

	if cfg.EmptyPrefix {
		logger.Infof(ctx, "Prefix created: %s", cfg.Prefix)
		return nil
	}

	return launch(ctx, cfg, sel)
}

// loadConfig merges the TOML file, the environment and the CLI overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.FromEnv()
	}

	if opts.Exe != "" {
		cfg.Exe = opts.Exe
		cfg.LaunchArgs = opts.LaunchArgs
	}

	if opts.Verb != "" {
		cfg.Verb = opts.Verb
	}

	cfg.EmptyPrefix = opts.EmptyPrefix

	if cfg.StoreRoot == "" {
		cfg.StoreRoot, err = config.DefaultStoreRoot()
		if err != nil {
			return nil, err
		}
	}

	if cfg.RuntimeDir == "" {
		cfg.RuntimeDir, err = config.DefaultRuntimeDir()
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// resolveRuntime produces the Proton selection: a pinned directory when
// the configuration names one, otherwise the acquisition pipeline.
func resolveRuntime(ctx context.Context, cfg *config.Config) (proton.Selection, error) {
	if cfg.Proton != "" && cfg.Proton != proton.VendorGE {
		if info, err := os.Stat(cfg.Proton); err == nil && info.IsDir() {
			logger.Infof(ctx, "Using pinned Proton: %s", cfg.Proton)
			return proton.Selection{Path: cfg.Proton}, nil
		}

		logger.Warnf(ctx, "Pinned Proton is not a directory, acquiring instead: %s", cfg.Proton)
	}

	mode := proton.ModeFiltered
	if cfg.InsecureExtraction {
		mode = proton.ModeInsecure
	}

	acquireOpts := &proton.Options{
		StoreRoot:      cfg.StoreRoot,
		VendorSelector: cfg.Proton,
		Zenity:         cfg.Zenity,
		ExtractionMode: mode,
	}

	sel, err := proton.Acquire(ctx, acquireOpts, pool.New(pool.DefaultSize))
	if err != nil {
		return proton.Selection{}, fmt.Errorf("acquire runtime: %w", err)
	}

	return sel, nil
}

// launch executes Proton with the assembled command and environment,
// propagating its exit status.
func launch(ctx context.Context, cfg *config.Config, sel proton.Selection) error {
	argv, err := BuildCommand(cfg, sel)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Launching", "argv", argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = BuildEnvironment(cfg, sel)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err = cmd.Run(); err != nil {
		return fmt.Errorf("run proton: %w", err)
	}

	return nil
}

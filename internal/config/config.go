package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// Config holds everything the launcher needs for one run: the game being
// launched, the WINE prefix, and the knobs steering runtime acquisition.
type Config struct {
	// Exe is the path to the game executable.
	Exe string `toml:"exe"`
	// LaunchArgs are extra arguments appended after the executable.
	LaunchArgs []string `toml:"launch_args"`
	// GameID identifies the game for the Steam compatibility tool.
	GameID string `toml:"game_id"`
	// Prefix is the WINE prefix directory.
	Prefix string `toml:"prefix"`
	// Proton optionally pins an already installed Proton directory.
	// The special value "GE-Proton" selects the GE release family instead.
	Proton string `toml:"proton"`
	// Store identifies the storefront the game was purchased from
	// (e.g. gog, egs). Exported to the runtime environment as STORE so
	// protonfixes can look up the right game fixes.
	Store string `toml:"store"`
	// Verb is the Proton verb used for the launch.
	Verb string `toml:"verb"`

	// StoreRoot is the runtime store directory. Not persisted; resolved
	// from the well-known Steam location unless overridden in tests.
	StoreRoot string `toml:"-"`
	// RuntimeDir is where the container runtime entry point lives when
	// one is installed. Not persisted; resolved from the well-known
	// location unless overridden in tests.
	RuntimeDir string `toml:"-"`
	// Zenity enables helper-mode downloads with a zenity progress popup.
	Zenity bool `toml:"-"`
	// InsecureExtraction disables the safety filter during archive
	// extraction. Decided once at startup, never mid-run.
	InsecureExtraction bool `toml:"-"`
	// EmptyPrefix requests creation of an empty prefix without a launch.
	EmptyPrefix bool `toml:"-"`
}

// launcherFile mirrors the on-disk TOML layout: one [umu] table.
type launcherFile struct {
	UMU Config `toml:"umu"`
}

const (
	// DefaultVerb is the Proton verb used when none is configured.
	DefaultVerb = "waitforexitandrun"

	// DefaultFilePermissions is the permission mask for files the launcher creates.
	DefaultFilePermissions os.FileMode = 0o644

	// DefaultDirPermissions is the permission mask for directories the launcher creates.
	DefaultDirPermissions os.FileMode = 0o755
)

var (
	// errExeRequired is returned when neither an executable nor an empty prefix was requested.
	errExeRequired = errors.New("an executable must be provided")
	// errPrefixRequired is returned when the WINE prefix is missing.
	errPrefixRequired = errors.New("a WINE prefix must be provided")
	// errGameIDRequired is returned when the game id is missing.
	errGameIDRequired = errors.New("a game id must be provided")
	// errUnknownVerb is returned for Proton verbs outside the supported set.
	errUnknownVerb = errors.New("unknown proton verb")
	// errArgIsFile guards against launch arguments that point at files.
	errArgIsFile = errors.New("launch argument must not be a file")
	// errNotWinetricksVerb is returned for malformed winetricks verbs.
	errNotWinetricksVerb = errors.New("not a winetricks verb")
)

// winetricksVerb matches a single winetricks verb, optionally carrying a
// value (e.g. mscorefonts, sound=alsa).
//
//nolint:gochecknoglobals // Fixed pattern.
var winetricksVerb = regexp.MustCompile(`^[a-zA-Z_0-9]+(=[a-zA-Z0-9]+)?$`)

// protonVerbs is the set of verbs Proton currently understands.
//
//nolint:gochecknoglobals // Fixed lookup table.
var protonVerbs = map[string]struct{}{
	"waitforexitandrun": {},
	"run":               {},
	"runinprefix":       {},
	"destroyprefix":     {},
	"getcompatpath":     {},
	"getnativepath":     {},
}

// DefaultStoreRoot resolves the well-known runtime store location,
// ~/.local/share/Steam/compatibilitytools.d.
func DefaultStoreRoot() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "Steam", "compatibilitytools.d"), nil
}

// DefaultRuntimeDir resolves the container runtime install location,
// ~/.local/share/umu. The launch is wrapped through its entry point when
// one is present there.
func DefaultRuntimeDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "umu"), nil
}

// Load reads the launcher TOML file at path and returns the [umu] table.
// Values from the file take precedence over the environment; callers merge
// the environment first via FromEnv.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read launcher config: %w", err)
	}

	var file launcherFile
	if err = toml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("unmarshal launcher config: %w", err)
	}

	cfg := file.UMU
	cfg.FillFromEnv()

	return &cfg, nil
}

// FromEnv builds a Config purely from the environment, for runs without a
// config file.
func FromEnv() *Config {
	var cfg Config
	cfg.FillFromEnv()

	return &cfg
}

// FillFromEnv populates unset fields from the process environment. Keys set
// by the TOML file keep their values.
func (c *Config) FillFromEnv() {
	if c.Prefix == "" {
		c.Prefix = os.Getenv("WINEPREFIX")
	}

	if c.GameID == "" {
		c.GameID = os.Getenv("GAMEID")
	}

	if c.Proton == "" {
		c.Proton = os.Getenv("PROTONPATH")
	}

	if c.Store == "" {
		c.Store = os.Getenv("STORE")
	}

	if c.Verb == "" {
		c.Verb = os.Getenv("PROTON_VERB")
	}

	if c.Verb == "" {
		c.Verb = DefaultVerb
	}

	c.Zenity = os.Getenv("UMU_ZENITY") == "1"
	c.InsecureExtraction = os.Getenv("UMU_INSECURE_EXTRACT") == "1"
}

// Validate checks the configuration for required fields and obvious misuse.
func Validate(cfg *Config) error {
	if cfg.Prefix == "" {
		return errPrefixRequired
	}

	if cfg.GameID == "" {
		return errGameIDRequired
	}

	if _, ok := protonVerbs[cfg.Verb]; !ok {
		return fmt.Errorf("%w: %s", errUnknownVerb, cfg.Verb)
	}

	if cfg.EmptyPrefix {
		return nil
	}

	if strings.TrimSpace(cfg.Exe) == "" {
		return errExeRequired
	}

	// winetricks is resolved from PATH and its arguments are verbs, not
	// files, so it bypasses the file checks below.
	if filepath.Base(cfg.Exe) == "winetricks" {
		for _, verb := range cfg.LaunchArgs {
			if !winetricksVerb.MatchString(verb) {
				return fmt.Errorf("%w: %s", errNotWinetricksVerb, verb)
			}
		}

		return nil
	}

	if _, err := os.Stat(cfg.Exe); err != nil {
		return fmt.Errorf("stat executable: %w", err)
	}

	// A launch argument that names a file is almost always a mistake.
	for _, arg := range cfg.LaunchArgs {
		if info, err := os.Stat(arg); err == nil && info.Mode().IsRegular() {
			return fmt.Errorf("%w: %s", errArgIsFile, arg)
		}
	}

	return nil
}

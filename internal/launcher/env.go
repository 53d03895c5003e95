package launcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openwinecomponents/umu-launcher/internal/config"
	"github.com/openwinecomponents/umu-launcher/internal/proton"
)

// errProtonMissing is returned when the selected build has no proton entry point.
var errProtonMissing = errors.New("proton entry point not found in selected build")

// crashReportDir collects Proton crash reports.
const crashReportDir = "/tmp/umu_crashreports"

// BuildEnvironment assembles the launch environment for the Steam runtime
// from the configuration and the resolved runtime selection. The selection
// is threaded through explicitly; nothing is read from or written to the
// process environment here.
func BuildEnvironment(cfg *config.Config, sel proton.Selection) []string {
	installPath := ""
	if cfg.Exe != "" {
		installPath = filepath.Dir(cfg.Exe)
	}

	pairs := map[string]string{
		"WINEPREFIX":                cfg.Prefix,
		"GAMEID":                    cfg.GameID,
		"PROTONPATH":                sel.Path,
		"STEAM_COMPAT_APP_ID":       cfg.GameID,
		"SteamAppId":                cfg.GameID,
		"STEAM_COMPAT_TOOL_PATHS":   sel.Path,
		"STEAM_COMPAT_INSTALL_PATH": installPath,
		"STEAM_COMPAT_DATA_PATH":    cfg.Prefix,
		"STEAM_COMPAT_SHADER_PATH":  filepath.Join(cfg.Prefix, "shadercache"),
		"PROTON_CRASH_REPORT_DIR":   crashReportDir,
	}

	// protonfixes keys its game fix lookup on the storefront.
	if cfg.Store != "" {
		pairs["STORE"] = cfg.Store
	}

	env := os.Environ()
	for key, val := range pairs {
		env = append(env, key+"="+val)
	}

	return env
}

// BuildCommand builds the final argv: the proton entry point of the
// selected build, the verb, the executable and its launch arguments. When
// the container runtime is installed, the launch is wrapped through its
// entry point so the game runs inside the pressure-vessel container;
// otherwise Proton runs directly on the host.
func BuildCommand(cfg *config.Config, sel proton.Selection) ([]string, error) {
	protonBin := filepath.Join(sel.Path, "proton")
	if info, err := os.Stat(protonBin); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errProtonMissing, protonBin)
	}

	argv := make([]string, 0, 7+len(cfg.LaunchArgs))

	entryPoint := filepath.Join(cfg.RuntimeDir, "umu")
	if info, err := os.Stat(entryPoint); err == nil && info.Mode().IsRegular() {
		argv = append(argv, entryPoint, "--verb", cfg.Verb, "--")
	}

	argv = append(argv, protonBin, cfg.Verb, cfg.Exe)
	argv = append(argv, cfg.LaunchArgs...)

	return argv, nil
}

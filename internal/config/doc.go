// Package config defines the launcher configuration and provides helpers to
// load it from a TOML file ([umu] table) and from the environment variables
// WINEPREFIX, GAMEID, PROTONPATH, PROTON_VERB and UMU_ZENITY.
//
// Values from the TOML file take precedence over the environment.
package config

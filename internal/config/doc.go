// Package config manages user-level settings stored at ~/.postboy/config.yaml.
// Values can be overridden with POSTBOY_* environment variables, e.g.
// POSTBOY_UPDATE_INTERVAL=30m. It also resolves the release feed settings
// used by the self-update mechanism, including the access token.
package config

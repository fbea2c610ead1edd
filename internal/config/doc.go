// Package config decodes todols configuration.
//
// Two sources feed the server:
//
//   - Initialization options sent by the editor in the initialize request
//     (and later in workspace/didChangeConfiguration). These carry the
//     keyword highlight table and are decoded by Parse, which never fails:
//     anything it cannot decode falls back to the default table.
//   - An optional settings file given with --config, in TOML, YAML or JSON,
//     plus TODOLS_* environment overrides. These carry process settings
//     such as logging and telemetry, and may replace the default table.
//
// # Initialization options
//
//	{
//	  "highlights": {
//	    "TODO":  { "background": "#868686" },
//	    "FIXME": { "background": "#b8b80eff" }
//	  }
//	}
//
// A keyword without "background" gets the default gray.
package config

package scraper

import (
	"embed"
	"log/slog"
)

//go:embed selectors.json
var embeddedSelectors embed.FS

// LoadConfig resolves selectors from the external file at path when it
// exists, then the embedded selectors.json, then the hardcoded defaults.
func LoadConfig(path string) SelectorConfig {
	if path != "" {
		if fileSel, err := LoadSelectors(path); err == nil {
			slog.Info("Loaded selectors from external file", "path", path)
			return fileSel
		} else {
			slog.Debug("External selectors unavailable", "path", path, "error", err)
		}
	}

	data, err := embeddedSelectors.ReadFile("selectors.json")
	if err == nil {
		sel, parseErr := LoadSelectorsFromBytes(data)
		if parseErr == nil {
			slog.Info("Loaded selectors from embedded config.")
			return sel
		}
		slog.Warn("Embedded selectors failed to parse. Using defaults.", "error", parseErr)
	}

	slog.Info("Using hardcoded default selectors")
	return DefaultSelectors()
}

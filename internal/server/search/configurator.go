package search

import (
	"context"

	"github.com/dmitrijs2005/fastsearch/internal/logging"
)

// Configurator makes an index's settings match a desired Settings value.
// Applying the same settings twice is a no-op on the backend.
type Configurator struct {
	backend SettingsBackend
	logger  logging.Logger
}

func NewConfigurator(backend SettingsBackend, logger logging.Logger) *Configurator {
	return &Configurator{backend: backend, logger: logger}
}

// Configure validates and normalizes settings, ensures the index exists with
// the document primary key, and updates settings only when they differ from
// the current ones. It reports whether an update was applied.
func (c *Configurator) Configure(ctx context.Context, index string, settings Settings) (bool, error) {
	if err := settings.Validate(); err != nil {
		return false, err
	}
	want := settings.Normalized()

	if err := c.backend.EnsureIndex(ctx, index, PrimaryKey); err != nil {
		return false, Unavailable("ensure index", err)
	}

	current, err := c.backend.GetSettings(ctx, index)
	if err != nil {
		return false, Unavailable("get settings", err)
	}

	if current.Equal(want) {
		c.logger.Debug(ctx, "index settings already up to date", "index", index)
		return false, nil
	}

	if err := c.backend.UpdateSettings(ctx, index, want); err != nil {
		return false, Unavailable("update settings", err)
	}

	c.logger.Info(ctx, "index settings updated", "index", index,
		"ceiling", want.PaginationCeiling, "searchable", len(want.Searchable))
	return true, nil
}

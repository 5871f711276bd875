package apps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/zou/appbridge/internal/shared/types"
)

// catalogFile is the on-disk shape of a catalog
type catalogFile struct {
	Apps []types.AppEntry `toml:"apps" yaml:"apps"`
}

// CatalogRegistry serves a static list of applications loaded from a TOML or
// YAML file. An entry with a Path is installed only while that path exists.
type CatalogRegistry struct {
	file    string
	starter Starter
	logger  *zap.Logger

	mu      sync.RWMutex
	entries map[string]types.AppEntry
}

// NewCatalogRegistry loads the catalog at file
func NewCatalogRegistry(file string, starter Starter, logger *zap.Logger) (*CatalogRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if starter == nil {
		starter = NewExecStarter(logger)
	}

	c := &CatalogRegistry{
		file:    file,
		starter: starter,
		logger:  logger,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file. On error the previous entries are kept.
func (c *CatalogRegistry) Reload() error {
	data, err := os.ReadFile(c.file)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	entries, err := ParseCatalog(c.file, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	c.logger.Info("Loaded application catalog",
		zap.String("file", c.file),
		zap.Int("apps", len(entries)),
	)
	return nil
}

// ParseCatalog decodes catalog data; the format is chosen by file extension
func ParseCatalog(name string, data []byte) (map[string]types.AppEntry, error) {
	var cf catalogFile

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("TOML parse error in %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("YAML parse error in %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}

	entries := make(map[string]types.AppEntry, len(cf.Apps))
	for i, e := range cf.Apps {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: catalog entry %d has no id", ErrInvalidEntry, i)
		}
		if _, dup := entries[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate catalog id %q", ErrInvalidEntry, e.ID)
		}
		e.Source = types.SourceCatalog
		entries[e.ID] = e
	}
	return entries, nil
}

func (c *CatalogRegistry) lookup(appID string) (types.AppEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[appID]
	return e, ok
}

// IsInstalled reports whether appID is in the catalog and present on disk
func (c *CatalogRegistry) IsInstalled(ctx context.Context, appID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e, ok := c.lookup(appID)
	if !ok || e.Hidden {
		return false, nil
	}
	return present(e)
}

// Launch starts the catalog entry's exec command
func (c *CatalogRegistry) Launch(ctx context.Context, appID string) (bool, error) {
	installed, err := c.IsInstalled(ctx, appID)
	if err != nil || !installed {
		return false, err
	}

	e, _ := c.lookup(appID)
	if !e.Launchable() {
		return false, nil
	}

	spec := LaunchSpec{AppID: e.ID, Argv: append([]string(nil), e.Exec...)}
	if e.Path != "" {
		if info, err := os.Stat(e.Path); err == nil && info.IsDir() {
			spec.Dir = e.Path
		}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := c.starter.Start(ctx, spec); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the catalog entries that are currently installed
func (c *CatalogRegistry) List(ctx context.Context) ([]types.AppEntry, error) {
	c.mu.RLock()
	all := make([]types.AppEntry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	c.mu.RUnlock()

	entries := all[:0]
	for _, e := range all {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := present(e)
		if err != nil {
			return nil, err
		}
		if ok && !e.Hidden {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func present(e types.AppEntry) (bool, error) {
	if e.Path == "" {
		return true, nil
	}
	_, err := os.Stat(e.Path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", e.Path, err)
	}
}

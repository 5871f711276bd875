package types

// AppSource names the registry backend an entry came from
type AppSource string

const (
	SourceDesktop AppSource = "desktop"
	SourceCatalog AppSource = "catalog"
)

// AppEntry is one application known to the host registry
type AppEntry struct {
	ID        string    `json:"id" toml:"id" yaml:"id"`
	Name      string    `json:"name" toml:"name" yaml:"name"`
	Exec      []string  `json:"exec,omitempty" toml:"exec" yaml:"exec"`
	Path      string    `json:"path,omitempty" toml:"path" yaml:"path"`
	NoDisplay bool      `json:"no_display,omitempty" toml:"no_display" yaml:"no_display"`
	Hidden    bool      `json:"hidden,omitempty" toml:"hidden" yaml:"hidden"`
	Source    AppSource `json:"source" toml:"-" yaml:"-"`
}

// Launchable reports whether the entry carries a launch directive
func (e AppEntry) Launchable() bool {
	return len(e.Exec) > 0 && !e.NoDisplay && !e.Hidden
}

// RegistryStats summarizes a registry listing
type RegistryStats struct {
	TotalApps      int            `json:"total_apps"`
	LaunchableApps int            `json:"launchable_apps"`
	Sources        map[string]int `json:"sources"`
}

package apps

import (
	"context"
	"errors"

	"github.com/zou/appbridge/internal/shared/types"
)

// ErrInvalidEntry marks registry metadata that exists but cannot be parsed
var ErrInvalidEntry = errors.New("invalid application entry")

// Registry is the host's application registry and launch facility.
//
// A negative answer is (false, nil). An error means the platform itself
// failed and is never a stand-in for false.
type Registry interface {
	// IsInstalled reports whether metadata exists for appID. Read-only.
	IsInstalled(ctx context.Context, appID string) (bool, error)
	// Launch requests a foreground transition for appID if a launch
	// directive exists. Returns false, with no side effect, otherwise.
	Launch(ctx context.Context, appID string) (bool, error)
}

// Lister is implemented by registries that can enumerate their entries
type Lister interface {
	List(ctx context.Context) ([]types.AppEntry, error)
}

// Stats summarizes a listing
func Stats(entries []types.AppEntry) types.RegistryStats {
	stats := types.RegistryStats{Sources: make(map[string]int)}
	for _, e := range entries {
		stats.TotalApps++
		if e.Launchable() {
			stats.LaunchableApps++
		}
		stats.Sources[string(e.Source)]++
	}
	return stats
}

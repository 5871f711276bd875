// Package paths resolves the XDG base directories the application registry
// scans.
//
// # Lookup Order
//
//	$XDG_DATA_HOME/applications   (default ~/.local/share/applications)
//	$XDG_DATA_DIRS/*/applications (default /usr/local/share:/usr/share)
//
// Relative entries in either variable are ignored.
//
// # Usage
//
//	import "github.com/zou/appbridge/internal/shared/paths"
//
//	for _, dir := range paths.ApplicationDirs() {
//	    // highest precedence first
//	}
package paths
